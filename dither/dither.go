// Package dither implements spec.md §6's in-place palette reducers:
// Floyd-Steinberg and Atkinson error diffusion, 4x4/8x8 ordered (Bayer)
// dithering, and a plain nearest-colour reduction with no diffusion at
// all. Every reducer writes straight into the bitmap's pixel buffer,
// replacing each pixel with a palette entry, so reduced pixels carry the
// palette's alpha (palette entries are always stored fully opaque).
package dither

import bm "github.com/wernsey/bitmap"

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Nearest replaces every pixel with its nearest palette entry, no error
// diffusion (original_source/bmp.c's bm_reduce_palette_nearest).
func Nearest(b *bm.Bitmap, pal *bm.Palette) {
	px := b.Data()
	for i, c := range px {
		px[i] = pal.NearestColor(c)
	}
}

// FloydSteinberg reduces b to pal in place using Floyd-Steinberg
// error-diffusion dithering (original_source/bmp.c's bm_reduce_palette):
// the quantization error at each pixel is distributed to its
// right/below-left/below/below-right neighbours with weights 7/3/5/1
// out of 16.
func FloydSteinberg(b *bm.Bitmap, pal *bm.Palette) {
	w, h := b.Width(), b.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := b.Get(x, y)
			next := pal.NearestColor(old)
			b.Set(x, y, next)

			r1, g1, b1 := old.RGB()
			r2, g2, b2 := next.RGB()
			er := int(r1) - int(r2)
			eg := int(g1) - int(g2)
			eb := int(b1) - int(b2)

			addFactor(b, x+1, y, er, eg, eb, 7)
			addFactor(b, x-1, y+1, er, eg, eb, 3)
			addFactor(b, x, y+1, er, eg, eb, 5)
			addFactor(b, x+1, y+1, er, eg, eb, 1)
		}
	}
}

func addFactor(b *bm.Bitmap, x, y, er, eg, eb, f int) {
	if x < 0 || x >= b.Width() || y < 0 || y >= b.Height() {
		return
	}
	r, g, bl := b.Get(x, y).RGB()
	nr := clamp8(int(r) + (f*er)>>4)
	ng := clamp8(int(g) + (f*eg)>>4)
	nb := clamp8(int(bl) + (f*eb)>>4)
	b.Set(x, y, bm.RGBA32(nr, ng, nb, 0))
}

// Atkinson reduces b to pal in place using Atkinson dithering
// (original_source/bmp.c's bm_reduce_palette_atk): each pixel's error
// is split 1/8th to each of six neighbours (so only 6/8 of the error is
// diffused at all, which is what gives Atkinson its higher contrast).
func Atkinson(b *bm.Bitmap, pal *bm.Palette) {
	w, h := b.Width(), b.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := b.Get(x, y)
			next := pal.NearestColor(old)
			b.Set(x, y, next)

			r1, g1, b1 := old.RGB()
			r2, g2, b2 := next.RGB()
			er := int(r1) - int(r2)
			eg := int(g1) - int(g2)
			eb := int(b1) - int(b2)

			atkFactor(b, x+1, y, er, eg, eb)
			atkFactor(b, x+2, y, er, eg, eb)
			atkFactor(b, x-1, y+1, er, eg, eb)
			atkFactor(b, x, y+1, er, eg, eb)
			atkFactor(b, x+1, y+1, er, eg, eb)
			atkFactor(b, x, y+2, er, eg, eb)
		}
	}
}

func atkFactor(b *bm.Bitmap, x, y, er, eg, eb int) {
	if x < 0 || x >= b.Width() || y < 0 || y >= b.Height() {
		return
	}
	r, g, bl := b.Get(x, y).RGB()
	nr := clamp8(int(r) + (er >> 3))
	ng := clamp8(int(g) + (eg >> 3))
	nb := clamp8(int(bl) + (eb >> 3))
	b.Set(x, y, bm.RGBA32(nr, ng, nb, 0))
}

// bayer4x4 and bayer8x8 are the ordered-dithering threshold matrices
// from original_source/bmp.c, used as-is (values 1..16 and 1..64
// respectively, each paired with a normalizing factor of matrix-size+1).
var bayer4x4 = [16]int{
	1, 9, 3, 11,
	13, 5, 15, 7,
	4, 12, 2, 10,
	16, 8, 14, 6,
}

var bayer8x8 = [64]int{
	1, 49, 13, 61, 4, 52, 16, 64,
	33, 17, 45, 29, 36, 20, 48, 32,
	9, 57, 5, 53, 12, 60, 8, 56,
	41, 25, 37, 21, 44, 28, 40, 24,
	3, 51, 15, 63, 2, 50, 14, 62,
	35, 19, 47, 31, 34, 18, 46, 30,
	11, 59, 7, 55, 10, 58, 6, 54,
	43, 27, 39, 23, 42, 26, 38, 22,
}

func orderedReduce(b *bm.Bitmap, pal *bm.Palette, matrix []int, dim, factor int) {
	w, h := b.Width(), b.Height()
	mask := dim - 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl := b.Get(x, y).RGB()
			f := matrix[(y&mask)*dim+(x&mask)]

			nr := clamp8(int(r) + int(r)*f/factor - factor/2)
			ng := clamp8(int(g) + int(g)*f/factor - factor/2)
			nb := clamp8(int(bl) + int(bl)*f/factor - factor/2)

			b.Set(x, y, pal.NearestColor(bm.RGB32(nr, ng, nb)))
		}
	}
}

// Bayer4 reduces b to pal with 4x4 ordered (Bayer) dithering
// (original_source/bmp.c's bm_reduce_palette_OD4).
func Bayer4(b *bm.Bitmap, pal *bm.Palette) {
	orderedReduce(b, pal, bayer4x4[:], 4, 17)
}

// Bayer8 reduces b to pal with 8x8 ordered (Bayer) dithering
// (original_source/bmp.c's bm_reduce_palette_OD8).
func Bayer8(b *bm.Bitmap, pal *bm.Palette) {
	orderedReduce(b, pal, bayer8x8[:], 8, 65)
}
