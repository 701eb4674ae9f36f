// Package bitmap is a self-contained raster graphics library: a unified
// in-memory Bitmap representation, a reference-counted Palette, and
// pluggable codecs (registered from internal/format/*) for BMP, GIF, PCX,
// TGA and Netpbm.
package bitmap

import "fmt"

// Rect is an axis-aligned clipping rectangle. X0,Y0 are inclusive, X1,Y1
// are exclusive, per spec.md §3.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Bitmap is a W×H buffer of 32-bit pixels plus the drawing state
// (pen colour, clip rect) and an optional attached Palette.
//
// A Bitmap created via New/Copy/Crop owns its pixel buffer. A Bitmap
// created via Bind wraps caller-supplied memory and never frees it.
type Bitmap struct {
	w, h int
	pix  []Color
	clip Rect
	pen  Color
	pal  *Palette
	cfg  Config

	owned bool
	refs  int32 // 0 = caller-managed via Free; >=1 = managed via Retain/Release
}

// New creates a W×H bitmap, pixels zeroed (0x00000000), clip set to the
// full image, no palette, pen black, owning its own buffer.
func New(w, h int) (*Bitmap, error) {
	return NewWithConfig(w, h, DefaultConfig)
}

// NewWithConfig is New with explicit size-limit/byte-order switches.
func NewWithConfig(w, h int, cfg Config) (*Bitmap, error) {
	cfg = cfg.normalized()
	if w <= 0 || h <= 0 {
		return nil, newErr("", "new", KindInvalid, fmt.Errorf("non-positive dimensions %dx%d", w, h))
	}
	if w > cfg.MaxDimension || h > cfg.MaxDimension {
		return nil, newErr("", "new", KindResourceExhausted, fmt.Errorf("dimensions %dx%d exceed limit %d", w, h, cfg.MaxDimension))
	}
	if int64(w)*int64(h) > cfg.MaxPixels {
		return nil, newErr("", "new", KindResourceExhausted, fmt.Errorf("pixel count %d exceeds limit %d", w*h, cfg.MaxPixels))
	}
	b := &Bitmap{
		w:     w,
		h:     h,
		pix:   make([]Color, w*h),
		clip:  Rect{0, 0, w, h},
		pen:   0xFF000000,
		owned: true,
		cfg:   cfg,
	}
	return b, nil
}

// Bind wraps an existing pixel buffer (length must be exactly w*h, one
// Color per pixel) without taking ownership of it. Freeing or releasing
// the returned Bitmap never touches buf.
func Bind(w, h int, buf []Color) (*Bitmap, error) {
	if w <= 0 || h <= 0 {
		return nil, newErr("", "bind", KindInvalid, fmt.Errorf("non-positive dimensions %dx%d", w, h))
	}
	if len(buf) != w*h {
		return nil, newErr("", "bind", KindInvalid, fmt.Errorf("buffer length %d does not match %dx%d", len(buf), w, h))
	}
	return &Bitmap{
		w:     w,
		h:     h,
		pix:   buf,
		clip:  Rect{0, 0, w, h},
		pen:   0xFF000000,
		owned: false,
		cfg:   DefaultConfig,
	}, nil
}

// Unbind detaches the pixel buffer from a bound Bitmap and returns it,
// leaving the Bitmap empty. Calling Unbind on an owned Bitmap panics:
// ownership transfer only makes sense for bitmaps created via Bind.
func (b *Bitmap) Unbind() []Color {
	if b.owned {
		panic("bitmap: Unbind called on an owned Bitmap")
	}
	buf := b.pix
	b.pix = nil
	b.w, b.h = 0, 0
	return buf
}

// Width returns the bitmap's width in pixels.
func (b *Bitmap) Width() int { return b.w }

// Height returns the bitmap's height in pixels.
func (b *Bitmap) Height() int { return b.h }

// PixelCount returns W*H.
func (b *Bitmap) PixelCount() int { return b.w * b.h }

// Data returns the raw pixel buffer, row-major, one Color per pixel.
// Mutating it mutates the bitmap directly.
func (b *Bitmap) Data() []Color { return b.pix }

// Config returns the switches this bitmap was created with.
func (b *Bitmap) Config() Config { return b.cfg }

// SetClip sets the clipping rectangle, clamped to the bitmap bounds and
// normalized so X0<X1, Y0<Y1 (spec.md §3 invariant).
func (b *Bitmap) SetClip(x0, y0, x1, y1 int) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > b.w {
		x1 = b.w
	}
	if y1 > b.h {
		y1 = b.h
	}
	if x0 >= x1 || y0 >= y1 {
		b.clip = Rect{0, 0, b.w, b.h}
		return
	}
	b.clip = Rect{x0, y0, x1, y1}
}

// Clip returns the current clipping rectangle.
func (b *Bitmap) Clip() Rect { return b.clip }

// Pen returns the current pen (drawing) colour.
func (b *Bitmap) Pen() Color { return b.pen }

// SetPen sets the current pen colour.
func (b *Bitmap) SetPen(c Color) { b.pen = c }

// Get returns the pixel at (x,y), or 0 if out of bounds.
func (b *Bitmap) Get(x, y int) Color {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return 0
	}
	return b.pix[y*b.w+x]
}

// Set writes c at (x,y), or is a no-op if (x,y) is out of bounds. Unlike
// the pen-based drawing primitives (Fill and friends), Set ignores the
// clip rectangle entirely, matching the reference implementation's
// unconditional bm_set/BM_SET — clipping is only a property of
// bm_putpixel and the drawing primitives built on it.
func (b *Bitmap) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	b.pix[y*b.w+x] = c
}

// Clear fills every pixel (ignoring clip) with the current pen colour.
func (b *Bitmap) Clear() {
	for i := range b.pix {
		b.pix[i] = b.pen
	}
}

// Fill fills the clip rectangle with the current pen colour.
func (b *Bitmap) Fill() {
	for y := b.clip.Y0; y < b.clip.Y1; y++ {
		row := b.pix[y*b.w : y*b.w+b.w]
		for x := b.clip.X0; x < b.clip.X1; x++ {
			row[x] = b.pen
		}
	}
}

// Copy returns a new, owned Bitmap with identical pixels, clip, pen and
// (if present) palette (palette is retained, not deep-copied, matching
// the reference counted sharing model of spec.md §3).
func (b *Bitmap) Copy() *Bitmap {
	out := &Bitmap{
		w:     b.w,
		h:     b.h,
		pix:   append([]Color(nil), b.pix...),
		clip:  b.clip,
		pen:   b.pen,
		owned: true,
		cfg:   b.cfg,
	}
	if b.pal != nil {
		out.SetPalette(b.pal)
	}
	return out
}

// Crop returns a new, owned Bitmap containing the sub-rectangle
// [x0,y0)-[x1,y1) of b.
func (b *Bitmap) Crop(x0, y0, x1, y1 int) (*Bitmap, error) {
	if x0 < 0 || y0 < 0 || x1 > b.w || y1 > b.h || x0 >= x1 || y0 >= y1 {
		return nil, newErr("", "crop", KindInvalid, fmt.Errorf("invalid crop rect (%d,%d)-(%d,%d) on %dx%d", x0, y0, x1, y1, b.w, b.h))
	}
	cw, ch := x1-x0, y1-y0
	out, err := NewWithConfig(cw, ch, b.cfg)
	if err != nil {
		return nil, err
	}
	for y := 0; y < ch; y++ {
		copy(out.pix[y*cw:y*cw+cw], b.pix[(y+y0)*b.w+x0:(y+y0)*b.w+x0+cw])
	}
	if b.pal != nil {
		out.SetPalette(b.pal)
	}
	return out, nil
}

// Palette returns the attached palette, or nil.
func (b *Bitmap) Palette() *Palette { return b.pal }

// SetPalette attaches p to b, retaining it; any previously attached
// palette is released. Passing nil detaches.
func (b *Bitmap) SetPalette(p *Palette) {
	if b.pal == p {
		return
	}
	if b.pal != nil {
		b.pal.Release()
	}
	b.pal = p
	if p != nil {
		p.Retain()
	}
}

// Retain increments the bitmap's reference count, promoting it to
// refcount-managed ownership if it was at 0.
func (b *Bitmap) Retain() *Bitmap {
	b.refs++
	return b
}

// Release decrements the reference count; at 0 it frees the bitmap.
// Calling Release on a Bitmap never Retain'd is equivalent to Free.
func (b *Bitmap) Release() {
	if b.refs > 0 {
		b.refs--
	}
	if b.refs <= 0 {
		b.Free()
	}
}

// Free releases the attached palette (if any) and, for an owned
// bitmap, its pixel buffer. Safe to call more than once.
func (b *Bitmap) Free() {
	if b.pal != nil {
		b.pal.Release()
		b.pal = nil
	}
	if b.owned {
		b.pix = nil
	}
}
