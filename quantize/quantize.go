// Package quantize implements spec.md §6's palette-building quantizers:
// median-cut, k-means, uniform-sample and random-sample. Each inspects a
// bitmap's pixels without modifying them and returns a *bitmap.Palette;
// pairing a quantizer's output with a dither package reducer is the
// caller's job, exactly like the original's quantize-then-reduce driver
// programs (original_source/misc/median_cut.c, misc/kmeans.c).
package quantize

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	bm "github.com/wernsey/bitmap"
)

// MaxColors is the largest palette any quantizer in this package will
// build, matching the original's MAX_K.
const MaxColors = 256

func checkN(n int) error {
	if n < 2 || n > MaxColors {
		return fmt.Errorf("quantize: n must be in [2, %d], got %d", MaxColors, n)
	}
	return nil
}

func pixels(b *bm.Bitmap) []bm.Color {
	data := b.Data()
	cp := make([]bm.Color, len(data))
	copy(cp, data)
	return cp
}

// MedianCut builds an n-entry palette with the median-cut algorithm
// (original_source/misc/median_cut.c's quantize/qrecurse): n must be a
// power of two in [2, 256]. At each step the pixel slice is split along
// whichever of R/G/B has the widest spread in that bucket, recursing
// until each bucket collapses to a single averaged color.
func MedianCut(b *bm.Bitmap, n int) (*bm.Palette, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if n&(n-1) != 0 {
		return nil, fmt.Errorf("quantize: n must be a power of two, got %d", n)
	}
	px := pixels(b)
	if len(px) == 0 {
		return nil, fmt.Errorf("quantize: empty bitmap")
	}

	out := make([]bm.Color, 0, n)
	var recurse func(bucket []bm.Color, k int)
	recurse = func(bucket []bm.Color, k int) {
		if k == 1 {
			var sr, sg, sb int
			for _, c := range bucket {
				r, g, b := c.RGB()
				sr += int(r)
				sg += int(g)
				sb += int(b)
			}
			n := len(bucket)
			out = append(out, bm.RGB32(uint8(sr/n), uint8(sg/n), uint8(sb/n)))
			return
		}

		minR, minG, minB := 256, 256, 256
		maxR, maxG, maxB := 0, 0, 0
		for _, c := range bucket {
			r, g, b := c.RGB()
			if int(r) < minR {
				minR = int(r)
			}
			if int(r) > maxR {
				maxR = int(r)
			}
			if int(g) < minG {
				minG = int(g)
			}
			if int(g) > maxG {
				maxG = int(g)
			}
			if int(b) < minB {
				minB = int(b)
			}
			if int(b) > maxB {
				maxB = int(b)
			}
		}
		spreadR, spreadG, spreadB := maxR-minR, maxG-minG, maxB-minB

		var less func(i, j int) bool
		switch {
		case spreadR > spreadG && spreadR > spreadB:
			less = func(i, j int) bool {
				ri, _, _ := bucket[i].RGB()
				rj, _, _ := bucket[j].RGB()
				return ri < rj
			}
		case spreadG > spreadB:
			less = func(i, j int) bool {
				_, gi, _ := bucket[i].RGB()
				_, gj, _ := bucket[j].RGB()
				return gi < gj
			}
		default:
			less = func(i, j int) bool {
				_, _, bi := bucket[i].RGB()
				_, _, bj := bucket[j].RGB()
				return bi < bj
			}
		}
		sort.Slice(bucket, less)

		mid := len(bucket) / 2
		recurse(bucket[:mid], k>>1)
		recurse(bucket[mid:], k>>1)
	}
	recurse(px, n)

	return bm.NewPaletteFrom(out), nil
}

type kmeansBucket struct {
	color bm.Color
	count int
}

const maxKMeansIterations = 128

// KMeans builds a K-entry palette via K-means clustering
// (original_source/bmp.c's bm_quantize_kmeans): buckets are seeded from
// an evenly spaced sample of the sorted pixel list, then iterated until
// no pixel changes bucket or maxKMeansIterations is reached. The result
// may have fewer than K entries if some buckets end up empty.
func KMeans(b *bm.Bitmap, k int) (*bm.Palette, error) {
	if err := checkN(k); err != nil {
		return nil, err
	}
	px := pixels(b)
	np := len(px)
	if np == 0 {
		return nil, fmt.Errorf("quantize: empty bitmap")
	}

	sorted := make([]bm.Color, np)
	copy(sorted, px)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i]&0xFFFFFF < sorted[j]&0xFFFFFF })

	buckets := make([]kmeansBucket, k)
	for i := 0; i < k; i++ {
		x := i * (np - 1) / (k - 1)
		buckets[i].color = sorted[x]
	}

	cat := make([]int, np)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changes := 0
		for j := range buckets {
			buckets[j].count = 0
		}
		for i, c := range px {
			dk := nearestBucket(c, buckets)
			buckets[dk].count++
			if cat[i] != dk {
				changes++
			}
			cat[i] = dk
		}
		if changes == 0 {
			break
		}

		sumR := make([]int, k)
		sumG := make([]int, k)
		sumB := make([]int, k)
		counts := make([]int, k)
		for i, c := range px {
			r, g, b := c.RGB()
			j := cat[i]
			sumR[j] += int(r)
			sumG[j] += int(g)
			sumB[j] += int(b)
			counts[j]++
		}
		for j := 0; j < k; j++ {
			buckets[j].count = counts[j]
			if counts[j] == 0 {
				continue
			}
			buckets[j].color = bm.RGB32(uint8(sumR[j]/counts[j]), uint8(sumG[j]/counts[j]), uint8(sumB[j]/counts[j]))
		}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })
	for k > 0 && buckets[k-1].count == 0 {
		k--
	}

	out := make([]bm.Color, k)
	for i := 0; i < k; i++ {
		out[i] = buckets[i].color
	}
	return bm.NewPaletteFrom(out), nil
}

func nearestBucket(c bm.Color, buckets []kmeansBucket) int {
	r, g, b := c.RGB()
	minD, dk := int(^uint(0)>>1), 0
	for k, bucket := range buckets {
		pr, pg, pb := bucket.color.RGB()
		dr := int(r) - int(pr)
		dg := int(g) - int(pg)
		db := int(b) - int(pb)
		d := dr*dr + dg*dg + db*db
		if d < minD {
			minD = d
			dk = k
		}
	}
	return dk
}

// Uniform builds an n-entry palette by sorting every pixel by RGB value
// and sampling n evenly spaced entries from the sorted list
// (original_source/bmp.c's bm_quantize_uniform).
func Uniform(b *bm.Bitmap, n int) (*bm.Palette, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	px := pixels(b)
	np := len(px)
	if np == 0 {
		return nil, fmt.Errorf("quantize: empty bitmap")
	}
	sort.Slice(px, func(i, j int) bool { return px[i]&0xFFFFFF < px[j]&0xFFFFFF })

	out := make([]bm.Color, n)
	for i := 0; i < n; i++ {
		x := i * (np - 1) / (n - 1)
		out[i] = px[x]
	}
	return bm.NewPaletteFrom(out), nil
}

// Random builds an n-entry palette by sampling n random pixels
// (original_source/bmp.c's bm_quantize_random). The sampling uses rng
// if non-nil, otherwise a package-local source seeded from the current
// time is used — callers that need reproducible output should always
// pass an explicit rng.
func Random(b *bm.Bitmap, n int, rng *rand.Rand) (*bm.Palette, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	px := b.Data()
	np := len(px)
	if np == 0 {
		return nil, fmt.Errorf("quantize: empty bitmap")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	out := make([]bm.Color, n)
	for i := 0; i < n; i++ {
		out[i] = px[rng.Intn(np)]
	}
	return bm.NewPaletteFrom(out), nil
}

// MakePalette builds an exact palette if the bitmap has at most 256
// distinct colors (ignoring alpha), falling back to Uniform(b, 256)
// otherwise — the automatic "give this bitmap a palette" behavior used
// by the GIF writer (spec.md §4.4, original_source/bmp.c's
// bm_make_palette / count_colors_build_palette).
func MakePalette(b *bm.Bitmap) (*bm.Palette, error) {
	px := pixels(b)
	if len(px) == 0 {
		return nil, fmt.Errorf("quantize: empty bitmap")
	}
	sort.Slice(px, func(i, j int) bool { return px[i]&0xFFFFFF < px[j]&0xFFFFFF })

	colors := make([]bm.Color, 0, MaxColors)
	colors = append(colors, px[0]&0xFFFFFF)
	for _, c := range px[1:] {
		c &= 0xFFFFFF
		if c != colors[len(colors)-1] {
			if len(colors) == MaxColors {
				return Uniform(b, MaxColors)
			}
			colors = append(colors, c)
		}
	}
	return bm.NewPaletteFrom(colors), nil
}
