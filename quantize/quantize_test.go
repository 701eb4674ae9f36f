package quantize

import (
	"math/rand"
	"testing"

	bm "github.com/wernsey/bitmap"
	"github.com/stretchr/testify/require"
)

func gradient(t *testing.T, w, h int) *bm.Bitmap {
	t.Helper()
	b, err := bm.New(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			b.Set(x, y, bm.RGB32(v, v, v))
		}
	}
	return b
}

func TestMedianCutPowerOfTwoRequired(t *testing.T) {
	b := gradient(t, 8, 8)
	_, err := MedianCut(b, 3)
	require.Error(t, err)
}

func TestMedianCutColorCount(t *testing.T) {
	b := gradient(t, 16, 16)
	pal, err := MedianCut(b, 8)
	require.NoError(t, err)
	require.Equal(t, 8, pal.Count())
}

func TestMedianCutRejectsOutOfRangeN(t *testing.T) {
	b := gradient(t, 4, 4)
	_, err := MedianCut(b, 1)
	require.Error(t, err)
	_, err = MedianCut(b, 512)
	require.Error(t, err)
}

func TestKMeansColorCount(t *testing.T) {
	b := gradient(t, 16, 16)
	pal, err := KMeans(b, 4)
	require.NoError(t, err)
	require.LessOrEqual(t, pal.Count(), 4)
	require.Greater(t, pal.Count(), 0)
}

func TestUniformSampling(t *testing.T) {
	b := gradient(t, 32, 1)
	pal, err := Uniform(b, 4)
	require.NoError(t, err)
	require.Equal(t, 4, pal.Count())
	// first and last sample should be the gradient endpoints
	require.Equal(t, bm.RGB32(0, 0, 0), pal.Get(0))
	require.Equal(t, bm.RGB32(255, 255, 255), pal.Get(3))
}

func TestRandomDeterministicWithSeed(t *testing.T) {
	b := gradient(t, 16, 16)
	p1, err := Random(b, 4, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	p2, err := Random(b, 4, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Equal(t, p1.Colors(), p2.Colors())
}

func TestMakePaletteExactWhenFewColors(t *testing.T) {
	b, err := bm.New(2, 2)
	require.NoError(t, err)
	b.Set(0, 0, bm.RGB32(1, 1, 1))
	b.Set(1, 0, bm.RGB32(2, 2, 2))
	b.Set(0, 1, bm.RGB32(1, 1, 1))
	b.Set(1, 1, bm.RGB32(3, 3, 3))

	pal, err := MakePalette(b)
	require.NoError(t, err)
	require.Equal(t, 3, pal.Count(), "exact palette must only contain distinct colors")
}

func TestMakePaletteFallsBackWhenManyColors(t *testing.T) {
	// 300 distinct colours: (x, 0, 0) for x < 256, then (x-256, 1, 0).
	b, err := bm.New(300, 1)
	require.NoError(t, err)
	for x := 0; x < 300; x++ {
		b.Set(x, 0, bm.RGB32(uint8(x), uint8(x>>8), 0))
	}
	pal, err := MakePalette(b)
	require.NoError(t, err)
	require.Equal(t, MaxColors, pal.Count())
}
