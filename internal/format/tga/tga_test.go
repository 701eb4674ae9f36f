package tga

import (
	"bytes"
	"testing"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/internal/breader"
	"github.com/stretchr/testify/require"
)

func gradientBitmap(t *testing.T, w, h int) *bm.Bitmap {
	t.Helper()
	b, err := bm.New(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, bm.RGB32(uint8(x*30), uint8(y*30), 128))
		}
	}
	return b
}

func TestEncodeDecodeRoundTripNoRLE(t *testing.T) {
	b := gradientBitmap(t, 5, 3)
	cfg := bm.DefaultConfig
	cfg.TGARLE = false

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b, cfg))

	got, err := Decode(breader.NewMemory(buf.Bytes()), cfg)
	require.NoError(t, err)
	require.Equal(t, 5, got.Width())
	require.Equal(t, 3, got.Height())
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			require.Equal(t, b.Get(x, y), got.Get(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestEncodeDecodeRoundTripRLE(t *testing.T) {
	b, err := bm.New(6, 2)
	require.NoError(t, err)
	b.SetPen(bm.RGB32(9, 9, 9))
	b.Fill()
	b.Set(3, 0, bm.RGB32(1, 2, 3))

	cfg := bm.DefaultConfig
	cfg.TGARLE = true

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b, cfg))
	got, err := Decode(breader.NewMemory(buf.Bytes()), cfg)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 6; x++ {
			require.Equal(t, b.Get(x, y), got.Get(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestBottomUpByteOrder(t *testing.T) {
	// Encoder always writes bottom-up; the first row in the file must be
	// the bitmap's last scanline.
	b, err := bm.New(1, 2)
	require.NoError(t, err)
	b.Set(0, 0, bm.RGB32(255, 0, 0))
	b.Set(0, 1, bm.RGB32(0, 255, 0))

	cfg := bm.DefaultConfig
	cfg.TGARLE = false
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b, cfg))

	pixelData := buf.Bytes()[18:]
	require.Equal(t, []byte{0, 255, 0}, pixelData[:3], "first row on disk is the bitmap's bottom row (BGR)")
}

func TestLooksLikeTGARejectsGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xFF}, 18)
	require.False(t, looksLikeTGA(breader.NewMemory(garbage)))
}

func TestDecodeEmptyImage(t *testing.T) {
	hdr := make([]byte, 18)
	hdr[2] = 0 // imgType 0: no image data
	putLE16(hdr[12:], 4)
	putLE16(hdr[14:], 4)
	hdr[16] = 24

	got, err := Decode(breader.NewMemory(hdr), bm.DefaultConfig)
	require.NoError(t, err)
	require.Equal(t, 4, got.Width())
	require.Equal(t, 4, got.Height())
}
