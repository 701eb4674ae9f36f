package gif

import (
	"bytes"
	"testing"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/internal/breader"
	"github.com/stretchr/testify/require"
)

func checkerboard(t *testing.T, w, h int) *bm.Bitmap {
	t.Helper()
	b, err := bm.New(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				b.Set(x, y, bm.RGB32(255, 255, 255))
			} else {
				b.Set(x, y, bm.RGB32(0, 0, 0))
			}
		}
	}
	return b
}

func TestEncodeDecodeRoundTripCheckerboard(t *testing.T) {
	b := checkerboard(t, 8, 8)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b, bm.DefaultConfig))
	require.Equal(t, "GIF89a", string(buf.Bytes()[:6]))

	got, err := Decode(breader.NewMemory(buf.Bytes()), bm.DefaultConfig)
	require.NoError(t, err)
	require.Equal(t, 8, got.Width())
	require.Equal(t, 8, got.Height())
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := b.Get(x, y)
			require.Equal(t, want.RGB24(), got.Get(x, y).RGB24(), "pixel (%d,%d)", x, y)
		}
	}
}

func TestEncodeDecodeRoundTripSolidColor(t *testing.T) {
	b, err := bm.New(4, 4)
	require.NoError(t, err)
	b.SetPen(bm.RGB32(10, 20, 30))
	b.Clear()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, b, bm.DefaultConfig))
	got, err := Decode(breader.NewMemory(buf.Bytes()), bm.DefaultConfig)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, bm.RGB32(10, 20, 30), got.Get(x, y))
		}
	}
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := Decode(breader.NewMemory([]byte("NOTGIF89a.......")), bm.DefaultConfig)
	require.Error(t, err)
}

func TestInterlacedRowOrder(t *testing.T) {
	rows := interlacedRows(8)
	require.Len(t, rows, 8)
	require.Equal(t, []int{0, 4, 2, 6, 1, 3, 5, 7}, rows)
}

func TestSequentialRowOrder(t *testing.T) {
	require.Equal(t, []int{0, 1, 2, 3}, sequentialRows(4))
}

func TestGctSizeBrackets(t *testing.T) {
	size, code := gctSizeFor(2)
	require.Equal(t, 2, size)
	require.Equal(t, 3, code)

	size, code = gctSizeFor(200)
	require.Equal(t, 7, size)
	require.Equal(t, 8, code)
}

func TestReadColorTable(t *testing.T) {
	data := []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0}
	pal, err := readColorTable(breader.NewMemory(data), 1) // size=1 -> 4 entries
	require.NoError(t, err)
	require.Equal(t, 4, pal.Count())
	require.Equal(t, bm.RGB32(255, 0, 0), pal.Get(0))
	require.Equal(t, bm.RGB32(0, 255, 0), pal.Get(1))
	require.Equal(t, bm.RGB32(0, 0, 255), pal.Get(2))
}
