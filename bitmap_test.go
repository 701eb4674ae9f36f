package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndBasics(t *testing.T) {
	b, err := New(4, 3)
	require.NoError(t, err)
	require.Equal(t, 4, b.Width())
	require.Equal(t, 3, b.Height())
	require.Equal(t, 12, b.PixelCount())
	require.Equal(t, Rect{0, 0, 4, 3}, b.Clip())
}

func TestNewRejectsBadDimensions(t *testing.T) {
	_, err := New(0, 5)
	require.Error(t, err)
	_, err = New(5, -1)
	require.Error(t, err)
}

func TestNewRejectsOverLimit(t *testing.T) {
	_, err := NewWithConfig(100, 100, Config{MaxDimension: 10})
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindResourceExhausted, ce.Kind)
}

func TestFillRespectsClip(t *testing.T) {
	b, err := New(4, 4)
	require.NoError(t, err)
	b.SetClip(1, 1, 3, 3)
	b.SetPen(RGB32(255, 0, 0))
	b.Fill()
	require.Equal(t, Color(0), b.Get(0, 0))
	require.Equal(t, RGB32(255, 0, 0), b.Get(1, 1))
	require.Equal(t, Color(0), b.Get(3, 3))
}

func TestSetIgnoresClip(t *testing.T) {
	b, err := New(4, 4)
	require.NoError(t, err)
	b.SetClip(1, 1, 3, 3)

	b.Set(0, 0, RGB32(0, 255, 0))
	require.Equal(t, RGB32(0, 255, 0), b.Get(0, 0), "Set must write outside the clip rect, matching bm_set's unconditional write")
}

func TestSetOutOfBoundsIsDropped(t *testing.T) {
	b, err := New(4, 4)
	require.NoError(t, err)
	b.Set(-1, 0, RGB32(1, 2, 3))
	b.Set(0, 10, RGB32(1, 2, 3))
	require.Equal(t, Color(0), b.Get(0, 0))
}

func TestClearIgnoresClip(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)
	b.SetClip(0, 0, 1, 1)
	b.SetPen(RGB32(10, 20, 30))
	b.Clear()
	require.Equal(t, RGB32(10, 20, 30), b.Get(1, 1))
}

func TestCopyIsIndependent(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)
	b.Set(0, 0, RGB32(1, 2, 3))
	cp := b.Copy()
	cp.Set(0, 0, RGB32(9, 9, 9))
	require.Equal(t, RGB32(1, 2, 3), b.Get(0, 0))
	require.Equal(t, RGB32(9, 9, 9), cp.Get(0, 0))
}

func TestCrop(t *testing.T) {
	b, err := New(4, 4)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			b.Set(x, y, RGB32(uint8(x), uint8(y), 0))
		}
	}
	c, err := b.Crop(1, 1, 3, 3)
	require.NoError(t, err)
	require.Equal(t, 2, c.Width())
	require.Equal(t, RGB32(1, 1, 0), c.Get(0, 0))
	require.Equal(t, RGB32(2, 2, 0), c.Get(1, 1))
}

func TestCropRejectsInvalidRect(t *testing.T) {
	b, err := New(4, 4)
	require.NoError(t, err)
	_, err = b.Crop(2, 2, 1, 1)
	require.Error(t, err)
	_, err = b.Crop(0, 0, 5, 5)
	require.Error(t, err)
}

func TestBindAndUnbind(t *testing.T) {
	buf := make([]Color, 6)
	b, err := Bind(3, 2, buf)
	require.NoError(t, err)
	b.Set(0, 0, RGB32(1, 2, 3))
	require.Equal(t, RGB32(1, 2, 3), buf[0], "Bind must share the buffer, not copy it")

	out := b.Unbind()
	require.Equal(t, buf, out)
	require.Equal(t, 0, b.Width())
}

func TestUnbindPanicsOnOwnedBitmap(t *testing.T) {
	b, err := New(2, 2)
	require.NoError(t, err)
	require.Panics(t, func() { b.Unbind() })
}

func TestPaletteRetainRelease(t *testing.T) {
	b, err := New(1, 1)
	require.NoError(t, err)
	p := NewPaletteFrom([]Color{RGB32(1, 2, 3)})
	b.SetPalette(p)
	require.Equal(t, p, b.Palette())
	b.Release()
}
