package bitmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtOf(t *testing.T) {
	require.Equal(t, ".gif", extOf("foo/bar.gif"))
	require.Equal(t, "", extOf("foo/bar"))
	require.Equal(t, "", extOf("foo.bar/baz"))
}

func TestFormatForExtUnknown(t *testing.T) {
	require.Nil(t, formatForExt("made-up-extension"))
}

func TestSaveFailsWithoutRegisteredCodec(t *testing.T) {
	// bitmap_e2e_test.go links every codec into this test binary, so the
	// registry is emptied for the duration of this test: Save with no
	// codec (and so no bmp fallback) registered must fail gracefully
	// rather than panic.
	saved := registry
	registry = nil
	defer func() { registry = saved }()
	b, err := New(2, 2)
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bmp")
	err = Save(b, path)
	require.Error(t, err, "no codec registered in this test binary")
}

func TestRegisteredFormatsHaveNames(t *testing.T) {
	// This package alone registers nothing; codecs self-register via
	// their own init(). Whatever is registered in this binary must carry
	// a non-empty name.
	for _, name := range RegisteredFormats() {
		require.NotEmpty(t, name)
	}
}
