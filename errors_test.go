package bitmap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := newErr("gif", "decode header", KindInvalid, inner)
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "gif")
	require.Contains(t, err.Error(), "decode header")
}

func TestCodecErrorAs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newErr("bmp", "read", KindTruncated, errors.New("eof")))
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindTruncated, ce.Kind)
	require.Equal(t, "bmp", ce.Format)
}

func TestLastErrorState(t *testing.T) {
	ClearError()
	require.Equal(t, "", GetError())

	setLastError(newErr("pcx", "decode", KindInvalid, errors.New("bad header")))
	require.NotEqual(t, "", GetError())

	ClearError()
	require.Equal(t, "", GetError())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "truncated input", KindTruncated.String())
	require.Equal(t, "unknown", Kind(99).String())
}
