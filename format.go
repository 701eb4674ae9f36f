package bitmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/wernsey/bitmap/internal/breader"
)

// Format is the registration record a codec package provides to
// RegisterFormat, the Go-idiomatic replacement for spec.md §4.2's
// magic-byte/extension dispatch table — structurally the same pattern
// as the teacher's factory.RegisterGenerator, except keyed by a Sniff
// predicate for loads and by extension for saves, rather than a single
// enum value.
type Format struct {
	// Name identifies the format ("bmp", "gif", "pcx", "tga", and "pbm",
	// "pgm", "ppm" for the three Netpbm variants).
	Name string
	// Sniff reports whether the first 4 bytes of a stream identify this
	// format. The TGA codec registers a nil Sniff and opts in via
	// IsHeuristic instead, per spec.md §4.2's "otherwise, run the TGA
	// heuristic" fallback.
	Sniff func(magic [4]byte) bool
	// IsHeuristic marks a format (TGA) that is only tried when every
	// other Sniff fails.
	IsHeuristic bool
	// Decode reads a bitmap from r.
	Decode func(r breader.Reader, cfg Config) (*Bitmap, error)
	// Encode writes b to w.
	Encode func(w io.Writer, b *Bitmap, cfg Config) error
	// Exts are the lowercase file extensions (without the dot) that
	// select this format for Save.
	Exts []string
}

var registry []Format

// RegisterFormat adds f to the dispatch table. Called from each codec
// package's init(), mirroring the teacher's
// factory.RegisterGenerator-from-init() pattern.
func RegisterFormat(f Format) {
	for i, existing := range registry {
		if existing.Name == f.Name {
			log.Printf("bitmap: duplicate format registration for %q, overwriting", f.Name)
			registry[i] = f
			return
		}
	}
	registry = append(registry, f)
}

// RegisteredFormats returns the names of every registered format.
func RegisteredFormats() []string {
	names := make([]string, len(registry))
	for i, f := range registry {
		names[i] = f.Name
	}
	return names
}

func sniff(r breader.Reader) ([4]byte, error) {
	var magic [4]byte
	n, _ := r.Read(magic[:])
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return magic, newErr("", "sniff", KindIO, err)
	}
	if n < 4 {
		// Some formats (PCX) only need 1 byte; a short file is only
		// truncated if no registered format can sniff fewer bytes, so
		// leave the decision to the per-format Sniff functions.
	}
	return magic, nil
}

func dispatchLoad(r breader.Reader, cfg Config) (*Bitmap, error) {
	magic, err := sniff(r)
	if err != nil {
		return nil, err
	}
	for _, f := range registry {
		if f.IsHeuristic || f.Sniff == nil {
			continue
		}
		if f.Sniff(magic) {
			b, err := f.Decode(r, cfg)
			if err != nil {
				return nil, newErr(f.Name, "decode", kindOf(err), err)
			}
			return b, nil
		}
	}
	for _, f := range registry {
		if !f.IsHeuristic {
			continue
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, newErr(f.Name, "seek", KindIO, err)
		}
		b, err := f.Decode(r, cfg)
		if err == nil {
			return b, nil
		}
	}
	return nil, newErr("", "decode", KindUnsupported, fmt.Errorf("unrecognized image format (magic %v)", magic))
}

// kindOf classifies err for the taxonomy of spec.md §7. Codec packages
// live outside this package and can only return plain fmt.Errorf(...:
// %w, err)-wrapped errors (they have no way to construct a
// *CodecError), so a *CodecError match is only the first of several
// checks: a short read surfaces as io.ErrUnexpectedEOF (set by
// internal/breader.ReadFull) however deep it's wrapped, and a failing
// open/seek/read against a real file surfaces as an *os.PathError. Both
// are detected with errors.As/errors.Is through the whole wrap chain,
// not a direct type assertion, so they're recognized no matter how
// many layers of "op: %w" a codec added on top.
func kindOf(err error) Kind {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindTruncated
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return KindIO
	}
	return KindInvalid
}

func formatForExt(ext string) *Format {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for i := range registry {
		for _, e := range registry[i].Exts {
			if e == ext {
				return &registry[i]
			}
		}
	}
	return nil
}

// Load reads a Bitmap from path, sniffing the format from its content
// per spec.md §4.2.
func Load(path string) (*Bitmap, error) {
	return LoadWithConfig(path, DefaultConfig)
}

// LoadWithConfig is Load with explicit switches.
func LoadWithConfig(path string, cfg Config) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		e := newErr("", "open", KindIO, err)
		setLastError(e)
		return nil, e
	}
	defer f.Close()
	b, err := DecodeWithConfig(breader.NewFile(f), cfg)
	if err != nil {
		setLastError(err)
	}
	return b, err
}

// Decode reads a Bitmap from an in-memory buffer, sniffing the format.
func Decode(data []byte) (*Bitmap, error) {
	return DecodeWithConfig(breader.NewMemory(data), DefaultConfig)
}

// DecodeWithConfig reads a Bitmap from any breader.Reader.
func DecodeWithConfig(r breader.Reader, cfg Config) (*Bitmap, error) {
	return dispatchLoad(r, cfg.normalized())
}

// Save writes b to path, picking the codec by path's extension;
// unknown extensions default to BMP, per spec.md §4.2.
func Save(b *Bitmap, path string) error {
	return SaveWithConfig(b, path, DefaultConfig)
}

// SaveWithConfig is Save with explicit switches.
func SaveWithConfig(b *Bitmap, path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		e := newErr("", "create", KindIO, err)
		setLastError(e)
		return e
	}
	defer f.Close()

	ext := strings.TrimPrefix(strings.ToLower(extOf(path)), ".")
	err = EncodeExtWithConfig(f, b, ext, cfg)
	if err != nil {
		setLastError(err)
	}
	return err
}

// EncodeExt writes b to w using the codec registered for ext
// ("bmp", "gif", ...), defaulting to BMP for an unrecognized extension.
func EncodeExt(w io.Writer, b *Bitmap, ext string) error {
	return EncodeExtWithConfig(w, b, ext, DefaultConfig)
}

// EncodeExtWithConfig is EncodeExt with explicit switches.
func EncodeExtWithConfig(w io.Writer, b *Bitmap, ext string, cfg Config) error {
	cfg = cfg.normalized()
	f := formatForExt(ext)
	if f == nil {
		f = formatForExt("bmp")
		if f == nil {
			return newErr("", "encode", KindUnsupported, fmt.Errorf("no codec registered for extension %q, and no bmp fallback registered", ext))
		}
	}
	if err := f.Encode(w, b, cfg); err != nil {
		return newErr(f.Name, "encode", kindOf(err), err)
	}
	return nil
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	slash := strings.LastIndexAny(path, `/\`)
	if i < slash {
		return ""
	}
	return path[i:]
}

// EncodeToBytes is a convenience wrapper around EncodeExt for tests and
// small tools.
func EncodeToBytes(b *Bitmap, ext string) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeExt(&buf, b, ext); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
