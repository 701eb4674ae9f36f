// Package breader is the capability-trait replacement for the
// function-pointer byte reader of spec.md §4.1/§9: a uniform
// read/seek/tell surface that every codec consumes, with concrete
// file-backed, memory-backed and user-supplied implementations. Codecs
// are written against the Reader interface only, so a memory-backed
// adversarial buffer can fuzz them without touching disk.
package breader

import (
	"io"
)

// Reader is the uniform byte-source interface every codec decodes
// through. A short Read or a failing Seek is treated as fatal by
// callers: codecs abort the current decode rather than attempting
// partial recovery (spec.md §4.1, §7).
type Reader interface {
	Read(dst []byte) (int, error)
	Tell() int64
	Seek(offset int64, whence int) (int64, error)
}

// ReadFull reads exactly len(dst) bytes from r, returning
// io.ErrUnexpectedEOF (unwrapped) on a short read — the "truncated input"
// case of spec.md §7.
func ReadFull(r Reader, dst []byte) error {
	n, err := r.Read(dst)
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(dst) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// ReadByte reads a single byte.
func ReadByte(r Reader) (byte, error) {
	var buf [1]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// fileReader wraps any io.ReadSeeker as a Reader (covers both real
// *os.File handles and the "user-supplied stream" case of spec.md
// §4.1 — any caller type that already satisfies io.ReadSeeker).
type fileReader struct {
	rs  io.ReadSeeker
	pos int64
}

// NewFile wraps a file (or anything io.ReadSeeker) for file-backed decoding.
func NewFile(rs io.ReadSeeker) Reader {
	return &fileReader{rs: rs}
}

// NewUser wraps a caller-supplied io.ReadSeeker; semantically identical
// to NewFile but named separately to mirror the three concrete
// implementations spec.md §4.1 calls for.
func NewUser(rs io.ReadSeeker) Reader {
	return &fileReader{rs: rs}
}

func (f *fileReader) Read(dst []byte) (int, error) {
	n, err := f.rs.Read(dst)
	f.pos += int64(n)
	return n, err
}

func (f *fileReader) Tell() int64 { return f.pos }

func (f *fileReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := f.rs.Seek(offset, whence)
	if err == nil {
		f.pos = pos
	}
	return pos, err
}

// memReader is a memory-backed Reader with explicit position and
// length, per spec.md §4.1.
type memReader struct {
	buf []byte
	pos int64
}

// NewMemory wraps an in-memory buffer for memory-backed decoding.
func NewMemory(buf []byte) Reader {
	return &memReader{buf: buf}
}

func (m *memReader) Read(dst []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(dst, m.buf[m.pos:])
	m.pos += int64(n)
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memReader) Tell() int64 { return m.pos }

func (m *memReader) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = m.pos + offset
	case io.SeekEnd:
		newPos = int64(len(m.buf)) + offset
	default:
		return m.pos, io.ErrUnexpectedEOF
	}
	if newPos < 0 {
		return m.pos, io.ErrUnexpectedEOF
	}
	m.pos = newPos
	return m.pos, nil
}

// Len returns the remaining number of bytes available to read, when
// the underlying reader exposes that (memory-backed readers only).
func Len(r Reader) (int64, bool) {
	m, ok := r.(*memReader)
	if !ok {
		return 0, false
	}
	return int64(len(m.buf)) - m.pos, true
}
