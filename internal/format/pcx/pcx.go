// Package pcx implements the PCX codec of spec.md §4.5: a 128-byte
// header, per-plane RLE scanlines, and an optional 256-entry trailing
// palette for single-plane images. Grounded on original_source/bmp.c's
// bm_load_pcx_rd/bm_save_pcx.
package pcx

import (
	"fmt"
	"io"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/dither"
	"github.com/wernsey/bitmap/internal/breader"
	"github.com/wernsey/bitmap/quantize"
)

func init() {
	bm.RegisterFormat(bm.Format{
		Name: "pcx",
		Sniff: func(magic [4]byte) bool {
			return magic[0] == 0x0A
		},
		Decode: Decode,
		Encode: Encode,
		Exts:   []string{"pcx"},
	})
}

const headerSize = 128

type header struct {
	manuf, version, encoding, bpp byte
	xmin, ymin, xmax, ymax        uint16
	vertDPI, horiDPI              uint16
	planes                        byte
	bytesPerLine                  uint16
}

func readHeader(r breader.Reader) (header, error) {
	buf := make([]byte, headerSize)
	if err := breader.ReadFull(r, buf); err != nil {
		return header{}, err
	}
	h := header{
		manuf:        buf[0],
		version:      buf[1],
		encoding:     buf[2],
		bpp:          buf[3],
		xmin:         le16(buf[4:]),
		ymin:         le16(buf[6:]),
		xmax:         le16(buf[8:]),
		ymax:         le16(buf[10:]),
		vertDPI:      le16(buf[12:]),
		horiDPI:      le16(buf[14:]),
		planes:       buf[65],
		bytesPerLine: le16(buf[66:]),
	}
	return h, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// Decode reads a PCX image per spec.md §4.5. Only 8bpp single-plane
// (paletted) and 8bpp 3-plane (RGB) images are supported.
func Decode(r breader.Reader, cfg bm.Config) (*bm.Bitmap, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.manuf != 0x0A {
		return nil, fmt.Errorf("bad PCX signature")
	}
	if hdr.version != 5 || hdr.encoding != 1 || hdr.bpp != 8 || (hdr.planes != 1 && hdr.planes != 3) {
		return nil, fmt.Errorf("unsupported PCX type (version=%d encoding=%d bpp=%d planes=%d)", hdr.version, hdr.encoding, hdr.bpp, hdr.planes)
	}

	var pal *bm.Palette
	if hdr.planes == 1 {
		pos := r.Tell()
		if _, err := r.Seek(-769, io.SeekEnd); err != nil {
			return nil, fmt.Errorf("seek to palette: %w", err)
		}
		marker, err := breader.ReadByte(r)
		if err != nil {
			return nil, fmt.Errorf("read palette marker: %w", err)
		}
		if marker != 12 {
			return nil, fmt.Errorf("bad PCX palette marker 0x%02X", marker)
		}
		rgb := make([]byte, 256*3)
		if err := breader.ReadFull(r, rgb); err != nil {
			return nil, fmt.Errorf("read palette: %w", err)
		}
		pal = bm.NewPalette()
		for i := 0; i < 256; i++ {
			pal.Add(bm.RGB32(rgb[i*3], rgb[i*3+1], rgb[i*3+2]))
		}
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek back to data: %w", err)
		}
	}

	w := int(hdr.xmax) - int(hdr.xmin) + 1
	h := int(hdr.ymax) - int(hdr.ymin) + 1
	b, err := bm.NewWithConfig(w, h, cfg)
	if err != nil {
		return nil, err
	}
	b.SetPalette(pal)

	for y := 0; y < h; y++ {
		for p := 0; p < int(hdr.planes); p++ {
			x := 0
			for x < int(hdr.bytesPerLine) {
				i, err := breader.ReadByte(r)
				if err != nil {
					return nil, fmt.Errorf("read scanline byte: %w", err)
				}
				cnt := 1
				if i&0xC0 == 0xC0 {
					cnt = int(i & 0x3F)
					i, err = breader.ReadByte(r)
					if err != nil {
						return nil, fmt.Errorf("read run value: %w", err)
					}
				}
				for ; cnt > 0; cnt-- {
					if x >= w {
						x++
						continue
					}
					if hdr.planes == 1 {
						b.Set(x, y, pal.Get(int(i)))
					} else {
						c := b.Get(x, y)
						r8, g8, b8 := c.RGB()
						switch p {
						case 0:
							r8 = i
						case 1:
							g8 = i
						case 2:
							b8 = i
						}
						b.Set(x, y, bm.RGB32(r8, g8, b8))
					}
					x++
				}
			}
		}
	}

	return b, nil
}

// Encode writes b per spec.md §4.5: single-plane 8bpp with RLE
// scanlines and a trailing 256-entry palette. b is copied and
// Floyd-Steinberg dithered to its palette before encoding.
func Encode(w io.Writer, b *bm.Bitmap, cfg bm.Config) error {
	pal := b.Palette()
	if pal == nil || pal.Count() == 0 {
		var err error
		pal, err = quantize.MakePalette(b)
		if err != nil {
			return fmt.Errorf("build palette: %w", err)
		}
	}
	if pal.Count() > 256 {
		return fmt.Errorf("too many palette colors to save PCX: %d", pal.Count())
	}
	pal.SetMetric(cfg.Metric)

	bytesPerLine := b.Width()
	if bytesPerLine&1 != 0 {
		bytesPerLine++
	}

	hdr := make([]byte, headerSize)
	hdr[0] = 0x0A
	hdr[1] = 5
	hdr[2] = 1
	hdr[3] = 8
	putLE16(hdr[4:], 0)
	putLE16(hdr[6:], 0)
	putLE16(hdr[8:], uint16(b.Width()-1))
	putLE16(hdr[10:], uint16(b.Height()-1))
	putLE16(hdr[12:], uint16(b.Height()))
	putLE16(hdr[14:], uint16(b.Width()))
	hdr[65] = 1
	putLE16(hdr[66:], uint16(bytesPerLine))
	putLE16(hdr[68:], 1) // paltype
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	work := b.Copy()
	work.SetPalette(pal)
	dither.FloydSteinberg(work, pal)

	for y := 0; y < work.Height(); y++ {
		x := 0
		for x < work.Width() {
			c := work.Get(x, y)
			idx := byte(pal.NearestIndex(c))
			x++
			cnt := 1
			for x < work.Width() && cnt < 63 {
				n := work.Get(x, y)
				if n != c {
					break
				}
				x++
				cnt++
			}
			if cnt == 1 && idx < 192 {
				if _, err := w.Write([]byte{idx}); err != nil {
					return err
				}
			} else {
				if _, err := w.Write([]byte{0xC0 | byte(cnt), idx}); err != nil {
					return err
				}
			}
		}
		for ; x < bytesPerLine; x++ {
			if _, err := w.Write([]byte{0}); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write([]byte{12}); err != nil {
		return fmt.Errorf("write palette marker: %w", err)
	}
	rgb := make([]byte, 256*3)
	for i := 0; i < 256; i++ {
		r8, g8, b8 := pal.Get(i).RGB()
		rgb[i*3], rgb[i*3+1], rgb[i*3+2] = r8, g8, b8
	}
	if _, err := w.Write(rgb); err != nil {
		return fmt.Errorf("write palette: %w", err)
	}
	return nil
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
