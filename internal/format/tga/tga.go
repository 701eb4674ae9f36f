// Package tga implements the TGA codec of spec.md §4.6: an 18-byte
// header, no magic number (TGA is detected heuristically), optional
// colour-mapped/true-colour/grayscale pixel formats at 8/15/16/24/32
// bpp, optional RLE, and a bottom-up-by-default origin. Grounded on
// original_source/bmp.c's is_tga_file/bm_load_tga_rd/bm_save_tga.
package tga

import (
	"fmt"
	"io"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/internal/breader"
)

func init() {
	bm.RegisterFormat(bm.Format{
		Name:        "tga",
		IsHeuristic: true,
		Decode:      Decode,
		Encode:      Encode,
		Exts:        []string{"tga"},
	})
}

type header struct {
	idLength, mapType, imgType byte
	mapIndex, mapLength        uint16
	mapEntrySize               byte
	xo, yo, w, h               uint16
	bpp, imgDesc               byte
}

func readHeader(r breader.Reader) (header, error) {
	buf := make([]byte, 18)
	if err := breader.ReadFull(r, buf); err != nil {
		return header{}, err
	}
	return header{
		idLength:     buf[0],
		mapType:      buf[1],
		imgType:      buf[2],
		mapIndex:     le16(buf[3:]),
		mapLength:    le16(buf[5:]),
		mapEntrySize: buf[7],
		xo:           le16(buf[8:]),
		yo:           le16(buf[10:]),
		w:            le16(buf[12:]),
		h:            le16(buf[14:]),
		bpp:          buf[16],
		imgDesc:      buf[17],
	}, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

var validImgTypes = [...]byte{0, 1, 2, 3, 9, 10, 11}

func validBpp(bpp byte) bool {
	switch bpp {
	case 8, 15, 16, 24, 32:
		return true
	}
	return false
}

// looksLikeTGA is the heuristic sniff: there's no magic number, so we
// validate every header field instead (original_source/bmp.c's
// is_tga_file).
func looksLikeTGA(r breader.Reader) bool {
	start := r.Tell()
	defer r.Seek(start, io.SeekStart)

	hdr, err := readHeader(r)
	if err != nil {
		return false
	}
	if hdr.mapType != 0 && hdr.mapType != 1 {
		return false
	}
	ok := false
	for _, t := range validImgTypes {
		if hdr.imgType == t {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	if hdr.mapType != 0 {
		return validBpp(hdr.mapEntrySize)
	}
	return validBpp(hdr.bpp)
}

// Decode reads a TGA image per spec.md §4.6. It is only ever invoked
// heuristically (IsHeuristic), so it re-validates the header itself.
func Decode(r breader.Reader, cfg bm.Config) (*bm.Bitmap, error) {
	if !looksLikeTGA(r) {
		return nil, fmt.Errorf("does not look like a TGA file")
	}
	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if hdr.imgType == 0 {
		return bm.NewWithConfig(int(hdr.w), int(hdr.h), cfg)
	}

	if hdr.idLength > 0 {
		if _, err := r.Seek(int64(hdr.idLength), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("skip id field: %w", err)
		}
	}

	b, err := bm.NewWithConfig(int(hdr.w), int(hdr.h), cfg)
	if err != nil {
		return nil, err
	}

	var colorMap []byte
	if hdr.mapType != 0 {
		colorMap = make([]byte, int(hdr.mapLength)*int(hdr.mapEntrySize)/8)
		if err := breader.ReadFull(r, colorMap); err != nil {
			return nil, fmt.Errorf("read color map: %w", err)
		}
	}

	np := int(hdr.w) * int(hdr.h)
	rle := hdr.imgType&0x08 != 0
	var bytes [4]byte

	i := 0
	for i < np {
		nreps := 1
		var ctrl byte
		if rle {
			ctrl, err = breader.ReadByte(r)
			if err != nil {
				return nil, fmt.Errorf("read RLE control byte: %w", err)
			}
			nreps = int(ctrl&0x7F) + 1
		} else {
			nreps = np - i
			if nreps > 255 {
				nreps = 255
			}
		}

		for j := 0; j < nreps; j++ {
			y := i / int(hdr.w)
			x := i % int(hdr.w)
			if hdr.imgDesc&0x20 == 0 {
				y = int(hdr.h) - 1 - y
			}

			if !rle || ctrl&0x80 == 0 || j == 0 {
				n := int(hdr.bpp) / 8
				if err := breader.ReadFull(r, bytes[:n]); err != nil {
					return nil, fmt.Errorf("read pixel data: %w", err)
				}
			}
			c, err := decodePixel(bytes[:], hdr, colorMap)
			if err != nil {
				return nil, err
			}
			b.Set(x, y, c)
			i++
		}
	}
	return b, nil
}

func decodePixel(bytes []byte, hdr header, colorMap []byte) (bm.Color, error) {
	bpp := int(hdr.bpp)
	kind := hdr.imgType & 0x07
	if kind == 1 {
		if hdr.bpp != 8 || colorMap == nil {
			return 0, fmt.Errorf("paletted TGA requires 8bpp indices and a color map")
		}
		index := int(bytes[0])
		bpp = int(hdr.mapEntrySize)
		off := index*bpp/8 - int(hdr.mapIndex)
		if off < 0 || off+bpp/8 > len(colorMap) {
			return 0, fmt.Errorf("color map index out of range")
		}
		bytes = colorMap[off:]
		kind = 2
	}

	switch kind {
	case 2:
		switch bpp {
		case 15, 16:
			c16 := uint16(bytes[1])<<8 | uint16(bytes[0])
			b := uint8(c16&0x1F) << 3
			g := uint8((c16>>5)&0x1F) << 3
			r := uint8((c16>>10)&0x1F) << 3
			return bm.RGB32(r, g, b), nil
		case 24:
			return bm.RGB32(bytes[2], bytes[1], bytes[0]), nil
		case 32:
			return bm.RGBA32(bytes[2], bytes[1], bytes[0], bytes[3]), nil
		default:
			return 0, fmt.Errorf("unsupported true-colour bpp %d", bpp)
		}
	case 3:
		if hdr.bpp != 8 {
			return 0, fmt.Errorf("grayscale TGA must be 8bpp")
		}
		return bm.RGB32(bytes[0], bytes[0], bytes[0]), nil
	default:
		return 0, fmt.Errorf("unsupported TGA image type 0x%02X", hdr.imgType)
	}
}

// Encode writes b as a 24-bit TGA, bottom-up, RLE-encoded when
// cfg.TGARLE is set (spec.md §4.6).
func Encode(w io.Writer, b *bm.Bitmap, cfg bm.Config) error {
	imgType := byte(2)
	if cfg.TGARLE {
		imgType = 10
	}
	hdr := make([]byte, 18)
	hdr[2] = imgType
	putLE16(hdr[12:], uint16(b.Width()))
	putLE16(hdr[14:], uint16(b.Height()))
	hdr[16] = 24
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	width, height := b.Width(), b.Height()
	np := width * height

	if !cfg.TGARLE {
		row := make([]byte, width*3)
		for i := 0; i < np; i++ {
			y := height - 1 - i/width
			x := i % width
			r, g, bl := b.Get(x, y).RGB()
			off := (i % width) * 3
			row[off], row[off+1], row[off+2] = bl, g, r
			if x == width-1 {
				if _, err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	}

	i := 0
	for i < np {
		y := height - 1 - i/width
		x := i % width
		c := b.Get(x, y)

		var packet []byte
		if x < width-1 && b.Get(x+1, y) == c {
			n := 1
			for n < 128 && x+n < width && b.Get(x+n, y) == c {
				n++
			}
			r, g, bl := c.RGB()
			packet = []byte{0x80 | byte(n-1), bl, g, r}
			i += n
		} else {
			n := 1
			r0, g0, b0 := c.RGB()
			packet = append(packet, 0, b0, g0, r0)
			for n < 128 && x+n < width {
				nc := b.Get(x+n, y)
				if x+n+1 < width && b.Get(x+n+1, y) == nc {
					break
				}
				r, g, bl := nc.RGB()
				packet = append(packet, bl, g, r)
				n++
			}
			packet[0] = byte(n - 1)
			i += n
		}
		if _, err := w.Write(packet); err != nil {
			return fmt.Errorf("write data: %w", err)
		}
	}
	return nil
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
