// Package bmp implements the BMP codec of spec.md §4.3: a winver3-style
// reader accepting 1/4/8/24/32 bpp with BI_RGB or BI_BITFIELDS, and a
// writer emitting 24 bpp BI_RGB, bottom-up, 4-byte row padding —
// grounded on original_source/bmp.c's bm_load_bmp_rd/bm_save_bmp and on
// the header field names used by jsummers-bmpinspect.
package bmp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/internal/breader"
)

func init() {
	bm.RegisterFormat(bm.Format{
		Name: "bmp",
		Sniff: func(magic [4]byte) bool {
			return magic[0] == 'B' && magic[1] == 'M'
		},
		Decode: Decode,
		Encode: Encode,
		Exts:   []string{"bmp"},
	})
}

// Compression codes, named per the BITMAPINFOHEADER spec (the same
// constants jsummers-bmpinspect documents as bI_RGB/bI_BITFIELDS).
const (
	biRGB       = 0
	biBitfields = 3
)

// Decode reads a BMP from r: 2-byte signature, 12-byte file header,
// 40-byte DIB header, an optional palette, optional BITFIELDS masks,
// then bottom-up rows padded to a 4-byte boundary.
func Decode(r breader.Reader, cfg bm.Config) (*bm.Bitmap, error) {
	var magic [2]byte
	if err := breader.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	if magic[0] != 'B' || magic[1] != 'M' {
		return nil, fmt.Errorf("bad signature %q", magic)
	}

	var fh struct {
		Size      uint32
		Reserved1 uint16
		Reserved2 uint16
		Offset    uint32
	}
	if err := readLE(r, &fh); err != nil {
		return nil, fmt.Errorf("read file header: %w", err)
	}

	var dib struct {
		Size        uint32
		Width       int32
		Height      int32
		Planes      uint16
		BitsPP      uint16
		Compression uint32
		ImageSize   uint32
		HRes        int32
		VRes        int32
		NColors     uint32
		NImpColors  uint32
	}
	if err := readLE(r, &dib); err != nil {
		return nil, fmt.Errorf("read DIB header: %w", err)
	}

	switch dib.BitsPP {
	case 1, 4, 8, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bpp %d", dib.BitsPP)
	}
	if dib.Compression != biRGB && dib.Compression != biBitfields {
		return nil, fmt.Errorf("unsupported compression type %d", dib.Compression)
	}

	w, h := int(dib.Width), int(dib.Height)
	if h < 0 {
		h = -h
	}
	b, err := bm.NewWithConfig(w, h, cfg)
	if err != nil {
		return nil, err
	}

	var pal *bm.Palette
	if dib.BitsPP <= 8 {
		nColors := dib.NColors
		if nColors == 0 {
			nColors = 1 << dib.BitsPP
		}
		pal = bm.NewPalette()
		for i := uint32(0); i < nColors; i++ {
			var entry [4]byte // B,G,R,reserved
			if err := breader.ReadFull(r, entry[:]); err != nil {
				return nil, fmt.Errorf("read palette entry %d: %w", i, err)
			}
			pal.Add(bm.RGB32(entry[2], entry[1], entry[0]))
		}
		b.SetPalette(pal)
	}

	var rgbMask [3]uint32
	switch dib.BitsPP {
	case 32:
		rgbMask = [3]uint32{0x00FF0000, 0x0000FF00, 0x000000FF}
	}
	if dib.Compression == biBitfields {
		var masks [3]uint32
		if err := readLE(r, &masks); err != nil {
			return nil, fmt.Errorf("read BITFIELDS masks: %w", err)
		}
		rgbMask = masks
	}
	var rgbShift [3]uint
	var rgbScale [3]float64
	for i := 0; i < 3; i++ {
		if rgbMask[i] == 0 {
			continue
		}
		rgbShift[i] = uint(bits.TrailingZeros32(rgbMask[i]))
		depth := rgbMask[i] >> rgbShift[i]
		if depth > 0 {
			rgbScale[i] = 255.0 / float64(depth)
		}
	}

	if _, err := r.Seek(int64(fh.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to pixel data: %w", err)
	}

	rowSize := ((w*int(dib.BitsPP)/8 + 3) / 4) * 4
	data := make([]byte, rowSize*h)
	if err := breader.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read pixel data: %w", err)
	}

	for j := 0; j < h; j++ {
		y := h - j - 1 // rows are stored bottom-up
		row := data[y*rowSize : y*rowSize+rowSize]
		switch dib.BitsPP {
		case 1:
			for x := 0; x < w; x++ {
				byt := row[x>>3]
				bit := 7 - uint(x%8)
				idx := (byt >> bit) & 1
				b.Set(x, j, pal.Get(int(idx)))
			}
		case 4:
			for x := 0; x < w; x++ {
				byt := row[x>>1]
				var idx byte
				if x&1 != 0 {
					idx = byt & 0x0F
				} else {
					idx = (byt >> 4) & 0x0F
				}
				b.Set(x, j, pal.Get(int(idx)))
			}
		case 8:
			for x := 0; x < w; x++ {
				b.Set(x, j, pal.Get(int(row[x])))
			}
		case 24:
			for x := 0; x < w; x++ {
				p := row[x*3 : x*3+3]
				b.Set(x, j, bm.RGB32(p[2], p[1], p[0]))
			}
		case 32:
			for x := 0; x < w; x++ {
				px := binary.LittleEndian.Uint32(row[x*4 : x*4+4])
				r8 := uint8(float64((px&rgbMask[0])>>rgbShift[0]) * rgbScale[0])
				g8 := uint8(float64((px&rgbMask[1])>>rgbShift[1]) * rgbScale[1])
				b8 := uint8(float64((px&rgbMask[2])>>rgbShift[2]) * rgbScale[2])
				b.Set(x, j, bm.RGB32(r8, g8, b8))
			}
		}
	}

	return b, nil
}

// Encode always writes 24 bpp BI_RGB, bottom-up, 4-byte row padding,
// 2835 pixels/metre resolution, palette and alpha discarded.
func Encode(w io.Writer, b *bm.Bitmap, cfg bm.Config) error {
	width, height := b.Width(), b.Height()
	rowSize := ((width*24/8 + 3) / 4) * 4
	pixelDataSize := rowSize * height
	fileSize := 14 + 40 + pixelDataSize
	offset := 14 + 40

	if _, err := w.Write([]byte{'B', 'M'}); err != nil {
		return err
	}
	fh := struct {
		Size      uint32
		Reserved1 uint16
		Reserved2 uint16
		Offset    uint32
	}{uint32(fileSize), 0, 0, uint32(offset)}
	if err := binary.Write(w, binary.LittleEndian, fh); err != nil {
		return fmt.Errorf("write file header: %w", err)
	}

	dib := struct {
		Size        uint32
		Width       int32
		Height      int32
		Planes      uint16
		BitsPP      uint16
		Compression uint32
		ImageSize   uint32
		HRes        int32
		VRes        int32
		NColors     uint32
		NImpColors  uint32
	}{40, int32(width), int32(height), 1, 24, biRGB, uint32(pixelDataSize), 2835, 2835, 0, 0}
	if err := binary.Write(w, binary.LittleEndian, dib); err != nil {
		return fmt.Errorf("write DIB header: %w", err)
	}

	row := make([]byte, rowSize)
	for j := 0; j < height; j++ {
		y := height - j - 1 // bottom-up
		for x := 0; x < width; x++ {
			r8, g8, b8 := b.Get(x, y).RGB()
			row[x*3] = b8
			row[x*3+1] = g8
			row[x*3+2] = r8
		}
		for i := width * 3; i < rowSize; i++ {
			row[i] = 0
		}
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", j, err)
		}
	}
	return nil
}

func readLE(r breader.Reader, v any) error {
	buf := make([]byte, binary.Size(v))
	if err := breader.ReadFull(r, buf); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}
