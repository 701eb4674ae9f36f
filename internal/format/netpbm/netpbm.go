// Package netpbm implements the Netpbm codec of spec.md §4.7: P1-P6
// (PBM/PGM/PPM, ASCII and binary), a token-based header parser that
// skips "#" comments, and an extension-driven ASCII/binary writer.
// Grounded on original_source/misc/pbm.c's tokenizer and
// original_source/bmp.c's bm_save_ppm/pbm helpers.
package netpbm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/internal/breader"
)

// The three Netpbm extensions pick different output families (plain
// bitmap/grayscale/RGB) but share one content-sniffed reader, so each
// gets its own Format registration — letting one Sniff-and-Decode pair
// serve all of P1-P6 while Save still knows which family the target
// extension asked for (format.Format.Encode has no extension
// parameter, so the family has to be baked into the closure instead).
func init() {
	sniff := func(magic [4]byte) bool {
		return magic[0] == 'P' && magic[1] >= '1' && magic[1] <= '6'
	}
	for _, ext := range []string{"pbm", "pgm", "ppm"} {
		ext := ext
		bm.RegisterFormat(bm.Format{
			Name:   ext,
			Sniff:  sniff,
			Decode: Decode,
			Encode: func(w io.Writer, b *bm.Bitmap, cfg bm.Config) error {
				return encodeExt(w, b, cfg, ext)
			},
			Exts: []string{ext},
		})
	}
}

type tokenizer struct {
	r   breader.Reader
	buf []byte
}

func (t *tokenizer) readByte() (byte, bool) {
	var b [1]byte
	n, err := t.r.Read(b[:])
	if n == 0 || err != nil {
		return 0, false
	}
	return b[0], true
}

// next returns the next whitespace-delimited token, skipping "#"
// comments that run to end of line.
func (t *tokenizer) next() (string, error) {
	var tok []byte
	inComment := false
	for {
		c, ok := t.readByte()
		if !ok {
			if len(tok) > 0 {
				return string(tok), nil
			}
			return "", io.ErrUnexpectedEOF
		}
		if inComment {
			if c == '\n' {
				inComment = false
			}
			continue
		}
		switch {
		case c == '#' && len(tok) == 0:
			inComment = true
		case isSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func (t *tokenizer) nextInt() (int, error) {
	s, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// Decode reads a Netpbm image (any of P1-P6) per spec.md §4.7.
func Decode(r breader.Reader, cfg bm.Config) (*bm.Bitmap, error) {
	var magic [2]byte
	if err := breader.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic[0] != 'P' || magic[1] < '1' || magic[1] > '6' {
		return nil, fmt.Errorf("bad netpbm magic %q", magic)
	}
	typ := magic[1]

	t := &tokenizer{r: r}
	w, err := t.nextInt()
	if err != nil {
		return nil, fmt.Errorf("read width: %w", err)
	}
	h, err := t.nextInt()
	if err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}

	d := 1
	if typ == '2' || typ == '3' || typ == '5' || typ == '6' {
		d, err = t.nextInt()
		if err != nil {
			return nil, fmt.Errorf("read max value: %w", err)
		}
	}

	b, err := bm.NewWithConfig(w, h, cfg)
	if err != nil {
		return nil, err
	}

	switch typ {
	case '1':
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				tok, err := t.next()
				if err != nil {
					return nil, fmt.Errorf("read P1 pixel: %w", err)
				}
				if tok == "0" {
					b.Set(x, y, bm.RGB32(255, 255, 255))
				} else {
					b.Set(x, y, bm.RGB32(0, 0, 0))
				}
			}
		}
	case '2':
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v, err := t.nextInt()
				if err != nil {
					return nil, fmt.Errorf("read P2 pixel: %w", err)
				}
				g := uint8(v * 255 / d)
				b.Set(x, y, bm.RGB32(g, g, g))
			}
		}
	case '3':
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rv, err := t.nextInt()
				if err != nil {
					return nil, fmt.Errorf("read P3 pixel: %w", err)
				}
				gv, err := t.nextInt()
				if err != nil {
					return nil, fmt.Errorf("read P3 pixel: %w", err)
				}
				bv, err := t.nextInt()
				if err != nil {
					return nil, fmt.Errorf("read P3 pixel: %w", err)
				}
				b.Set(x, y, bm.RGB32(uint8(rv*255/d), uint8(gv*255/d), uint8(bv*255/d)))
			}
		}
	case '4':
		// The tokenizer already consumed the single whitespace byte that
		// ends the header, so the raster starts at the current position.
		rowBytes := (w + 7) / 8
		row := make([]byte, rowBytes)
		for y := 0; y < h; y++ {
			if err := breader.ReadFull(r, row); err != nil {
				return nil, fmt.Errorf("read P4 row: %w", err)
			}
			for x := 0; x < w; x++ {
				bit := (row[x>>3] >> (7 - uint(x%8))) & 1
				if bit == 0 {
					b.Set(x, y, bm.RGB32(255, 255, 255))
				} else {
					b.Set(x, y, bm.RGB32(0, 0, 0))
				}
			}
		}
	case '5':
		row := make([]byte, w)
		for y := 0; y < h; y++ {
			if err := breader.ReadFull(r, row); err != nil {
				return nil, fmt.Errorf("read P5 row: %w", err)
			}
			for x := 0; x < w; x++ {
				g := row[x]
				b.Set(x, y, bm.RGB32(g, g, g))
			}
		}
	case '6':
		row := make([]byte, w*3)
		for y := 0; y < h; y++ {
			if err := breader.ReadFull(r, row); err != nil {
				return nil, fmt.Errorf("read P6 row: %w", err)
			}
			for x := 0; x < w; x++ {
				b.Set(x, y, bm.RGB32(row[x*3], row[x*3+1], row[x*3+2]))
			}
		}
	}

	return b, nil
}

func encodeExt(w io.Writer, b *bm.Bitmap, cfg bm.Config, ext string) error {
	bw := bufio.NewWriter(w)
	width, height := b.Width(), b.Height()

	switch ext {
	case "pbm":
		if cfg.PBMBinary {
			fmt.Fprintf(bw, "P4\n%d %d\n", width, height)
			rowBytes := (width + 7) / 8
			row := make([]byte, rowBytes)
			for y := 0; y < height; y++ {
				for i := range row {
					row[i] = 0
				}
				for x := 0; x < width; x++ {
					if b.Get(x, y).Gray() < 128 {
						row[x>>3] |= 1 << (7 - uint(x%8))
					}
				}
				if _, err := bw.Write(row); err != nil {
					return err
				}
			}
		} else {
			fmt.Fprintf(bw, "P1\n%d %d\n", width, height)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					if b.Get(x, y).Gray() < 128 {
						bw.WriteString("1 ")
					} else {
						bw.WriteString("0 ")
					}
				}
				bw.WriteByte('\n')
			}
		}
	case "pgm":
		if cfg.PBMBinary {
			fmt.Fprintf(bw, "P5\n%d %d\n255\n", width, height)
			row := make([]byte, width)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					row[x] = b.Get(x, y).Gray()
				}
				if _, err := bw.Write(row); err != nil {
					return err
				}
			}
		} else {
			fmt.Fprintf(bw, "P2\n%d %d\n255\n", width, height)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					fmt.Fprintf(bw, "%d ", b.Get(x, y).Gray())
				}
				bw.WriteByte('\n')
			}
		}
	default: // "ppm"
		if cfg.PBMBinary {
			fmt.Fprintf(bw, "P6\n%d %d\n255\n", width, height)
			row := make([]byte, width*3)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					r, g, bl := b.Get(x, y).RGB()
					row[x*3], row[x*3+1], row[x*3+2] = r, g, bl
				}
				if _, err := bw.Write(row); err != nil {
					return err
				}
			}
		} else {
			fmt.Fprintf(bw, "P3\n%d %d\n255\n", width, height)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					r, g, bl := b.Get(x, y).RGB()
					fmt.Fprintf(bw, "%d %d %d ", r, g, bl)
				}
				bw.WriteByte('\n')
			}
		}
	}
	return bw.Flush()
}
