// Package gif implements the GIF codec of spec.md §4.4: GIF87a/89a
// reading with extension/image interleaving, interlacing, transparency
// and disposal handling, and a writer that palettizes (if needed) and
// Floyd-Steinberg dithers before LZW-compressing. Grounded on
// original_source/misc/gif.c's load_gif_reader/gif_read_image/
// gif_read_tbid/gif_save_fp.
package gif

import (
	"fmt"
	"io"
	"sort"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/dither"
	"github.com/wernsey/bitmap/internal/breader"
	"github.com/wernsey/bitmap/internal/lzw"
	"github.com/wernsey/bitmap/quantize"
)

func init() {
	bm.RegisterFormat(bm.Format{
		Name: "gif",
		Sniff: func(magic [4]byte) bool {
			return magic[0] == 'G' && magic[1] == 'I' && magic[2] == 'F'
		},
		Decode: Decode,
		Encode: Encode,
		Exts:   []string{"gif"},
	})
}

const (
	extIntroducer   = 0x21
	extGCE          = 0xF9
	extComment      = 0xFE
	extPlainText    = 0x01
	extApplication  = 0xFF
	imageSeparator  = 0x2C
	trailer         = 0x3B
	disposeBgRemove = 2
	disposeRestore  = 3
)

type gce struct {
	present    bool
	disposal   int
	transFlag  bool
	transIndex byte
}

// Decode reads a GIF stream per spec.md §4.4.
func Decode(r breader.Reader, cfg bm.Config) (*bm.Bitmap, error) {
	var sig [6]byte
	if err := breader.ReadFull(r, sig[:]); err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}
	if string(sig[:3]) != "GIF" || (string(sig[3:]) != "87a" && string(sig[3:]) != "89a") {
		return nil, fmt.Errorf("bad GIF signature %q", sig)
	}

	lsd, err := readLSD(r)
	if err != nil {
		return nil, fmt.Errorf("read LSD: %w", err)
	}

	gctPresent := lsd.fields&0x80 != 0
	gctSize := int(lsd.fields & 0x07)

	b, err := bm.NewWithConfig(int(lsd.width), int(lsd.height), cfg)
	if err != nil {
		return nil, err
	}

	var gct *bm.Palette
	if gctPresent {
		gct, err = readColorTable(r, gctSize)
		if err != nil {
			return nil, fmt.Errorf("read GCT: %w", err)
		}
		b.SetPen(gct.Get(int(lsd.bgIndex)))
		b.Clear()
		b.SetPen(bm.RGBA32(0, 0, 0, 0))
	}

	var pendingGCE gce

	for {
		var tag [1]byte
		if err := breader.ReadFull(r, tag[:]); err != nil {
			return nil, fmt.Errorf("read block tag: %w", err)
		}
		switch tag[0] {
		case trailer:
			return b, nil
		case extIntroducer:
			g, err := readExtension(r)
			if err != nil {
				return nil, err
			}
			if g != nil {
				pendingGCE = *g
			}
		case imageSeparator:
			if err := readImage(r, b, gct, pendingGCE); err != nil {
				return nil, fmt.Errorf("read image: %w", err)
			}
			pendingGCE = gce{}
		default:
			return nil, fmt.Errorf("unexpected block tag 0x%02X", tag[0])
		}
	}
}

func readColorTable(r breader.Reader, size int) (*bm.Palette, error) {
	n := 2 << size // 2^(size+1)
	p := bm.NewPalette()
	for i := 0; i < n; i++ {
		var rgb [3]byte
		if err := breader.ReadFull(r, rgb[:]); err != nil {
			return nil, err
		}
		p.Add(bm.RGB32(rgb[0], rgb[1], rgb[2]))
	}
	return p, nil
}

func readSubBlocks(r breader.Reader) ([]byte, error) {
	var out []byte
	for {
		var lenByte [1]byte
		if err := breader.ReadFull(r, lenByte[:]); err != nil {
			return nil, err
		}
		if lenByte[0] == 0 {
			return out, nil
		}
		chunk := make([]byte, lenByte[0])
		if err := breader.ReadFull(r, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}

// readExtension reads one Extension block; GCE is parsed and returned,
// everything else is read and discarded per spec.md §4.4.
func readExtension(r breader.Reader) (*gce, error) {
	var label [1]byte
	if err := breader.ReadFull(r, label[:]); err != nil {
		return nil, fmt.Errorf("read extension label: %w", err)
	}
	switch label[0] {
	case extGCE:
		var sz [1]byte
		if err := breader.ReadFull(r, sz[:]); err != nil {
			return nil, err
		}
		body := make([]byte, sz[0])
		if err := breader.ReadFull(r, body); err != nil {
			return nil, err
		}
		var term [1]byte
		if err := breader.ReadFull(r, term[:]); err != nil {
			return nil, err
		}
		if len(body) < 4 {
			return nil, fmt.Errorf("short GCE block")
		}
		g := &gce{
			present:    true,
			disposal:   int(body[0]>>2) & 0x07,
			transFlag:  body[0]&0x01 != 0,
			transIndex: body[3],
		}
		return g, nil
	case extPlainText:
		var sz [1]byte
		if err := breader.ReadFull(r, sz[:]); err != nil {
			return nil, err
		}
		body := make([]byte, sz[0])
		if err := breader.ReadFull(r, body); err != nil {
			return nil, err
		}
		if _, err := readSubBlocks(r); err != nil {
			return nil, err
		}
		return nil, nil
	case extApplication:
		var sz [1]byte
		if err := breader.ReadFull(r, sz[:]); err != nil {
			return nil, err
		}
		body := make([]byte, sz[0])
		if err := breader.ReadFull(r, body); err != nil {
			return nil, err
		}
		if _, err := readSubBlocks(r); err != nil {
			return nil, err
		}
		return nil, nil
	case extComment:
		if _, err := readSubBlocks(r); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		// Unknown extension: treat the payload as ordinary sub-blocks.
		if _, err := readSubBlocks(r); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func readImage(r breader.Reader, canvas *bm.Bitmap, gct *bm.Palette, g gce) error {
	id, err := readImageDescriptor(r)
	if err != nil {
		return fmt.Errorf("read image descriptor: %w", err)
	}

	lctPresent := id.fields&0x80 != 0
	interlace := id.fields&0x40 != 0
	lctSize := int(id.fields & 0x07)

	pal := gct
	if lctPresent {
		var err error
		pal, err = readColorTable(r, lctSize)
		if err != nil {
			return fmt.Errorf("read LCT: %w", err)
		}
	}
	if pal == nil {
		return fmt.Errorf("no color table available for image")
	}

	var minCodeSize [1]byte
	if err := breader.ReadFull(r, minCodeSize[:]); err != nil {
		return fmt.Errorf("read min code size: %w", err)
	}
	data, err := readSubBlocks(r)
	if err != nil {
		return fmt.Errorf("read image sub-blocks: %w", err)
	}
	indices, err := lzw.Decode(data, int(minCodeSize[0]))
	if err != nil {
		return fmt.Errorf("lzw decode: %w", err)
	}

	w, h := int(id.width), int(id.height)
	if len(indices) < w*h {
		return fmt.Errorf("truncated image data: got %d indices, want %d", len(indices), w*h)
	}

	if g.present && g.disposal == disposeBgRemove {
		canvas.SetClip(int(id.left), int(id.top), int(id.left)+w, int(id.top)+h)
		canvas.Fill()
		canvas.SetClip(0, 0, canvas.Width(), canvas.Height())
		return nil
	}
	if g.present && g.disposal == disposeRestore {
		return nil
	}

	var rows []int
	if interlace {
		rows = interlacedRows(h)
	} else {
		rows = sequentialRows(h)
	}
	px := 0
	for _, y := range rows {
		for x := 0; x < w; x++ {
			idx := indices[px]
			px++
			c := pal.Get(int(idx))
			if g.present && g.transFlag && idx == g.transIndex {
				c = bm.RGBA32(0, 0, 0, 0)
			} else {
				r8, g8, b8 := c.RGB()
				c = bm.RGB32(r8, g8, b8)
			}
			canvas.Set(int(id.left)+x, int(id.top)+y, c)
		}
	}
	return nil
}

// interlacedRows returns the destination row order for an image of
// height h: sequential rows if not interlaced is handled by the caller
// passing 0..h-1 directly; this helper always returns the four-pass
// interlaced order (spec.md §4.4's (group,stride) state machine,
// reinterpreted as a row-modulo computation rather than the buggy
// running grp/inty/inti counters of the original C).
func interlacedRows(h int) []int {
	rows := make([]int, 0, h)
	passes := []struct{ start, stride int }{
		{0, 8}, {4, 8}, {2, 4}, {1, 2},
	}
	for _, p := range passes {
		for y := p.start; y < h; y += p.stride {
			rows = append(rows, y)
		}
	}
	return rows
}

func sequentialRows(h int) []int {
	rows := make([]int, h)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

type logicalScreenDescriptor struct {
	width, height int
	fields        byte
	bgIndex       byte
}

func readLSD(r breader.Reader) (logicalScreenDescriptor, error) {
	var buf [7]byte
	if err := breader.ReadFull(r, buf[:]); err != nil {
		return logicalScreenDescriptor{}, err
	}
	return logicalScreenDescriptor{
		width:   int(buf[0]) | int(buf[1])<<8,
		height:  int(buf[2]) | int(buf[3])<<8,
		fields:  buf[4],
		bgIndex: buf[5],
	}, nil
}

type imageDescriptor struct {
	left, top, width, height int
	fields                   byte
}

func readImageDescriptor(r breader.Reader) (imageDescriptor, error) {
	var buf [9]byte
	if err := breader.ReadFull(r, buf[:]); err != nil {
		return imageDescriptor{}, err
	}
	return imageDescriptor{
		left:   int(buf[0]) | int(buf[1])<<8,
		top:    int(buf[2]) | int(buf[3])<<8,
		width:  int(buf[4]) | int(buf[5])<<8,
		height: int(buf[6]) | int(buf[7])<<8,
		fields: buf[8],
	}, nil
}

// Encode writes b per spec.md §4.4: palettize (quantize.MakePalette if b
// has no palette: an exact palette for up to 256 distinct colours,
// otherwise a 256-entry uniform sample) and Floyd-Steinberg dither a
// copy, pick the smallest GCT size that fits, then LZW-compress the
// index stream.
func Encode(w io.Writer, b *bm.Bitmap, cfg bm.Config) error {
	pal := b.Palette()
	if pal == nil || pal.Count() == 0 {
		var err error
		pal, err = quantize.MakePalette(b)
		if err != nil {
			return fmt.Errorf("build palette: %w", err)
		}
	}
	pal.SetMetric(cfg.Metric)

	work := b.Copy()
	work.SetPalette(pal)
	dither.FloydSteinberg(work, pal)

	nc := pal.Count()
	gctSize, codeSize := gctSizeFor(nc)
	gctEntries := 2 << gctSize

	sortedColors := append([]bm.Color(nil), pal.Colors()...)
	sort.Slice(sortedColors, func(i, j int) bool { return sortedColors[i] < sortedColors[j] })
	indexOf := func(c bm.Color) byte {
		i := sort.Search(len(sortedColors), func(k int) bool { return sortedColors[k] >= c })
		if i < len(sortedColors) && sortedColors[i] == c {
			return byte(i)
		}
		nc := pal.NearestColor(c)
		return byte(sort.Search(len(sortedColors), func(k int) bool { return sortedColors[k] >= nc }))
	}

	bgIndex := indexOf(b.Pen())

	if _, err := w.Write([]byte("GIF89a")); err != nil {
		return err
	}

	lsdFields := byte(0x80) | byte(gctSize) | (7 << 4) // GCT present, color resolution 8 bits
	lsd := []byte{
		byte(b.Width()), byte(b.Width() >> 8),
		byte(b.Height()), byte(b.Height() >> 8),
		lsdFields, bgIndex, 0,
	}
	if _, err := w.Write(lsd); err != nil {
		return err
	}

	for i := 0; i < gctEntries; i++ {
		var c bm.Color
		if i < len(sortedColors) {
			c = sortedColors[i]
		}
		r, g, bl := c.RGB()
		if _, err := w.Write([]byte{r, g, bl}); err != nil {
			return err
		}
	}

	gceFields := byte(0)
	if cfg.GIFTransparent {
		gceFields |= 0x01
	}
	gceBlock := []byte{extIntroducer, extGCE, 4, gceFields, 0, 0, bgIndex, 0}
	if _, err := w.Write(gceBlock); err != nil {
		return err
	}

	id := []byte{
		imageSeparator,
		0, 0, 0, 0,
		byte(b.Width()), byte(b.Width() >> 8),
		byte(b.Height()), byte(b.Height() >> 8),
		0, // no LCT, no interlace
	}
	if _, err := w.Write(id); err != nil {
		return err
	}

	if _, err := w.Write([]byte{byte(codeSize)}); err != nil {
		return err
	}

	px := work.Data()
	pixels := make([]byte, len(px))
	for i, c := range px {
		pixels[i] = indexOf(c)
	}
	encoded := lzw.Encode(pixels, codeSize)

	for p := 0; p < len(encoded); p += 0xFF {
		end := p + 0xFF
		if end > len(encoded) {
			end = len(encoded)
		}
		if _, err := w.Write([]byte{byte(end - p)}); err != nil {
			return err
		}
		if _, err := w.Write(encoded[p:end]); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{0x00}); err != nil {
		return err
	}
	if _, err := w.Write([]byte{trailer}); err != nil {
		return err
	}
	return nil
}

func gctSizeFor(nc int) (size, codeSize int) {
	switch {
	case nc > 128:
		return 7, 8
	case nc > 64:
		return 6, 7
	case nc > 32:
		return 5, 6
	case nc > 16:
		return 4, 5
	case nc > 8:
		return 3, 4
	default:
		return 2, 3
	}
}
