package bitmap

// Config collects the compile-time switches of the reference
// implementation (spec.md §9) as explicit, overridable values instead of
// build macros: ABGR, RGB_BETTER_COMPARE, PPM_BINARY, SAVE_GIF_TRANSPARENT,
// TGA_SAVE_RLE and SIZE_LIMITS all become fields here.
type Config struct {
	// ByteOrder records the ABGR switch. No code in the module reads this
	// field: pixel buffers always hold Color values (0xAARRGGBB), and every
	// codec reads and writes the same bytes whatever it is set to.
	// Default OrderARGB.
	ByteOrder ByteOrder

	// Metric selects the nearest-colour distance function
	// (RGB_BETTER_COMPARE) that the GIF and PCX encoders install on the
	// palette (Palette.SetMetric) for their dithering and index lookups.
	// The quantizers ignore it and always use squared RGB distance.
	// Default MetricEuclidean.
	Metric DistanceMetric

	// PBMBinary selects binary (P4/P5/P6) vs ASCII (P1/P2/P3) Netpbm
	// output when the target extension doesn't disambiguate on its own
	// (PPM_BINARY). Default true.
	PBMBinary bool

	// GIFTransparent, when true, marks the GIF encoder's background
	// colour as the transparent index (SAVE_GIF_TRANSPARENT).
	// Default false, per spec.md §4.4.
	GIFTransparent bool

	// TGARLE enables run-length encoding on TGA save (TGA_SAVE_RLE).
	// Default true, per spec.md §4.6.
	TGARLE bool

	// MaxDimension bounds W and H accepted by New/decoders
	// (SIZE_LIMITS). Default 23000, per spec.md §3.
	MaxDimension int

	// MaxPixels bounds W*H accepted by New/decoders. Default 2^29-1.
	MaxPixels int64
}

// DefaultConfig is used by every package-level convenience function
// (Load, Save, New, ...). Callers needing different switches use the
// *WithConfig variants.
var DefaultConfig = Config{
	ByteOrder:      OrderARGB,
	Metric:         MetricEuclidean,
	PBMBinary:      true,
	GIFTransparent: false,
	TGARLE:         true,
	MaxDimension:   23000,
	MaxPixels:      1<<29 - 1,
}

func (c Config) normalized() Config {
	if c.MaxDimension <= 0 {
		c.MaxDimension = DefaultConfig.MaxDimension
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = DefaultConfig.MaxPixels
	}
	return c
}
