// Package all registers every codec with the root bitmap package by
// blank-importing each internal/format/* package for its init() side
// effect — the same composition-root pattern the teacher's cmd/cli
// uses to wire up every generator adapter in one place.
package all

import (
	_ "github.com/wernsey/bitmap/internal/format/bmp"
	_ "github.com/wernsey/bitmap/internal/format/gif"
	_ "github.com/wernsey/bitmap/internal/format/netpbm"
	_ "github.com/wernsey/bitmap/internal/format/pcx"
	_ "github.com/wernsey/bitmap/internal/format/tga"
)
