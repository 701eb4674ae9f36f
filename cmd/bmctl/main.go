// Command bmctl is a small CLI over the bitmap library: info, convert
// and quantize subcommands, built with the same cobra/spinner/color
// composition root the teacher's cmd/cli/main.go uses, blank-importing
// every codec package so every format is registered before the root
// command runs.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	bm "github.com/wernsey/bitmap"
	"github.com/wernsey/bitmap/dither"
	_ "github.com/wernsey/bitmap/internal/format/all"
	"github.com/wernsey/bitmap/quantize"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "bmctl",
		Short: "Inspect, convert and quantize raster images",
		Long: `bmctl reads and writes BMP, GIF, PCX, TGA and Netpbm images,
and can build/apply a reduced colour palette.`,
	}

	rootCmd.AddCommand(infoCmd(), convertCmd(), quantizeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print a bitmap's dimensions and palette size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bm.Load(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			fmt.Printf("%s: %dx%d, %d pixels\n", args[0], b.Width(), b.Height(), b.PixelCount())
			if p := b.Palette(); p != nil {
				color.Cyan("palette: %d colors", p.Count())
			} else {
				color.Yellow("palette: none (full colour)")
			}
			return nil
		},
	}
}

func convertCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "convert <input> -o <output>",
		Short: "Convert a bitmap from one supported format to another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--output is required")
			}
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Prefix = fmt.Sprintf("Converting %s -> %s... ", args[0], outPath)
			s.Start()
			b, err := bm.Load(args[0])
			if err != nil {
				s.Stop()
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			err = bm.Save(b, outPath)
			s.Stop()
			if err != nil {
				return fmt.Errorf("save %s: %w", outPath, err)
			}
			color.Green("wrote %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (required)")
	return cmd
}

func quantizeCmd() *cobra.Command {
	var outPath, method string
	var colors int
	cmd := &cobra.Command{
		Use:   "quantize <input> -o <output>",
		Short: "Build a reduced palette and Floyd-Steinberg dither the image onto it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--output is required")
			}
			b, err := bm.Load(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			var pal *bm.Palette
			switch method {
			case "median-cut":
				pal, err = quantize.MedianCut(b, colors)
			case "kmeans":
				pal, err = quantize.KMeans(b, colors)
			case "uniform":
				pal, err = quantize.Uniform(b, colors)
			default:
				return fmt.Errorf("unknown method %q (want median-cut, kmeans or uniform)", method)
			}
			if err != nil {
				return fmt.Errorf("quantize: %w", err)
			}
			color.Cyan("built a %d-color palette with %s", pal.Count(), method)

			dither.FloydSteinberg(b, pal)
			b.SetPalette(pal)
			if err := bm.Save(b, outPath); err != nil {
				return fmt.Errorf("save %s: %w", outPath, err)
			}
			color.Green("wrote %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (required)")
	cmd.Flags().StringVarP(&method, "method", "m", "median-cut", "quantizer: median-cut, kmeans or uniform")
	cmd.Flags().IntVarP(&colors, "colors", "n", 256, "target palette size")
	return cmd
}
