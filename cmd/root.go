package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trbk",
	Short: "Compile e-books into TRBK containers for e-ink readers",
	Long: `trbk is the companion compiler for TRBK e-ink reading devices.

It converts EPUB files into the fixed binary TRBK container: pages are
laid out and paginated ahead of time, the used glyphs are rasterized
into a tri-level atlas, and embedded images are quantized for the
1-bit display with its 2-bit grayscale overlay.

Currently supports:
- EPUB to TRBK compilation, one container per requested font size
- Inspecting compiled containers`,
	Version: "0.1.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}
