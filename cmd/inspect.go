package cmd

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/alde/trbk/pkg/trbk"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [book.trbk]",
	Short: "Show the contents of a compiled TRBK container",
	Long: `Show the header, metadata, geometry and table of contents of a
compiled TRBK container.

Examples:
  trbk inspect book.trbk`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read container: %w", err)
	}

	book, err := trbk.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to parse container: %w", err)
	}

	meta := book.Meta()
	geom := book.Geometry()

	fmt.Printf("Container:  %s (%s)\n", filepath.Base(args[0]), humanize.Bytes(uint64(len(data))))
	fmt.Printf("Title:      %s\n", meta.Title)
	fmt.Printf("Author:     %s\n", meta.Author)
	fmt.Printf("Language:   %s\n", meta.Language)
	fmt.Printf("Identifier: %s\n", meta.Identifier)
	fmt.Printf("Rasterizer: %s\n", meta.Rasterizer)
	fmt.Printf("Screen:     %dx%d (margins %d,%d)\n",
		geom.ScreenWidth, geom.ScreenHeight, geom.MarginX, geom.MarginY)
	fmt.Printf("Typography: line height %d, ascent %d, char width %d, word spacing %d\n",
		geom.LineHeight, geom.Ascent, geom.CharWidth, geom.WordSpacing)
	fmt.Printf("Pages:      %d\n", book.PageCount())
	fmt.Printf("Glyphs:     %d\n", book.GlyphCount())
	fmt.Printf("Images:     %d\n", book.ImageCount())
	fmt.Printf("Source:     %08x\n", book.SourceHash())

	printSectionSizes(data)

	toc := book.TOC()
	if len(toc) > 0 {
		fmt.Printf("\nTable of contents (%d entries):\n", len(toc))
		for _, entry := range toc {
			indent := strings.Repeat("  ", entry.Level)
			fmt.Printf("  %s%s (page %d)\n", indent, entry.Title, entry.Page+1)
		}
	}
	return nil
}

// printSectionSizes derives each section's byte size from the header
// offsets. Sections are laid out in order: metadata, TOC, page lookup
// table, page data, glyph table, then the optional image table.
func printSectionSizes(data []byte) {
	headerSize := int(binary.LittleEndian.Uint16(data[6:]))
	lutOffset := int(binary.LittleEndian.Uint32(data[20:]))
	tocOffset := int(binary.LittleEndian.Uint32(data[24:]))
	pageDataOffset := int(binary.LittleEndian.Uint32(data[28:]))
	imagesOffset := int(binary.LittleEndian.Uint32(data[32:]))
	glyphOffset := int(binary.LittleEndian.Uint32(data[44:]))

	glyphEnd := len(data)
	imageSize := 0
	if imagesOffset > 0 {
		glyphEnd = imagesOffset
		imageSize = len(data) - imagesOffset
	}

	fmt.Printf("\nSections:\n")
	fmt.Printf("  header+metadata: %s\n", humanize.Bytes(uint64(headerSize)))
	fmt.Printf("  toc:             %s\n", humanize.Bytes(uint64(lutOffset-tocOffset)))
	fmt.Printf("  page lut:        %s\n", humanize.Bytes(uint64(pageDataOffset-lutOffset)))
	fmt.Printf("  page data:       %s\n", humanize.Bytes(uint64(glyphOffset-pageDataOffset)))
	fmt.Printf("  glyph table:     %s\n", humanize.Bytes(uint64(glyphEnd-glyphOffset)))
	if imageSize > 0 {
		fmt.Printf("  image table:     %s\n", humanize.Bytes(uint64(imageSize)))
	}
}
