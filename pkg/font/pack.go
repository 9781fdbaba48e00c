package font

import (
	"sort"

	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// UsedPair is one (style, codepoint) pair observed in wrapped text.
type UsedPair struct {
	Style layout.Style
	Rune  rune
}

// CollectUsed walks laid-out items and gathers every (style, codepoint)
// pair their text runs reference, in deterministic sorted order. The
// characters of the placeholder and page-number stamps drawn by the
// device are included so they always resolve.
func CollectUsed(items []layout.Item, extra string) []UsedPair {
	seen := make(map[UsedPair]struct{})
	for _, item := range items {
		if item.Kind != layout.ItemTextLine {
			continue
		}
		for _, run := range item.Runs {
			for _, r := range run.Text {
				seen[UsedPair{Style: run.Style, Rune: r}] = struct{}{}
			}
			seen[UsedPair{Style: run.Style, Rune: ' '}] = struct{}{}
		}
	}
	for _, r := range extra {
		seen[UsedPair{Style: layout.StyleRegular, Rune: r}] = struct{}{}
	}

	pairs := make([]UsedPair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Style != pairs[j].Style {
			return pairs[i].Style < pairs[j].Style
		}
		return pairs[i].Rune < pairs[j].Rune
	})
	return pairs
}

// Pack rasterizes every used pair into container glyph entries and
// derives the size variant's ascent. The returned table is sorted by
// (style, codepoint) as the container requires; pairs the rasterizer
// cannot supply are dropped (the device degrades to a fixed advance).
func Pack(ras Rasterizer, used []UsedPair) ([]trbk.Glyph, int) {
	glyphs := make([]trbk.Glyph, 0, len(used))
	capHeight := 0
	maxHeight := 0

	for _, pair := range used {
		cell, ok := ras.Rasterize(pair.Style, pair.Rune)
		if !ok {
			continue
		}
		bw, lsb, msb := QuantizePlanes(cell.Lum, cell.Width, cell.Height)
		glyphs = append(glyphs, trbk.Glyph{
			Codepoint: pair.Rune,
			Style:     pair.Style,
			Width:     cell.Width,
			Height:    cell.Height,
			Advance:   cell.Advance,
			XOffset:   cell.XOffset,
			YOffset:   cell.YOffset,
			BW:        bw,
			LSB:       lsb,
			MSB:       msb,
		})

		if cell.Height > maxHeight {
			maxHeight = cell.Height
		}
		// Cap height: rasterized rise above the baseline of uppercase
		// ASCII letters actually used.
		if pair.Rune >= 'A' && pair.Rune <= 'Z' {
			if rise := -cell.YOffset; rise > capHeight {
				capHeight = rise
			}
		}
	}

	ascent := capHeight
	if ascent == 0 {
		ascent = maxHeight
	}
	if ascent == 0 {
		ascent = ras.Size()
	}
	return glyphs, ascent
}
