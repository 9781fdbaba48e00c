package layout

// RenderOptions describes the page geometry and typography constants
// for one size variant of a compiled book. A container is produced for
// exactly one RenderOptions value; the device never re-fits content.
type RenderOptions struct {
	ScreenWidth  int // Width in pixels
	ScreenHeight int // Height in pixels
	MarginX      int // Horizontal page margin in pixels
	MarginY      int // Vertical page margin in pixels
	LineHeight   int // Vertical advance per text line
	CharWidth    int // Fallback advance for codepoints without a glyph
	Ascent       int // Baseline distance from the top of a line
	WordSpacing  int // Extra spacing inserted before word-boundary runs
}

// MaxWidth returns the usable line width between the horizontal margins.
func (o RenderOptions) MaxWidth() int {
	return o.ScreenWidth - 2*o.MarginX
}

// MaxY returns the lowest pixel row content may occupy.
func (o RenderOptions) MaxY() int {
	return o.ScreenHeight - o.MarginY
}

// AdvanceFunc reports the pixel advance of a codepoint in a style.
// The second result is false when no glyph exists for the pair; callers
// fall back to RenderOptions.CharWidth.
type AdvanceFunc func(style Style, r rune) (int, bool)
