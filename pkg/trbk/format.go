// Package trbk implements the TRBK compiled book container: a
// write-once binary file holding pre-paginated page operation streams,
// a tri-level glyph table, a table of contents, and embedded images.
// All multi-byte fields are little-endian.
package trbk

import "github.com/alde/trbk/pkg/layout"

// Container header constants.
const (
	Magic   = "TRBK"
	Version = 1

	// headerFixedSize is the byte size of the fixed header fields
	// before the variable-length metadata block.
	headerFixedSize = 48

	// flagHasImages is set when the container carries an image table.
	flagHasImages = 0x01
)

// Page op tags.
const (
	opTagText  = 0x01
	opTagImage = 0x02
)

// glyphRecordSize is the fixed portion of one glyph table entry.
const glyphRecordSize = 20

// imageEntrySize is one image table record: offset, length, w, h.
const imageEntrySize = 12

// Metadata is the variable-length string block following the fixed
// header: book identity plus the name of the rasterizer that produced
// the glyph table.
type Metadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string
	Rasterizer string
}

// Geometry echoes the layout constants the container was compiled
// with. Screen dimensions must match the device; a container is never
// re-targeted to a different screen size.
type Geometry struct {
	ScreenWidth  int
	ScreenHeight int
	MarginX      int
	MarginY      int
	LineHeight   int
	CharWidth    int
	Ascent       int
	WordSpacing  int
}

// RenderOptions converts the stored geometry back into layout options.
func (g Geometry) RenderOptions() layout.RenderOptions {
	return layout.RenderOptions{
		ScreenWidth:  g.ScreenWidth,
		ScreenHeight: g.ScreenHeight,
		MarginX:      g.MarginX,
		MarginY:      g.MarginY,
		LineHeight:   g.LineHeight,
		CharWidth:    g.CharWidth,
		Ascent:       g.Ascent,
		WordSpacing:  g.WordSpacing,
	}
}

// FromRenderOptions captures layout options as container geometry.
func FromRenderOptions(o layout.RenderOptions) Geometry {
	return Geometry{
		ScreenWidth:  o.ScreenWidth,
		ScreenHeight: o.ScreenHeight,
		MarginX:      o.MarginX,
		MarginY:      o.MarginY,
		LineHeight:   o.LineHeight,
		CharWidth:    o.CharWidth,
		Ascent:       o.Ascent,
		WordSpacing:  o.WordSpacing,
	}
}

// OpKind discriminates page operations.
type OpKind uint8

const (
	OpText  OpKind = opTagText
	OpImage OpKind = opTagImage
)

// Op is one drawing instruction within a page: a styled text run at a
// position, or an image blit. Ops are immutable once serialized.
type Op struct {
	Kind  OpKind
	X, Y  int
	Style layout.Style // OpText
	Text  string       // OpText
	W, H  int          // OpImage: target blit size
	Image int          // OpImage: index into the image table
}

// TocEntry is one table-of-contents entry resolved to a page index.
type TocEntry struct {
	Title string
	Page  int
	Level int
}

// Glyph is one rasterized (style, codepoint) cell in tri-level form:
// a black/white plane plus two grayscale bitplanes (lsb, msb) whose
// combination encodes four gray levels. Planes are row-major,
// MSB-first packed bits of Width×Height pixels.
type Glyph struct {
	Codepoint rune
	Style     layout.Style
	Width     int
	Height    int
	Advance   int
	XOffset   int
	YOffset   int // baseline-relative top; negative above the baseline
	BW        []byte
	LSB       []byte
	MSB       []byte
}

// PlaneLen returns the per-plane byte length for a glyph's dimensions.
func (g *Glyph) PlaneLen() int {
	return (g.Width*g.Height + 7) / 8
}

// HasGray reports whether either grayscale bitplane carries content.
// Plain glyphs composite their bw plane directly; gray glyphs engage
// the 2bpp overlay.
func (g *Glyph) HasGray() bool {
	for _, b := range g.LSB {
		if b != 0 {
			return true
		}
	}
	for _, b := range g.MSB {
		if b != 0 {
			return true
		}
	}
	return false
}

// PlaneBit reads one pixel of a packed bitplane.
func PlaneBit(plane []byte, w, x, y int) bool {
	i := y*w + x
	return plane[i>>3]&(0x80>>uint(i&7)) != 0
}

// SetPlaneBit sets one pixel of a packed bitplane.
func SetPlaneBit(plane []byte, w, x, y int) {
	i := y*w + x
	plane[i>>3] |= 0x80 >> uint(i&7)
}
