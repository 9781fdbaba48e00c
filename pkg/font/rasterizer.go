// Package font rasterizes the codepoints a book actually uses into
// tri-level glyph cells ready for the container glyph table.
package font

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/alde/trbk/pkg/layout"
)

// Raster is one rasterized glyph cell: 8-bit luminance pixels plus
// placement metrics. YOffset is the baseline-relative top of the cell
// (negative above the baseline).
type Raster struct {
	Width   int
	Height  int
	Advance int
	XOffset int
	YOffset int
	Lum     []byte
}

// Rasterizer supplies glyph cells and metrics for one point size.
// Implementations fall back to the Regular face when a variant is
// missing; failed lookups report ok=false and never error.
type Rasterizer interface {
	// Rasterize returns the luminance cell for a (style, codepoint) pair.
	Rasterize(style layout.Style, r rune) (Raster, bool)
	// Advance returns the rounded pixel advance for a pair.
	Advance(style layout.Style, r rune) (int, bool)
	// LineHeight returns the recommended vertical advance per line.
	LineHeight() int
	// Size returns the point size this rasterizer was built for.
	Size() int
	// Name identifies the rasterizer in container metadata.
	Name() string
}

// Paths names the font files backing each style. Only Regular is
// required; absent variants substitute Regular with a one-time warning.
type Paths struct {
	Regular    string
	Bold       string
	Italic     string
	BoldItalic string
}

func (p Paths) forStyle(style layout.Style) string {
	switch style {
	case layout.StyleBold:
		return p.Bold
	case layout.StyleItalic:
		return p.Italic
	case layout.StyleBoldItalic:
		return p.BoldItalic
	default:
		return p.Regular
	}
}

// Set is an opentype-backed Rasterizer for a single point size.
type Set struct {
	faces  [layout.StyleCount]font.Face
	size   int
	warned [layout.StyleCount]bool
}

// NewSet parses the configured font files at the given point size.
// The Regular font is mandatory; missing variants are substituted by
// the Regular face, warning once per style on first use.
func NewSet(paths Paths, size int) (*Set, error) {
	if paths.Regular == "" {
		return nil, fmt.Errorf("a regular font is required")
	}

	s := &Set{size: size}
	for style := layout.Style(0); style < layout.StyleCount; style++ {
		path := paths.forStyle(style)
		if path == "" {
			continue
		}
		face, err := loadFace(path, size)
		if err != nil {
			if style == layout.StyleRegular {
				return nil, fmt.Errorf("failed to load regular font: %w", err)
			}
			return nil, fmt.Errorf("failed to load %s font: %w", style, err)
		}
		s.faces[style] = face
	}
	return s, nil
}

func loadFace(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build face: %w", err)
	}
	return face, nil
}

// face resolves the face for a style, substituting Regular for absent
// variants with a one-time warning.
func (s *Set) face(style layout.Style) font.Face {
	if int(style) >= len(s.faces) {
		style = layout.StyleRegular
	}
	if s.faces[style] != nil {
		return s.faces[style]
	}
	if !s.warned[style] {
		s.warned[style] = true
		fmt.Fprintf(os.Stderr, "Warning: no %s font configured, substituting regular\n", style)
	}
	return s.faces[layout.StyleRegular]
}

// Rasterize draws one glyph into a luminance cell. The cell is white
// background with glyph coverage darkening toward black.
func (s *Set) Rasterize(style layout.Style, r rune) (Raster, bool) {
	face := s.face(style)
	dot := fixed.Point26_6{}
	bounds, mask, maskp, advance, ok := face.Glyph(dot, r)
	if !ok {
		return Raster{}, false
	}

	w := bounds.Dx()
	h := bounds.Dy()
	ras := Raster{
		Width:   w,
		Height:  h,
		Advance: roundFixed(advance),
		XOffset: bounds.Min.X,
		YOffset: bounds.Min.Y,
		Lum:     make([]byte, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.AlphaModel.Convert(mask.At(maskp.X+x, maskp.Y+y)).(color.Alpha)
			ras.Lum[y*w+x] = 255 - c.A
		}
	}
	return ras, true
}

// Advance returns the rounded advance width of a glyph.
func (s *Set) Advance(style layout.Style, r rune) (int, bool) {
	adv, ok := s.face(style).GlyphAdvance(r)
	if !ok {
		return 0, false
	}
	return roundFixed(adv), true
}

// LineHeight returns the face-recommended line advance.
func (s *Set) LineHeight() int {
	m := s.face(layout.StyleRegular).Metrics()
	return m.Height.Ceil()
}

// Size returns the point size of the set.
func (s *Set) Size() int { return s.size }

// Name identifies the rasterizer in container metadata.
func (s *Set) Name() string {
	return fmt.Sprintf("opentype/%dpt", s.size)
}

func roundFixed(v fixed.Int26_6) int {
	return int(math.Round(float64(v) / 64.0))
}
