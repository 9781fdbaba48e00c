// Package profile describes the target device geometries a book can
// be compiled for. A container is bound to one geometry; the device
// never re-fits content to a different screen.
package profile

import (
	"fmt"
	"strings"

	"github.com/alde/trbk/pkg/layout"
)

// Geometry defines the page dimensions and typography defaults of one
// device model.
type Geometry struct {
	ScreenWidth  int // Width in pixels
	ScreenHeight int // Height in pixels
	DPI          int
	MarginX      int // Horizontal page margin in pixels
	MarginY      int // Vertical page margin in pixels
	WordSpacing  int // Extra pixels before word-boundary runs
	DefaultSizes []int
}

// Profile is one supported target device.
type Profile struct {
	Name         string
	Manufacturer string
	Model        string
	Geometry     Geometry
}

// Available device profiles
var profiles = map[string]Profile{
	"trw-6": {
		Name:         "TinReader W6",
		Manufacturer: "TinReader",
		Model:        "W6",
		Geometry: Geometry{
			ScreenWidth:  758,
			ScreenHeight: 1024,
			DPI:          212,
			MarginX:      32,
			MarginY:      28,
			WordSpacing:  1,
			DefaultSizes: []int{24},
		},
	},
	"trw-4": {
		Name:         "TinReader W4",
		Manufacturer: "TinReader",
		Model:        "W4",
		Geometry: Geometry{
			ScreenWidth:  480,
			ScreenHeight: 800,
			DPI:          167,
			MarginX:      20,
			MarginY:      18,
			WordSpacing:  1,
			DefaultSizes: []int{18},
		},
	},
	"generic": {
		Name:         "Generic E-Reader",
		Manufacturer: "Generic",
		Model:        "Standard",
		Geometry: Geometry{
			ScreenWidth:  600,
			ScreenHeight: 800,
			DPI:          167,
			MarginX:      24,
			MarginY:      20,
			WordSpacing:  1,
			DefaultSizes: []int{16},
		},
	},
}

// GetProfile returns a device profile by name.
func GetProfile(name string) (Profile, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if p, ok := profiles[normalized]; ok {
		return p, nil
	}

	var available []string
	for key := range profiles {
		available = append(available, key)
	}
	return Profile{}, fmt.Errorf("unknown device profile '%s'. Available profiles: %v", name, available)
}

// ListProfiles returns all available device profiles.
func ListProfiles() map[string]Profile {
	return profiles
}

// RenderOptions seeds the layout options for one font size. Line
// height, ascent and char width are refined later from the rasterized
// faces; the geometry fields come from the device.
func (p *Profile) RenderOptions(size int) layout.RenderOptions {
	return layout.RenderOptions{
		ScreenWidth:  p.Geometry.ScreenWidth,
		ScreenHeight: p.Geometry.ScreenHeight,
		MarginX:      p.Geometry.MarginX,
		MarginY:      p.Geometry.MarginY,
		LineHeight:   size + size/2,
		CharWidth:    size / 2,
		Ascent:       size,
		WordSpacing:  p.Geometry.WordSpacing,
	}
}

// MaxImageSize returns the largest embedded image the page can hold.
func (p *Profile) MaxImageSize() (w, h int) {
	g := p.Geometry
	return g.ScreenWidth - 2*g.MarginX, g.ScreenHeight - 2*g.MarginY
}
