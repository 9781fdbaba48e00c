package render

import (
	"testing"

	"github.com/alde/trbk/pkg/framebuffer"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// blackBox builds a plain glyph: a solid w×h ink block sitting on the
// baseline with a fixed advance of 3.
func blackBox(r rune, w, h int) trbk.Glyph {
	n := (w*h + 7) / 8
	return trbk.Glyph{
		Codepoint: r,
		Style:     layout.StyleRegular,
		Width:     w,
		Height:    h,
		Advance:   3,
		YOffset:   -h,
		BW:        make([]byte, n), // all bits clear: every pixel is ink
		LSB:       make([]byte, n),
		MSB:       make([]byte, n),
	}
}

// grayPair builds a 2x1 grayscale glyph: one light gray pixel next to
// one white pixel.
func grayPair(r rune) trbk.Glyph {
	return trbk.Glyph{
		Codepoint: r,
		Style:     layout.StyleRegular,
		Width:     2,
		Height:    1,
		Advance:   3,
		YOffset:   -1,
		BW:        []byte{0xC0}, // both pixels in a bw-set bucket
		LSB:       []byte{0x80}, // pixel 0: light gray (1,1,0)
		MSB:       []byte{0x00},
	}
}

func buildBook(t *testing.T, pages [][]trbk.Op, glyphs []trbk.Glyph, images []trbk.ImageAsset) *trbk.Book {
	t.Helper()
	doc := &trbk.Document{
		Meta: trbk.Metadata{Title: "t"},
		Geometry: trbk.Geometry{
			ScreenWidth:  32,
			ScreenHeight: 32,
			MarginX:      2,
			MarginY:      2,
			LineHeight:   8,
			CharWidth:    4,
			Ascent:       6,
			WordSpacing:  2,
		},
		Pages:  pages,
		Glyphs: glyphs,
		Images: images,
	}
	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	book, err := trbk.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return book
}

func newRenderer() (*Renderer, *framebuffer.Buffers, *framebuffer.Overlay) {
	fb := framebuffer.New(32, 32, framebuffer.Rotate0)
	ov := framebuffer.NewOverlay(fb)
	return New(fb, ov), fb, ov
}

func TestRenderPlainGlyph(t *testing.T) {
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpText, X: 10, Y: 10, Style: layout.StyleRegular, Text: "b"},
	}}, []trbk.Glyph{blackBox('b', 2, 2)}, nil)

	r, fb, ov := newRenderer()
	ops, _ := book.Page(0)
	res := r.RenderPage(book, ops, 0)

	if res.GrayUsed {
		t.Error("plain glyph flagged GrayUsed")
	}
	// Baseline is Y+Ascent = 16; the 2x2 box tops out at 14.
	for _, p := range [][2]int{{10, 14}, {11, 14}, {10, 15}, {11, 15}} {
		if fb.Pixel(p[0], p[1]) {
			t.Errorf("pixel (%d,%d) white, want ink", p[0], p[1])
		}
	}
	if fb.Pixel(12, 14) {
		t.Error("ink bled past the glyph cell")
	}
	if lsb, msb := ov.Bits(10, 14); lsb || msb {
		t.Error("plain glyph wrote gray bits")
	}
}

func TestRenderGrayGlyph(t *testing.T) {
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpText, X: 10, Y: 10, Style: layout.StyleRegular, Text: "g"},
	}}, []trbk.Glyph{grayPair('g')}, nil)

	r, fb, ov := newRenderer()
	ops, _ := book.Page(0)
	res := r.RenderPage(book, ops, 0)

	if !res.GrayUsed {
		t.Fatal("gray glyph did not flag GrayUsed")
	}
	// The light gray pixel stays white in the binary plane, with its
	// tone carried by the overlay.
	if !fb.Pixel(10, 15) {
		t.Error("light gray pixel went black in the binary plane")
	}
	if lsb, msb := ov.Bits(10, 15); !lsb || msb {
		t.Errorf("light gray overlay bits = (%v,%v), want (true,false)", lsb, msb)
	}
	// The white-bucket pixel touches neither plane.
	if lsb, msb := ov.Bits(11, 15); lsb || msb {
		t.Error("white-bucket pixel wrote gray bits")
	}
}

func TestRenderMissingGlyphAdvances(t *testing.T) {
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpText, X: 10, Y: 10, Style: layout.StyleRegular, Text: "zb"},
	}}, []trbk.Glyph{blackBox('b', 2, 2)}, nil)

	r, fb, _ := newRenderer()
	ops, _ := book.Page(0)
	r.RenderPage(book, ops, 0)

	// 'z' has no glyph: the pen advances CharWidth (4) and 'b' lands
	// at x=14.
	if fb.Pixel(14, 14) {
		t.Error("glyph after the missing one not shifted by CharWidth")
	}
	if !fb.Pixel(10, 14) {
		t.Error("something drew where the missing glyph would be")
	}
}

func TestRenderImageScaled(t *testing.T) {
	// A 2x1 mono asset (white, black) doubled to 4x1.
	mono := trbk.ImageAsset{Width: 2, Height: 1, Kind: trbk.ImageMono, Data: []byte{0x80}}
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpImage, X: 0, Y: 0, W: 4, H: 1, Image: 0},
	}}, nil, []trbk.ImageAsset{mono})

	r, fb, _ := newRenderer()
	ops, _ := book.Page(0)
	res := r.RenderPage(book, ops, 0)

	if res.GrayUsed || res.Streamed {
		t.Errorf("mono blit result = %+v", res)
	}
	for x, white := range []bool{true, true, false, false} {
		if fb.Pixel(x, 0) != white {
			t.Errorf("pixel (%d,0) = %v, want %v", x, fb.Pixel(x, 0), white)
		}
	}
}

func TestRenderStreamedFullScreen(t *testing.T) {
	n := 32 * 32 / 8
	data := make([]byte, 3*n)
	for i := 0; i < n; i++ {
		data[i] = 0xAA     // bw
		data[n+i] = 0x55   // lsb
		data[2*n+i] = 0x0F // msb
	}
	gray := trbk.ImageAsset{Width: 32, Height: 32, Kind: trbk.ImageGray2, Data: data}
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpImage, X: 0, Y: 0, W: 32, H: 32, Image: 0},
	}}, nil, []trbk.ImageAsset{gray})

	r, fb, ov := newRenderer()
	ops, _ := book.Page(0)
	res := r.RenderPage(book, ops, 0)

	if !res.Streamed || !res.GrayUsed {
		t.Fatalf("result = %+v, want streamed gray", res)
	}
	if fb.Back()[0] != 0xAA {
		t.Errorf("back[0] = %02x, want the raw bw plane", fb.Back()[0])
	}
	lsb, msb := ov.Planes()
	if lsb[0] != 0x55 || msb[0] != 0x0F {
		t.Errorf("overlay planes = %02x,%02x, want 55,0f", lsb[0], msb[0])
	}
}

func TestRenderOffsetImageNotStreamed(t *testing.T) {
	n := 32 * 32 / 8
	gray := trbk.ImageAsset{Width: 32, Height: 32, Kind: trbk.ImageGray2, Data: make([]byte, 3*n)}
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpImage, X: 0, Y: 1, W: 32, H: 32, Image: 0},
	}}, nil, []trbk.ImageAsset{gray})

	r, _, _ := newRenderer()
	ops, _ := book.Page(0)
	if res := r.RenderPage(book, ops, 0); res.Streamed {
		t.Error("offset image took the streamed path")
	}
}

func TestRenderPageStampsPageNumber(t *testing.T) {
	glyphs := []trbk.Glyph{
		blackBox('/', 2, 2),
		blackBox('1', 2, 2),
	}
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpText, X: 2, Y: 2, Style: layout.StyleRegular, Text: "1"},
	}}, glyphs, nil)

	r, fb, _ := newRenderer()
	ops, _ := book.Page(0)
	r.RenderPage(book, ops, 0)

	// "1/1" sits in the bottom line, right-aligned against the margin.
	found := false
	for y := 32 - 8; y < 32 && !found; y++ {
		for x := 16; x < 32-2; x++ {
			if !fb.Pixel(x, y) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no ink in the page-number corner")
	}
}

func TestRenderOpsSkipsStamp(t *testing.T) {
	book := buildBook(t, [][]trbk.Op{{
		{Kind: trbk.OpText, X: 2, Y: 2, Style: layout.StyleRegular, Text: "1"},
	}}, []trbk.Glyph{blackBox('1', 2, 2)}, nil)

	r, fb, _ := newRenderer()
	r.RenderOps(book, nil)

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if !fb.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) has ink on an empty menu render", x, y)
			}
		}
	}
}
