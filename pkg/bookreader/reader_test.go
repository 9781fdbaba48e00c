package bookreader

import (
	"bytes"
	"testing"

	"github.com/alde/trbk/pkg/framebuffer"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/render"
	"github.com/alde/trbk/pkg/trbk"
)

// fakeDisplay records every panel commit.
type commit struct {
	gray         bool
	mode         render.RefreshMode
	differential bool
	frame        []byte
}

type fakeDisplay struct {
	commits []commit
}

func (d *fakeDisplay) Refresh(frame []byte, mode render.RefreshMode) error {
	d.commits = append(d.commits, commit{mode: mode, frame: append([]byte(nil), frame...)})
	return nil
}

func (d *fakeDisplay) CommitGray2(lsb, msb []byte, differential bool) error {
	d.commits = append(d.commits, commit{gray: true, differential: differential})
	return nil
}

func (d *fakeDisplay) last(t *testing.T) commit {
	t.Helper()
	if len(d.commits) == 0 {
		t.Fatal("no display commits recorded")
	}
	return d.commits[len(d.commits)-1]
}

// solidGlyph is a 2x2 ink block.
func solidGlyph(r rune) trbk.Glyph {
	return trbk.Glyph{
		Codepoint: r,
		Style:     layout.StyleRegular,
		Width:     2,
		Height:    2,
		Advance:   3,
		YOffset:   -2,
		BW:        []byte{0x00},
		LSB:       []byte{0x00},
		MSB:       []byte{0x00},
	}
}

// grayGlyph carries one light gray pixel, forcing the grayscale commit
// path for pages that use it.
func grayGlyph(r rune) trbk.Glyph {
	return trbk.Glyph{
		Codepoint: r,
		Style:     layout.StyleRegular,
		Width:     2,
		Height:    1,
		Advance:   3,
		YOffset:   -1,
		BW:        []byte{0xC0},
		LSB:       []byte{0x80},
		MSB:       []byte{0x00},
	}
}

// buildHandle makes a book of pageCount pages, each drawing one glyph
// of its page-number text, with the given table of contents.
func buildHandle(t *testing.T, pageCount int, toc []trbk.TocEntry, grayPages map[int]bool) *Handle {
	t.Helper()

	pages := make([][]trbk.Op, pageCount)
	for i := range pages {
		text := "a"
		if grayPages[i] {
			text = "g"
		}
		pages[i] = []trbk.Op{{
			Kind: trbk.OpText, X: 4, Y: 4, Style: layout.StyleRegular, Text: text,
		}}
	}

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
		TOC:    toc,
		Pages:  pages,
		Glyphs: []trbk.Glyph{solidGlyph('a'), grayGlyph('g')},
	}
	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	book, err := trbk.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return NewHandle(book)
}

func newSession(t *testing.T, h *Handle) (*Cursor, *render.Renderer, *fakeDisplay) {
	t.Helper()
	fb := framebuffer.New(32, 32, framebuffer.Rotate0)
	r := render.New(fb, framebuffer.NewOverlay(fb))
	c, err := Open(h, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return c, r, &fakeDisplay{}
}

func TestOpenAndShow(t *testing.T) {
	h := buildHandle(t, 3, nil, nil)
	c, r, d := newSession(t, h)

	if c.Mode() != ModeViewing || c.Page() != 0 {
		t.Fatalf("session = mode %d page %d, want viewing page 0", c.Mode(), c.Page())
	}
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if got := d.last(t); got.gray || got.mode != render.RefreshFull {
		t.Errorf("commit = %+v, want a full binary refresh", got)
	}
}

func TestOpenBadPage(t *testing.T) {
	h := buildHandle(t, 2, nil, nil)
	if _, err := Open(h, 5); err == nil {
		t.Error("Open accepted a page past the book")
	}
}

func TestForwardAndBackward(t *testing.T) {
	h := buildHandle(t, 3, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	if err := c.HandleButton(h, ButtonNext, r, d); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if c.Page() != 1 {
		t.Errorf("page = %d after forward, want 1", c.Page())
	}

	if err := c.HandleButton(h, ButtonPrev, r, d); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if c.Page() != 0 {
		t.Errorf("page = %d after backward, want 0", c.Page())
	}
}

func TestForwardPastLastPageIsNoOp(t *testing.T) {
	h := buildHandle(t, 1, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}
	before := len(d.commits)

	if err := c.HandleButton(h, ButtonNext, r, d); err != nil {
		t.Fatalf("forward errored at the last page: %v", err)
	}
	if c.Page() != 0 {
		t.Errorf("page = %d, want unchanged 0", c.Page())
	}
	if len(d.commits) != before {
		t.Error("no-op forward touched the display")
	}
}

func TestBackwardAtFirstPageIsNoOp(t *testing.T) {
	h := buildHandle(t, 2, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}
	before := len(d.commits)

	if err := c.HandleButton(h, ButtonPrev, r, d); err != nil {
		t.Fatal(err)
	}
	if c.Page() != 0 || len(d.commits) != before {
		t.Error("backward at page 0 was not a no-op")
	}
}

func TestPrefetchedTurnMatchesOnDemandRender(t *testing.T) {
	h := buildHandle(t, 3, nil, nil)

	// Session A turns forward through the prefetch promotion path.
	cA, rA, dA := newSession(t, h)
	if err := cA.Show(h, rA, dA, render.RefreshFull); err != nil {
		t.Fatal(err)
	}
	if !cA.prefetch.valid || cA.prefetch.page != 1 {
		t.Fatalf("prefetch = %+v, want page 1 cached", cA.prefetch)
	}
	if err := cA.HandleButton(h, ButtonNext, rA, dA); err != nil {
		t.Fatal(err)
	}
	promoted := append([]byte(nil), rA.Framebuffer().Front()...)

	// Session B opens directly at page 1 and renders on demand.
	fbB := framebuffer.New(32, 32, framebuffer.Rotate0)
	rB := render.New(fbB, framebuffer.NewOverlay(fbB))
	cB, err := Open(h, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := cB.Show(h, rB, &fakeDisplay{}, render.RefreshFast); err != nil {
		t.Fatal(err)
	}
	onDemand := rB.Framebuffer().Front()

	if !bytes.Equal(promoted, onDemand) {
		t.Error("prefetched page pixels differ from an on-demand render")
	}
}

func TestGrayPageCommitsAbsoluteGray(t *testing.T) {
	h := buildHandle(t, 2, nil, map[int]bool{0: true})
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	got := d.last(t)
	if !got.gray {
		t.Fatal("gray page committed through the binary path")
	}
	if got.differential {
		t.Error("page commit used a differential gray update")
	}
}

func TestFullRefreshEveryTenthTurn(t *testing.T) {
	h := buildHandle(t, 15, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	for turn := 1; turn <= 10; turn++ {
		if err := c.HandleButton(h, ButtonNext, r, d); err != nil {
			t.Fatal(err)
		}
		got := d.last(t)
		want := render.RefreshFast
		if turn == 10 {
			want = render.RefreshFull
		}
		if got.mode != want {
			t.Errorf("turn %d refresh mode = %d, want %d", turn, got.mode, want)
		}
	}

	// The counter restarts after the forced full refresh.
	if err := c.HandleButton(h, ButtonNext, r, d); err != nil {
		t.Fatal(err)
	}
	if got := d.last(t); got.mode != render.RefreshFast {
		t.Error("turn after a full refresh was not fast")
	}
}

func TestCloseResetsSession(t *testing.T) {
	h := buildHandle(t, 2, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	c.Close()
	if c.Mode() != ModeClosed || c.prefetch.valid {
		t.Errorf("after Close: mode %d prefetch %+v", c.Mode(), c.prefetch)
	}
	if err := c.HandleButton(h, ButtonNext, r, d); err != nil {
		t.Errorf("closed session button = %v, want nil no-op", err)
	}
}

func testTOC() []trbk.TocEntry {
	return []trbk.TocEntry{
		{Title: "One", Page: 0, Level: 0},
		{Title: "Two", Page: 5, Level: 0},
		{Title: "Three", Page: 9, Level: 1},
	}
}

func TestSelectEntry(t *testing.T) {
	toc := testTOC()
	tests := []struct {
		page int
		want int
	}{
		{0, 0}, {4, 0}, {5, 1}, {7, 1}, {9, 2}, {11, 2},
	}
	for _, tt := range tests {
		if got := selectEntry(toc, tt.page); got != tt.want {
			t.Errorf("selectEntry(page %d) = %d, want %d", tt.page, got, tt.want)
		}
	}
}

func TestSelectEntryBeforeFirst(t *testing.T) {
	toc := []trbk.TocEntry{{Title: "Late", Page: 3}}
	if got := selectEntry(toc, 0); got != 0 {
		t.Errorf("selectEntry = %d, want clamp to 0", got)
	}
}

func TestTOCNavigation(t *testing.T) {
	h := buildHandle(t, 12, testTOC(), nil)
	fb := framebuffer.New(32, 32, framebuffer.Rotate0)
	r := render.New(fb, framebuffer.NewOverlay(fb))
	d := &fakeDisplay{}
	c, err := Open(h, 7)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	// Confirm opens the menu on the entry covering page 7.
	if err := c.HandleButton(h, ButtonConfirm, r, d); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeTOC {
		t.Fatalf("mode = %d, want TOC", c.Mode())
	}
	if c.TocSelection() != 1 {
		t.Errorf("selection = %d, want entry covering page 7", c.TocSelection())
	}

	// Down moves and clamps at the last entry.
	for i := 0; i < 5; i++ {
		if err := c.HandleButton(h, ButtonDown, r, d); err != nil {
			t.Fatal(err)
		}
	}
	if c.TocSelection() != 2 {
		t.Errorf("selection = %d after down spam, want clamp at 2", c.TocSelection())
	}

	// Up moves back and clamps at the first.
	for i := 0; i < 5; i++ {
		if err := c.HandleButton(h, ButtonUp, r, d); err != nil {
			t.Fatal(err)
		}
	}
	if c.TocSelection() != 0 {
		t.Errorf("selection = %d after up spam, want clamp at 0", c.TocSelection())
	}

	// Confirm jumps to the selected entry with a full refresh.
	if err := c.HandleButton(h, ButtonDown, r, d); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleButton(h, ButtonConfirm, r, d); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeViewing || c.Page() != 5 {
		t.Errorf("after jump: mode %d page %d, want viewing page 5", c.Mode(), c.Page())
	}
	if got := d.last(t); got.gray || got.mode != render.RefreshFull {
		t.Errorf("jump commit = %+v, want full refresh", got)
	}
}

func TestTOCBackReturnsWithoutJump(t *testing.T) {
	h := buildHandle(t, 12, testTOC(), nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}

	if err := c.HandleButton(h, ButtonConfirm, r, d); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleButton(h, ButtonDown, r, d); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleButton(h, ButtonBack, r, d); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeViewing || c.Page() != 0 {
		t.Errorf("after back: mode %d page %d, want viewing page 0", c.Mode(), c.Page())
	}
	if got := d.last(t); got.mode != render.RefreshFast {
		t.Errorf("return commit mode = %d, want fast", got.mode)
	}
}

func TestEmptyTOCConfirmIsNoOp(t *testing.T) {
	h := buildHandle(t, 2, nil, nil)
	c, r, d := newSession(t, h)
	if err := c.Show(h, r, d, render.RefreshFull); err != nil {
		t.Fatal(err)
	}
	before := len(d.commits)

	if err := c.HandleButton(h, ButtonConfirm, r, d); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeViewing || len(d.commits) != before {
		t.Error("confirm with an empty TOC was not a no-op")
	}
}

func TestHandleAccessors(t *testing.T) {
	h := buildHandle(t, 4, nil, nil)
	if h.PageCount() != 4 {
		t.Errorf("PageCount = %d, want 4", h.PageCount())
	}
	if h.Book() == nil {
		t.Error("Book returned nil")
	}
	if title := h.Book().Meta().Title; title != "t" {
		t.Errorf("title = %q", title)
	}
}
