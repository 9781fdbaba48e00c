// Package paginate greedily fills fixed-height pages from a layout
// item stream and derives the chapter-to-page mapping the table of
// contents is built from.
package paginate

import (
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// Page is one finished page: its ordered drawing ops plus the chapter
// the page starts from (-1 when the page carries no chapter-tagged
// content, which only happens for the placeholder page).
type Page struct {
	Chapter int
	Ops     []trbk.Op
}

// Paginator walks the layout stream with a vertical cursor. Flush
// rules, in priority order: an explicit page break always flushes and
// resets chapter tracking; a chapter change flushes only when the
// current page already has ops; any item whose bottom would pass the
// page budget flushes before being placed on the fresh page.
type Paginator struct {
	opts    layout.RenderOptions
	advance layout.AdvanceFunc

	pages   []Page
	current Page
	cursor  int
	chapter int // last chapter seen; -1 after an explicit break
}

// New creates a paginator for one size variant.
func New(opts layout.RenderOptions, advance layout.AdvanceFunc) *Paginator {
	return &Paginator{
		opts:    opts,
		advance: advance,
		current: Page{Chapter: -1},
		cursor:  opts.MarginY,
		chapter: -1,
	}
}

// Paginate runs the full item stream and returns the finished pages.
// A degenerate stream that produces no pages yields one placeholder
// page with a literal "(empty)" text op.
func Paginate(items []layout.Item, opts layout.RenderOptions, advance layout.AdvanceFunc) []Page {
	p := New(opts, advance)
	for _, item := range items {
		p.Place(item)
	}
	return p.Finish()
}

// Place feeds one layout item through the flush rules.
func (p *Paginator) Place(item layout.Item) {
	if item.Kind == layout.ItemPageBreak {
		// Rule 1: explicit breaks flush unconditionally and reset
		// chapter tracking.
		p.flush()
		p.chapter = -1
		return
	}

	// Rule 2: a chapter boundary is only a flush trigger when the
	// current page already holds content.
	if p.chapter >= 0 && item.Chapter != p.chapter && len(p.current.Ops) > 0 {
		p.flush()
	}
	p.chapter = item.Chapter

	switch item.Kind {
	case layout.ItemBlankLine:
		p.ensureFits(p.opts.LineHeight)
		p.cursor += p.opts.LineHeight

	case layout.ItemTextLine:
		p.ensureFits(p.opts.LineHeight)
		p.placeLine(item)
		p.cursor += p.opts.LineHeight

	case layout.ItemImage:
		p.ensureFits(item.Image.Height)
		p.placeImage(item)
		p.cursor += item.Image.Height + p.opts.LineHeight/2
	}
}

// ensureFits flushes the current page when an item of the given height
// would extend past the bottom margin (rule 3). The cursor position is
// what matters, not whether the page holds ops: blank lines advance the
// cursor without emitting any, and a later item must still restart at
// the top margin. Only an oversized item on a fresh page places without
// a flush, since flushing could not make more room.
func (p *Paginator) ensureFits(height int) {
	if p.cursor+height > p.opts.MaxY() && p.cursor > p.opts.MarginY {
		p.flush()
	}
}

func (p *Paginator) placeLine(item layout.Item) {
	p.claimChapter(item.Chapter)
	x := p.opts.MarginX
	for _, run := range item.Runs {
		if run.WordGap {
			x += p.opts.WordSpacing
		}
		p.current.Ops = append(p.current.Ops, trbk.Op{
			Kind:  trbk.OpText,
			X:     x,
			Y:     p.cursor,
			Style: run.Style,
			Text:  run.Text,
		})
		x += p.runWidth(run)
	}
}

func (p *Paginator) placeImage(item layout.Item) {
	p.claimChapter(item.Chapter)
	p.current.Ops = append(p.current.Ops, trbk.Op{
		Kind:  trbk.OpImage,
		X:     0,
		Y:     p.cursor,
		W:     item.Image.Width,
		H:     item.Image.Height,
		Image: item.Image.Index,
	})
}

// claimChapter records which chapter a page starts from.
func (p *Paginator) claimChapter(chapter int) {
	if len(p.current.Ops) == 0 {
		p.current.Chapter = chapter
	}
}

func (p *Paginator) runWidth(run layout.Run) int {
	width := 0
	for _, r := range run.Text {
		if adv, ok := p.advance(run.Style, r); ok {
			width += adv
		} else {
			width += p.opts.CharWidth
		}
	}
	return width
}

// flush closes the current page. Pages without ops are discarded so
// that container page offsets stay strictly increasing.
func (p *Paginator) flush() {
	if len(p.current.Ops) > 0 {
		p.pages = append(p.pages, p.current)
	}
	p.current = Page{Chapter: -1}
	p.cursor = p.opts.MarginY
}

// Finish flushes the trailing page and returns all pages, substituting
// the placeholder page for an empty book.
func (p *Paginator) Finish() []Page {
	p.flush()
	if len(p.pages) == 0 {
		p.pages = append(p.pages, Page{
			Chapter: 0,
			Ops: []trbk.Op{{
				Kind:  trbk.OpText,
				X:     p.opts.MarginX,
				Y:     p.opts.MarginY,
				Style: layout.StyleRegular,
				Text:  "(empty)",
			}},
		})
	}
	return p.pages
}

// Ops strips the chapter tags for container serialization.
func Ops(pages []Page) [][]trbk.Op {
	ops := make([][]trbk.Op, len(pages))
	for i, page := range pages {
		ops[i] = page.Ops
	}
	return ops
}

// ChapterFirstPages scans pages in order and records the first page
// index seen for each chapter. Chapters producing no pages have no
// entry.
func ChapterFirstPages(pages []Page) map[int]int {
	first := make(map[int]int)
	for i, page := range pages {
		if page.Chapter < 0 {
			continue
		}
		if _, ok := first[page.Chapter]; !ok {
			first[page.Chapter] = i
		}
	}
	return first
}
