package bookreader

import (
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/render"
	"github.com/alde/trbk/pkg/trbk"
)

// openTOC enters the table-of-contents menu, selecting the entry at or
// immediately before the current page. With an empty TOC it does
// nothing.
func (c *Cursor) openTOC(h *Handle, r *render.Renderer, d render.Display) error {
	toc := h.book.TOC()
	if len(toc) == 0 {
		return nil
	}
	c.prefetch = prefetchState{}
	c.mode = ModeTOC
	c.tocSel = selectEntry(toc, c.page)
	return c.showTOC(h, r, d)
}

// selectEntry returns the last entry whose page is at or before the
// current page. TOC page indices are sorted, so a binary scan works;
// when every entry starts past the current page the first one wins.
func selectEntry(toc []trbk.TocEntry, page int) int {
	lo, hi := 0, len(toc)
	for lo < hi {
		mid := (lo + hi) / 2
		if toc[mid].Page <= page {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0
	}
	return lo - 1
}

func (c *Cursor) handleTOC(h *Handle, btn Button, r *render.Renderer, d render.Display) error {
	toc := h.book.TOC()
	switch btn {
	case ButtonUp:
		if c.tocSel > 0 {
			c.tocSel--
		}
		return c.showTOC(h, r, d)

	case ButtonDown:
		if c.tocSel < len(toc)-1 {
			c.tocSel++
		}
		return c.showTOC(h, r, d)

	case ButtonConfirm:
		entry := toc[c.tocSel]
		c.mode = ModeViewing
		ops, err := h.book.Page(entry.Page)
		if err != nil {
			return c.fail(err)
		}
		c.page = entry.Page
		c.ops = ops
		return c.Show(h, r, d, render.RefreshFull)

	case ButtonBack:
		c.mode = ModeViewing
		return c.Show(h, r, d, render.RefreshFast)

	default:
		return nil
	}
}

// showTOC draws the menu: one title per line, indented by nesting
// level, with a marker on the selected entry. Long lists scroll so
// the selection stays visible.
func (c *Cursor) showTOC(h *Handle, r *render.Renderer, d render.Display) error {
	geom := h.book.Geometry()
	toc := h.book.TOC()

	rows := (geom.ScreenHeight - 2*geom.MarginY) / geom.LineHeight
	if rows < 1 {
		rows = 1
	}
	start := 0
	if c.tocSel >= rows {
		start = c.tocSel - rows + 1
	}

	var ops []trbk.Op
	y := geom.MarginY
	for i := start; i < len(toc) && i-start < rows; i++ {
		entry := toc[i]
		text := entry.Title
		if i == c.tocSel {
			text = "> " + text
		}
		ops = append(ops, trbk.Op{
			Kind:  trbk.OpText,
			X:     geom.MarginX + entry.Level*2*geom.CharWidth,
			Y:     y,
			Style: layout.StyleRegular,
			Text:  text,
		})
		y += geom.LineHeight
	}

	res := r.RenderOps(h.book, ops)
	if err := c.commit(r, d, res.GrayUsed, render.RefreshFast); err != nil {
		return c.fail(err)
	}
	return nil
}
