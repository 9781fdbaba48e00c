// Package bookreader is the on-device reading session: a state
// machine that turns button input into page and table-of-contents
// navigation and drives the renderer and display.
//
// Session state is split in two: Handle wraps the immutable book
// (metadata, glyphs, TOC), shared by reference, while Cursor holds
// everything mutable (current page, prefetch cache, counters). The
// two travel as independent parameters so rendering never needs an
// aliased view of both.
package bookreader

import (
	"github.com/alde/trbk/pkg/render"
	"github.com/alde/trbk/pkg/trbk"
)

// Mode is the reading session state.
type Mode uint8

const (
	ModeClosed Mode = iota
	ModeViewing
	ModeTOC
)

// Button is one physical input.
type Button uint8

const (
	ButtonNext Button = iota
	ButtonPrev
	ButtonUp
	ButtonDown
	ButtonConfirm
	ButtonBack
)

// fullRefreshInterval is how many page turns run on the fast waveform
// before a full refresh is forced to clear accumulated ghosting.
const fullRefreshInterval = 10

// Handle is the immutable side of a session: the parsed book.
type Handle struct {
	book *trbk.Book
}

// NewHandle wraps a decoded book for reading.
func NewHandle(book *trbk.Book) *Handle { return &Handle{book: book} }

// Book returns the underlying container handle.
func (h *Handle) Book() *trbk.Book { return h.book }

// PageCount returns the book's page count.
func (h *Handle) PageCount() int { return h.book.PageCount() }

// prefetchState caches the speculative render of the next page: its
// decoded ops, the rendered overlay planes, and whether the render
// used the grayscale path. The pixels themselves sit in the
// framebuffer's back buffer until promoted by a flip.
type prefetchState struct {
	valid bool
	page  int
	ops   []trbk.Op
	gray  bool
	lsb   []byte
	msb   []byte
}

// Cursor is the mutable side of a session.
type Cursor struct {
	mode     Mode
	page     int
	ops      []trbk.Op
	grayUsed bool
	prefetch prefetchState
	turns    int
	tocSel   int
	lastErr  error
}

// Open starts a session at the given page, decoding it eagerly. The
// first page is not yet on screen; call Show to commit it.
func Open(h *Handle, startPage int) (*Cursor, error) {
	ops, err := h.book.Page(startPage)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		mode: ModeViewing,
		page: startPage,
		ops:  ops,
	}, nil
}

// Close discards all decoded and prefetched state.
func (c *Cursor) Close() {
	*c = Cursor{mode: ModeClosed}
}

// Mode returns the current session state.
func (c *Cursor) Mode() Mode { return c.mode }

// Page returns the current page index.
func (c *Cursor) Page() int { return c.page }

// TocSelection returns the highlighted TOC entry while in ModeTOC.
func (c *Cursor) TocSelection() int { return c.tocSel }

// LastError returns the most recent surfaced failure, for the
// application's error screen.
func (c *Cursor) LastError() error { return c.lastErr }

// Show renders and commits the current page, then speculatively
// prefetches the next one.
func (c *Cursor) Show(h *Handle, r *render.Renderer, d render.Display, mode render.RefreshMode) error {
	res := r.RenderPage(h.book, c.ops, c.page)
	c.grayUsed = res.GrayUsed
	if err := c.commit(r, d, res.GrayUsed, mode); err != nil {
		return c.fail(err)
	}
	if mode == render.RefreshFull {
		c.turns = 0
	}
	c.prefetchNext(h, r)
	return nil
}

// commit flips the freshly drawn back buffer to the front and pushes
// it to the panel: the absolute grayscale path when the render used
// the overlay, a plain binary refresh otherwise.
func (c *Cursor) commit(r *render.Renderer, d render.Display, gray bool, mode render.RefreshMode) error {
	r.Framebuffer().Flip()
	if gray {
		lsb, msb := r.Overlay().Planes()
		return d.CommitGray2(lsb, msb, false)
	}
	return d.Refresh(r.Framebuffer().Front(), mode)
}

// prefetchNext renders the next page's ops off-screen so a forward
// turn becomes a zero-cost flip. A render that required the streamed
// full-screen fast path is abandoned: that path mutates display-only
// state that cannot be cached across the buffer flip.
func (c *Cursor) prefetchNext(h *Handle, r *render.Renderer) {
	if c.prefetch.valid || c.page+1 >= h.PageCount() {
		return
	}
	ops, err := h.book.Page(c.page + 1)
	if err != nil {
		// Speculative work only; the on-demand path will surface the
		// error if the user actually navigates there.
		return
	}
	res := r.RenderPage(h.book, ops, c.page+1)
	if res.Streamed {
		return
	}
	lsb, msb := r.Overlay().Snapshot()
	c.prefetch = prefetchState{
		valid: true,
		page:  c.page + 1,
		ops:   ops,
		gray:  res.GrayUsed,
		lsb:   lsb,
		msb:   msb,
	}
}

// HandleButton advances the state machine for one input event.
func (c *Cursor) HandleButton(h *Handle, btn Button, r *render.Renderer, d render.Display) error {
	switch c.mode {
	case ModeViewing:
		return c.handleViewing(h, btn, r, d)
	case ModeTOC:
		return c.handleTOC(h, btn, r, d)
	default:
		return nil
	}
}

func (c *Cursor) handleViewing(h *Handle, btn Button, r *render.Renderer, d render.Display) error {
	switch btn {
	case ButtonNext:
		return c.forward(h, r, d)
	case ButtonPrev:
		return c.backward(h, r, d)
	case ButtonConfirm:
		return c.openTOC(h, r, d)
	default:
		return nil
	}
}

// forward turns to the next page, promoting the prefetched render when
// one exists. Past the last page it is a strict no-op.
func (c *Cursor) forward(h *Handle, r *render.Renderer, d render.Display) error {
	if c.page+1 >= h.PageCount() {
		return nil
	}
	mode := c.nextRefreshMode()

	if c.prefetch.valid && c.prefetch.page == c.page+1 {
		pf := c.prefetch
		c.prefetch = prefetchState{}
		c.page = pf.page
		c.ops = pf.ops
		c.grayUsed = pf.gray
		r.Overlay().LoadPlanes(pf.lsb, pf.msb)
		if err := c.commit(r, d, pf.gray, mode); err != nil {
			return c.fail(err)
		}
		if mode == render.RefreshFull {
			c.turns = 0
		}
		c.prefetchNext(h, r)
		return nil
	}

	c.prefetch = prefetchState{}
	ops, err := h.book.Page(c.page + 1)
	if err != nil {
		return c.fail(err)
	}
	c.page++
	c.ops = ops
	return c.Show(h, r, d, mode)
}

// backward always decodes on demand; there is no previous-page
// prefetch.
func (c *Cursor) backward(h *Handle, r *render.Renderer, d render.Display) error {
	if c.page == 0 {
		return nil
	}
	mode := c.nextRefreshMode()
	c.prefetch = prefetchState{}
	ops, err := h.book.Page(c.page - 1)
	if err != nil {
		return c.fail(err)
	}
	c.page--
	c.ops = ops
	return c.Show(h, r, d, mode)
}

// nextRefreshMode counts a page turn and forces a full refresh every
// fullRefreshInterval turns, trading latency for contrast retention.
func (c *Cursor) nextRefreshMode() render.RefreshMode {
	c.turns++
	if c.turns >= fullRefreshInterval {
		return render.RefreshFull
	}
	return render.RefreshFast
}

func (c *Cursor) fail(err error) error {
	c.lastErr = err
	return err
}
