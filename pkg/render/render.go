// Package render interprets a page's drawing operations against the
// device framebuffer, producing the 1bpp frame and, where tri-level
// content exists, the 2-bit grayscale overlay.
package render

import (
	"fmt"
	"os"

	"github.com/alde/trbk/pkg/framebuffer"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// Result reports what a page render produced. GrayUsed selects the
// grayscale commit path; Streamed marks renders that took the
// full-screen image fast path, whose output cannot be cached across a
// buffer flip.
type Result struct {
	GrayUsed bool
	Streamed bool
}

// Renderer composites page ops into the back buffer and overlay. It
// owns no book state; the book handle is passed per call.
type Renderer struct {
	fb *framebuffer.Buffers
	ov *framebuffer.Overlay

	// Warnf receives non-fatal render diagnostics (skipped image ops).
	// Defaults to stderr.
	Warnf func(format string, args ...interface{})
}

// New creates a renderer over a framebuffer pair and its overlay.
func New(fb *framebuffer.Buffers, ov *framebuffer.Overlay) *Renderer {
	return &Renderer{
		fb: fb,
		ov: ov,
		Warnf: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// Framebuffer returns the buffer pair the renderer draws into.
func (r *Renderer) Framebuffer() *framebuffer.Buffers { return r.fb }

// Overlay returns the gray overlay the renderer draws into.
func (r *Renderer) Overlay() *framebuffer.Overlay { return r.ov }

// RenderPage executes a page's op list in order into a cleared back
// buffer, then stamps the page-number indicator. Failed image ops are
// logged and skipped; the rest of the page stays intact.
func (r *Renderer) RenderPage(book *trbk.Book, ops []trbk.Op, pageIndex int) Result {
	r.fb.ClearBack()
	r.ov.Clear()

	var res Result
	for _, op := range ops {
		switch op.Kind {
		case trbk.OpText:
			r.drawText(book, op, &res)
		case trbk.OpImage:
			r.drawImage(book, op, &res)
		}
	}
	r.stampPageNumber(book, pageIndex, &res)
	return res
}

// RenderOps executes an op list into a cleared back buffer without
// the page-number stamp. Used for menu overlays such as the table of
// contents.
func (r *Renderer) RenderOps(book *trbk.Book, ops []trbk.Op) Result {
	r.fb.ClearBack()
	r.ov.Clear()
	var res Result
	for _, op := range ops {
		switch op.Kind {
		case trbk.OpText:
			r.drawText(book, op, &res)
		case trbk.OpImage:
			r.drawImage(book, op, &res)
		}
	}
	return res
}

// drawText draws one text run, glyph by glyph. Glyphs with grayscale
// content engage the overlay: the binary plane then carries only the
// darkest tier, with the gray planes supplying the mid-tones. Missing
// glyphs degrade to a fixed-width advance.
func (r *Renderer) drawText(book *trbk.Book, op trbk.Op, res *Result) {
	geom := book.Geometry()
	baseline := op.Y + geom.Ascent
	pen := op.X

	for _, cp := range op.Text {
		glyph, ok := book.GlyphFor(op.Style, cp)
		if !ok {
			pen += geom.CharWidth
			continue
		}
		r.drawGlyph(glyph, pen, baseline, res)
		pen += glyph.Advance
	}
}

func (r *Renderer) drawGlyph(g *trbk.Glyph, pen, baseline int, res *Result) {
	left := pen + g.XOffset
	top := baseline + g.YOffset
	gray := g.HasGray()
	if gray {
		res.GrayUsed = true
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			bw := trbk.PlaneBit(g.BW, g.Width, x, y)
			if !gray {
				// Plain glyph: the bw plane is the full silhouette.
				if !bw {
					r.fb.SetPixel(left+x, top+y, false)
				}
				continue
			}
			lsb := trbk.PlaneBit(g.LSB, g.Width, x, y)
			msb := trbk.PlaneBit(g.MSB, g.Width, x, y)
			if bw && !lsb && !msb {
				// White bucket: leave the background untouched.
				continue
			}
			// Grayscale glyph: the binary plane goes black only at
			// the darkest tier; the overlay carries the mid-tones.
			r.fb.SetPixel(left+x, top+y, bw || lsb || msb)
			r.ov.Set(left+x, top+y, lsb, msb)
		}
	}
}

// drawImage blits one image op with nearest-neighbor scaling to its
// declared size. A full-screen, exact-size gray2 image takes the
// streamed fast path straight into the buffers.
func (r *Renderer) drawImage(book *trbk.Book, op trbk.Op, res *Result) {
	asset, err := book.Image(op.Image)
	if err != nil {
		r.Warnf("skipping image op %d: %v", op.Image, err)
		return
	}

	if r.isStreamedFullScreen(op, asset) {
		bw, lsb, msb := asset.Planes()
		r.fb.LoadBack(bw)
		r.ov.LoadPlanes(lsb, msb)
		res.GrayUsed = true
		res.Streamed = true
		return
	}

	bw, lsb, msb := asset.Planes()
	gray := asset.Kind == trbk.ImageGray2
	if gray {
		res.GrayUsed = true
	}
	for ty := 0; ty < op.H; ty++ {
		sy := ty * asset.Height / op.H
		for tx := 0; tx < op.W; tx++ {
			sx := tx * asset.Width / op.W
			white := trbk.PlaneBit(bw, asset.Width, sx, sy)
			if !gray {
				r.fb.SetPixel(op.X+tx, op.Y+ty, white)
				continue
			}
			l := trbk.PlaneBit(lsb, asset.Width, sx, sy)
			m := trbk.PlaneBit(msb, asset.Width, sx, sy)
			r.fb.SetPixel(op.X+tx, op.Y+ty, white || l || m)
			r.ov.Set(op.X+tx, op.Y+ty, l, m)
		}
	}
}

// isStreamedFullScreen reports whether an image op qualifies for the
// direct plane load: full-screen position and size, exact asset
// dimensions, gray2 encoding, unrotated panel.
func (r *Renderer) isStreamedFullScreen(op trbk.Op, asset *trbk.ImageAsset) bool {
	return op.X == 0 && op.Y == 0 &&
		op.W == r.fb.Width() && op.H == r.fb.Height() &&
		asset.Width == op.W && asset.Height == op.H &&
		asset.Kind == trbk.ImageGray2 &&
		r.fb.Rotation() == framebuffer.Rotate0
}

// stampPageNumber draws the "current/total" indicator into the bottom
// right corner.
func (r *Renderer) stampPageNumber(book *trbk.Book, pageIndex int, res *Result) {
	geom := book.Geometry()
	text := fmt.Sprintf("%d/%d", pageIndex+1, book.PageCount())

	width := 0
	for _, cp := range text {
		if g, ok := book.GlyphFor(layout.StyleRegular, cp); ok {
			width += g.Advance
		} else {
			width += geom.CharWidth
		}
	}

	top := r.fb.Height() - geom.LineHeight
	op := trbk.Op{
		Kind:  trbk.OpText,
		X:     r.fb.Width() - geom.MarginX - width,
		Y:     top,
		Style: layout.StyleRegular,
		Text:  text,
	}
	r.drawText(book, op, res)
}
