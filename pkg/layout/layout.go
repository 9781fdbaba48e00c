package layout

import (
	"fmt"
	"os"
	"strings"
)

// ItemKind discriminates the layout output variants.
type ItemKind uint8

const (
	ItemTextLine ItemKind = iota
	ItemBlankLine
	ItemImage
	ItemPageBreak
)

// Run is a styled span within a wrapped line. WordGap marks runs that
// begin at a word boundary; the paginator inserts the configured word
// spacing before them.
type Run struct {
	Style   Style
	Text    string
	WordGap bool
}

// Item is one unit of laid-out content: a wrapped text line, a blank
// spacer line, an image placement, or a page-break marker. Every item
// carries the chapter index it originated from so that pagination can
// map pages back to table-of-contents entries.
type Item struct {
	Kind    ItemKind
	Runs    []Run
	Image   ImageRef
	Chapter int
}

// Engine word-wraps extracted blocks into a flat layout item stream
// for a single size variant.
type Engine struct {
	opts    RenderOptions
	advance AdvanceFunc
	images  map[string]ImageRef

	// Warnf receives non-fatal layout diagnostics (unresolved images).
	// Defaults to stderr.
	Warnf func(format string, args ...interface{})
}

// NewEngine creates a layout engine. The advance function supplies
// per-codepoint pixel widths; images maps extractor source keys to
// resolved container image references.
func NewEngine(opts RenderOptions, advance AdvanceFunc, images map[string]ImageRef) *Engine {
	return &Engine{
		opts:    opts,
		advance: advance,
		images:  images,
		Warnf: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
		},
	}
}

// LayoutChapters lays out every chapter's blocks in order. The chapter
// slice index becomes the chapter tag on each produced item.
func (e *Engine) LayoutChapters(chapters [][]Block) []Item {
	var items []Item
	for chapter, blocks := range chapters {
		for _, block := range blocks {
			items = append(items, e.layoutBlock(block, chapter)...)
		}
	}
	return items
}

func (e *Engine) layoutBlock(block Block, chapter int) []Item {
	switch block.Kind {
	case BlockParagraph:
		return e.layoutParagraph(block.Runs, chapter)

	case BlockImage:
		ref, ok := e.images[block.ImageSrc]
		if !ok {
			e.Warnf("skipping unresolved image %q in chapter %d", block.ImageSrc, chapter)
			return nil
		}
		return []Item{{Kind: ItemImage, Image: ref, Chapter: chapter}}

	case BlockPageBreak:
		return []Item{{Kind: ItemPageBreak, Chapter: chapter}}

	default:
		return nil
	}
}

// token is a whitespace-delimited word in a single style.
type token struct {
	style Style
	text  string
	width int
}

// layoutParagraph greedily fills lines with whitespace-split tokens.
// A token is placed while current + space + token fits MaxWidth;
// otherwise the line closes and the token starts the next one. Each
// paragraph ends with exactly one blank line.
func (e *Engine) layoutParagraph(runs []StyledRun, chapter int) []Item {
	maxWidth := e.opts.MaxWidth()

	var tokens []token
	for _, run := range runs {
		for _, word := range strings.Fields(run.Text) {
			tokens = append(tokens, token{
				style: run.Style,
				text:  word,
				width: e.textWidth(run.Style, word),
			})
		}
	}

	var items []Item
	var line []token
	lineWidth := 0

	flush := func() {
		if len(line) == 0 {
			return
		}
		items = append(items, Item{
			Kind:    ItemTextLine,
			Runs:    mergeRuns(line),
			Chapter: chapter,
		})
		line = nil
		lineWidth = 0
	}

	for _, tok := range tokens {
		if len(line) == 0 {
			line = append(line, tok)
			lineWidth = tok.width
			continue
		}
		// Same-style tokens are re-joined with a literal space glyph;
		// a style change starts a new run separated by word spacing.
		gap := e.opts.WordSpacing
		if line[len(line)-1].style == tok.style {
			gap = e.spaceWidth(tok.style)
		}
		if lineWidth+gap+tok.width <= maxWidth {
			line = append(line, tok)
			lineWidth += gap + tok.width
		} else {
			flush()
			line = append(line, tok)
			lineWidth = tok.width
		}
	}
	flush()

	items = append(items, Item{Kind: ItemBlankLine, Chapter: chapter})
	return items
}

// mergeRuns folds consecutive same-style tokens of a finished line back
// into runs, re-joining them with single spaces. Runs after the first
// start at a word boundary.
func mergeRuns(line []token) []Run {
	var runs []Run
	for _, tok := range line {
		if n := len(runs); n > 0 && runs[n-1].Style == tok.style {
			runs[n-1].Text += " " + tok.text
			continue
		}
		runs = append(runs, Run{
			Style:   tok.style,
			Text:    tok.text,
			WordGap: len(runs) > 0,
		})
	}
	return runs
}

// textWidth sums glyph advances for a token, substituting CharWidth
// for codepoints the rasterizer produced no glyph for.
func (e *Engine) textWidth(style Style, text string) int {
	width := 0
	for _, r := range text {
		if adv, ok := e.advance(style, r); ok {
			width += adv
		} else {
			width += e.opts.CharWidth
		}
	}
	return width
}

func (e *Engine) spaceWidth(style Style) int {
	if adv, ok := e.advance(style, ' '); ok {
		return adv
	}
	return e.opts.CharWidth
}

// TextWidth reports the on-page pixel width of a run sequence,
// including word spacing before word-boundary runs. Shared by the
// paginator and tests to validate the wrap bound.
func TextWidth(opts RenderOptions, advance AdvanceFunc, runs []Run) int {
	width := 0
	for _, run := range runs {
		if run.WordGap {
			width += opts.WordSpacing
		}
		for _, r := range run.Text {
			if adv, ok := advance(run.Style, r); ok {
				width += adv
			} else {
				width += opts.CharWidth
			}
		}
	}
	return width
}
