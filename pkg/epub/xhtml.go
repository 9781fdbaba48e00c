package epub

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/alde/trbk/pkg/layout"
)

// extractChapter tokenizes one XHTML spine document into blocks. The
// parser is deliberately lenient: real-world EPUB markup is messy, and
// anything it cannot classify simply flows into the current paragraph.
func extractChapter(content []byte, baseDir string) (Chapter, []string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	p := &chapterParser{baseDir: baseDir}
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Chapter{}, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.startElement(strings.ToLower(t.Name.Local), t.Attr)
		case xml.EndElement:
			p.endElement(strings.ToLower(t.Name.Local))
		case xml.CharData:
			p.text(string(t))
		}
	}
	p.flushParagraph()

	return Chapter{Title: p.title, Level: p.titleLevel, Blocks: p.blocks}, p.imageSrcs, nil
}

type chapterParser struct {
	baseDir string

	blocks    []layout.Block
	imageSrcs []string

	runs      []layout.StyledRun
	bold      int
	italic    int
	inHeading bool
	skipDepth int // inside head/style/script

	title      string
	titleLevel int
	sawHeading bool
}

func (p *chapterParser) style() layout.Style {
	switch {
	case p.bold > 0 && p.italic > 0:
		return layout.StyleBoldItalic
	case p.bold > 0:
		return layout.StyleBold
	case p.italic > 0:
		return layout.StyleItalic
	default:
		return layout.StyleRegular
	}
}

func (p *chapterParser) startElement(name string, attrs []xml.Attr) {
	switch name {
	case "head", "style", "script", "title":
		p.skipDepth++

	case "p", "div", "li", "blockquote":
		p.flushParagraph()

	case "h1", "h2", "h3", "h4", "h5", "h6":
		p.flushParagraph()
		// A fresh h1 marks a hard section boundary within the file.
		if name == "h1" && len(p.blocks) > 0 {
			p.blocks = append(p.blocks, layout.Block{Kind: layout.BlockPageBreak})
		}
		p.inHeading = true
		p.bold++

	case "b", "strong":
		p.bold++

	case "i", "em":
		p.italic++

	case "br":
		p.text(" ")

	case "img", "image":
		p.flushParagraph()
		src := attrValue(attrs, "src")
		if src == "" {
			src = attrValue(attrs, "href") // SVG-style image reference
		}
		if src != "" {
			resolved := resolvePath(p.baseDir, src)
			p.blocks = append(p.blocks, layout.Block{Kind: layout.BlockImage, ImageSrc: resolved})
			p.imageSrcs = append(p.imageSrcs, resolved)
		}
	}
}

func (p *chapterParser) endElement(name string) {
	switch name {
	case "head", "style", "script", "title":
		if p.skipDepth > 0 {
			p.skipDepth--
		}

	case "p", "div", "li", "blockquote":
		p.flushParagraph()

	case "h1", "h2", "h3", "h4", "h5", "h6":
		p.captureTitle(name)
		p.flushParagraph()
		p.inHeading = false
		if p.bold > 0 {
			p.bold--
		}

	case "b", "strong":
		if p.bold > 0 {
			p.bold--
		}

	case "i", "em":
		if p.italic > 0 {
			p.italic--
		}
	}
}

func (p *chapterParser) text(s string) {
	if p.skipDepth > 0 {
		return
	}
	if strings.TrimSpace(s) == "" {
		return
	}
	s = strings.Join(strings.Fields(s), " ")
	p.runs = append(p.runs, layout.StyledRun{Style: p.style(), Text: s})
}

// captureTitle records the first heading as the chapter's TOC title.
// h1 maps to nesting level 0, h2 to 1, anything deeper to 2.
func (p *chapterParser) captureTitle(name string) {
	if p.sawHeading || len(p.runs) == 0 {
		return
	}
	var parts []string
	for _, run := range p.runs {
		parts = append(parts, run.Text)
	}
	p.title = strings.Join(parts, " ")
	p.sawHeading = true
	switch name {
	case "h1":
		p.titleLevel = 0
	case "h2":
		p.titleLevel = 1
	default:
		p.titleLevel = 2
	}
}

func (p *chapterParser) flushParagraph() {
	if len(p.runs) == 0 {
		return
	}
	p.blocks = append(p.blocks, layout.Block{Kind: layout.BlockParagraph, Runs: p.runs})
	p.runs = nil
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, attr := range attrs {
		if strings.ToLower(attr.Name.Local) == name {
			return attr.Value
		}
	}
	return ""
}
