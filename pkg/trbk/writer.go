package trbk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// maxStringLen bounds every length-prefixed string in the container.
const maxStringLen = 0xFFFF

// Document is the in-memory form of a container about to be written.
// Everything is assembled before any byte reaches disk, so a failed
// compile never leaves a partial container behind.
type Document struct {
	Meta       Metadata
	Geometry   Geometry
	TOC        []TocEntry
	Pages      [][]Op
	Glyphs     []Glyph // must be sorted by (Style, Codepoint), unique
	Images     []ImageAsset
	SourceHash uint32
}

// Encode serializes the document into TRBK container bytes.
func (d *Document) Encode() ([]byte, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	meta := d.encodeMetadata()
	headerSize := headerFixedSize + len(meta)

	tocSec := d.encodeTOC()
	pageData, lut := d.encodePages()
	lutSec := encodeLUT(lut)
	glyphSec := d.encodeGlyphs()
	imageSec := d.encodeImages()

	tocOffset := headerSize
	lutOffset := tocOffset + len(tocSec)
	pageDataOffset := lutOffset + len(lutSec)
	glyphOffset := pageDataOffset + len(pageData)
	imagesOffset := 0
	if len(d.Images) > 0 {
		imagesOffset = glyphOffset + len(glyphSec)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(Version)
	flags := byte(0)
	if len(d.Images) > 0 {
		flags |= flagHasImages
	}
	buf.WriteByte(flags)
	writeU16(&buf, uint16(headerSize))
	writeU16(&buf, uint16(d.Geometry.ScreenWidth))
	writeU16(&buf, uint16(d.Geometry.ScreenHeight))
	writeU32(&buf, uint32(len(d.Pages)))
	writeU32(&buf, uint32(len(d.TOC)))
	writeU32(&buf, uint32(lutOffset))
	writeU32(&buf, uint32(tocOffset))
	writeU32(&buf, uint32(pageDataOffset))
	writeU32(&buf, uint32(imagesOffset))
	writeU32(&buf, d.SourceHash)
	writeU32(&buf, uint32(len(d.Glyphs)))
	writeU32(&buf, uint32(glyphOffset))

	buf.Write(meta)
	buf.Write(tocSec)
	buf.Write(lutSec)
	buf.Write(pageData)
	buf.Write(glyphSec)
	buf.Write(imageSec)

	return buf.Bytes(), nil
}

// validate enforces the container invariants before serialization.
func (d *Document) validate() error {
	invalid := func(format string, args ...interface{}) error {
		return &BookError{Kind: BookInvalidOutput, Msg: fmt.Sprintf(format, args...)}
	}

	if len(d.Pages) == 0 {
		return invalid("container must hold at least one page")
	}
	if d.Geometry.ScreenWidth <= 0 || d.Geometry.ScreenHeight <= 0 {
		return invalid("bad screen geometry %dx%d", d.Geometry.ScreenWidth, d.Geometry.ScreenHeight)
	}

	// Strings carry a u16 length prefix; longer ones would wrap and
	// corrupt the section.
	for _, s := range []string{
		d.Meta.Title, d.Meta.Author, d.Meta.Language, d.Meta.Identifier, d.Meta.Rasterizer,
	} {
		if len(s) > maxStringLen {
			return invalid("metadata string of %d bytes exceeds %d", len(s), maxStringLen)
		}
	}

	for i := 1; i < len(d.Glyphs); i++ {
		a, b := &d.Glyphs[i-1], &d.Glyphs[i]
		if a.Style > b.Style || (a.Style == b.Style && a.Codepoint >= b.Codepoint) {
			return invalid("glyph table not sorted/unique at index %d", i)
		}
	}
	for i := range d.Glyphs {
		g := &d.Glyphs[i]
		n := g.PlaneLen()
		if len(g.BW) != n || len(g.LSB) != n || len(g.MSB) != n {
			return invalid("glyph %q/%s plane length mismatch", g.Codepoint, g.Style)
		}
	}

	for p, ops := range d.Pages {
		// An empty page would collapse two lookup-table offsets and
		// break their strict ordering.
		if len(ops) == 0 {
			return invalid("page %d has no ops", p)
		}
		for _, op := range ops {
			if op.Kind == OpImage && (op.Image < 0 || op.Image >= len(d.Images)) {
				return invalid("page %d references image %d of %d", p, op.Image, len(d.Images))
			}
		}
	}

	lastPage := -1
	for i, entry := range d.TOC {
		if entry.Page < 0 || entry.Page >= len(d.Pages) {
			return invalid("TOC entry %d points past page %d", i, entry.Page)
		}
		if len(entry.Title) > maxStringLen {
			return invalid("TOC entry %d title of %d bytes exceeds %d", i, len(entry.Title), maxStringLen)
		}
		if entry.Page < lastPage {
			return invalid("TOC page indices decrease at entry %d", i)
		}
		lastPage = entry.Page
	}
	return nil
}

func (d *Document) encodeMetadata() []byte {
	var buf bytes.Buffer
	for _, s := range []string{
		d.Meta.Title, d.Meta.Author, d.Meta.Language, d.Meta.Identifier, d.Meta.Rasterizer,
	} {
		writeString(&buf, s)
	}
	g := d.Geometry
	for _, v := range []int{g.MarginX, g.MarginY, g.LineHeight, g.CharWidth, g.Ascent, g.WordSpacing} {
		writeU16(&buf, uint16(v))
	}
	return buf.Bytes()
}

func (d *Document) encodeTOC() []byte {
	var buf bytes.Buffer
	for _, entry := range d.TOC {
		writeString(&buf, entry.Title)
		writeU32(&buf, uint32(entry.Page))
		buf.WriteByte(byte(entry.Level))
	}
	return buf.Bytes()
}

// encodePages serializes every page's op stream and returns the byte
// stream together with the per-page offsets into it.
func (d *Document) encodePages() ([]byte, []uint32) {
	var buf bytes.Buffer
	lut := make([]uint32, len(d.Pages))
	for i, ops := range d.Pages {
		lut[i] = uint32(buf.Len())
		for _, op := range ops {
			encodeOp(&buf, op)
		}
	}
	return buf.Bytes(), lut
}

func encodeOp(buf *bytes.Buffer, op Op) {
	switch op.Kind {
	case OpText:
		text := []byte(op.Text)
		buf.WriteByte(opTagText)
		writeU16(buf, uint16(6+len(text)))
		writeU16(buf, uint16(op.X))
		writeU16(buf, uint16(op.Y))
		buf.WriteByte(byte(op.Style))
		buf.WriteByte(0) // pad
		buf.Write(text)

	case OpImage:
		buf.WriteByte(opTagImage)
		writeU16(buf, 12)
		writeU16(buf, uint16(op.X))
		writeU16(buf, uint16(op.Y))
		writeU16(buf, uint16(op.W))
		writeU16(buf, uint16(op.H))
		writeU16(buf, uint16(op.Image))
		writeU16(buf, 0) // pad
	}
}

func encodeLUT(lut []uint32) []byte {
	out := make([]byte, 4*len(lut))
	for i, off := range lut {
		binary.LittleEndian.PutUint32(out[4*i:], off)
	}
	return out
}

func (d *Document) encodeGlyphs() []byte {
	var buf bytes.Buffer
	for i := range d.Glyphs {
		g := &d.Glyphs[i]
		writeU32(&buf, uint32(g.Codepoint))
		buf.WriteByte(byte(g.Style))
		buf.WriteByte(0) // pad
		writeU16(&buf, uint16(g.Width))
		writeU16(&buf, uint16(g.Height))
		writeU16(&buf, uint16(int16(g.Advance)))
		writeU16(&buf, uint16(int16(g.XOffset)))
		writeU16(&buf, uint16(int16(g.YOffset)))
		writeU32(&buf, uint32(g.PlaneLen()))
		buf.Write(g.BW)
		buf.Write(g.LSB)
		buf.Write(g.MSB)
	}
	return buf.Bytes()
}

func (d *Document) encodeImages() []byte {
	if len(d.Images) == 0 {
		return nil
	}
	payloads := make([][]byte, len(d.Images))
	for i := range d.Images {
		payloads[i] = EncodeTRIM(&d.Images[i])
	}

	var buf bytes.Buffer
	writeU32(&buf, uint32(len(d.Images)))
	offset := 0
	for i := range d.Images {
		writeU32(&buf, uint32(offset))
		writeU32(&buf, uint32(len(payloads[i])))
		writeU16(&buf, uint16(d.Images[i].Width))
		writeU16(&buf, uint16(d.Images[i].Height))
		offset += len(payloads[i])
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}
