package trbk

import (
	"encoding/binary"
	"sort"

	"github.com/alde/trbk/pkg/layout"
)

// Book is a parsed, read-only container handle. Pages decode on demand
// by index; glyph and image lookups are random access. A Book is safe
// to share by reference: nothing mutates it after Decode.
type Book struct {
	meta       Metadata
	geom       Geometry
	sourceHash uint32

	toc      []TocEntry
	pageLUT  []uint32
	pageData []byte

	glyphs []Glyph // sorted by (Style, Codepoint)

	imageEntries []imageEntry
	imageData    []byte
}

type imageEntry struct {
	offset uint32
	length uint32
	width  uint16
	height uint16
}

// Decode parses container bytes into a Book, validating the header and
// the structural invariants (strictly increasing page offsets,
// monotonic TOC, sorted glyph table).
func Decode(data []byte) (*Book, error) {
	if len(data) < headerFixedSize {
		return nil, decodeErrorf("container truncated: %d bytes", len(data))
	}
	if string(data[:4]) != Magic {
		return nil, decodeErrorf("bad container magic %q", data[:4])
	}
	if data[4] != Version {
		return nil, decodeErrorf("unsupported container version %d", data[4])
	}
	flags := data[5]

	headerSize := int(binary.LittleEndian.Uint16(data[6:]))
	b := &Book{
		geom: Geometry{
			ScreenWidth:  int(binary.LittleEndian.Uint16(data[8:])),
			ScreenHeight: int(binary.LittleEndian.Uint16(data[10:])),
		},
	}
	pageCount := int(binary.LittleEndian.Uint32(data[12:]))
	tocCount := int(binary.LittleEndian.Uint32(data[16:]))
	lutOffset := int(binary.LittleEndian.Uint32(data[20:]))
	tocOffset := int(binary.LittleEndian.Uint32(data[24:]))
	pageDataOffset := int(binary.LittleEndian.Uint32(data[28:]))
	imagesOffset := int(binary.LittleEndian.Uint32(data[32:]))
	b.sourceHash = binary.LittleEndian.Uint32(data[36:])
	glyphCount := int(binary.LittleEndian.Uint32(data[40:]))
	glyphOffset := int(binary.LittleEndian.Uint32(data[44:]))

	if headerSize < headerFixedSize || headerSize > len(data) {
		return nil, decodeErrorf("bad header size %d", headerSize)
	}
	if err := b.parseMetadata(data[headerFixedSize:headerSize]); err != nil {
		return nil, err
	}
	if err := b.parseTOC(data, tocOffset, tocCount); err != nil {
		return nil, err
	}
	if err := b.parseLUT(data, lutOffset, pageCount, pageDataOffset, glyphOffset); err != nil {
		return nil, err
	}
	if err := b.parseGlyphs(data, glyphOffset, glyphCount); err != nil {
		return nil, err
	}
	if flags&flagHasImages != 0 {
		if err := b.parseImages(data, imagesOffset); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Book) parseMetadata(data []byte) error {
	pos := 0
	next := func() (string, error) {
		if pos+2 > len(data) {
			return "", decodeErrorf("metadata truncated")
		}
		n := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		if pos+n > len(data) {
			return "", decodeErrorf("metadata string overruns block")
		}
		s := string(data[pos : pos+n])
		pos += n
		return s, nil
	}

	var err error
	for _, dst := range []*string{
		&b.meta.Title, &b.meta.Author, &b.meta.Language, &b.meta.Identifier, &b.meta.Rasterizer,
	} {
		if *dst, err = next(); err != nil {
			return err
		}
	}

	if pos+12 > len(data) {
		return decodeErrorf("metadata layout constants truncated")
	}
	for _, dst := range []*int{
		&b.geom.MarginX, &b.geom.MarginY, &b.geom.LineHeight,
		&b.geom.CharWidth, &b.geom.Ascent, &b.geom.WordSpacing,
	} {
		*dst = int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
	}
	return nil
}

func (b *Book) parseTOC(data []byte, offset, count int) error {
	pos := offset
	lastPage := -1
	for i := 0; i < count; i++ {
		if pos+2 > len(data) {
			return decodeErrorf("TOC truncated at entry %d", i)
		}
		n := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		if pos+n+5 > len(data) {
			return decodeErrorf("TOC entry %d overruns file", i)
		}
		entry := TocEntry{
			Title: string(data[pos : pos+n]),
			Page:  int(binary.LittleEndian.Uint32(data[pos+n:])),
			Level: int(data[pos+n+4]),
		}
		pos += n + 5
		if entry.Page < lastPage {
			return decodeErrorf("TOC page indices decrease at entry %d", i)
		}
		lastPage = entry.Page
		b.toc = append(b.toc, entry)
	}
	return nil
}

func (b *Book) parseLUT(data []byte, offset, count, pageDataOffset, pageDataEnd int) error {
	if offset+4*count > len(data) {
		return decodeErrorf("page lookup table overruns file")
	}
	if pageDataOffset > pageDataEnd || pageDataEnd > len(data) {
		return decodeErrorf("page data section out of bounds")
	}
	b.pageData = data[pageDataOffset:pageDataEnd]
	b.pageLUT = make([]uint32, count)
	for i := 0; i < count; i++ {
		b.pageLUT[i] = binary.LittleEndian.Uint32(data[offset+4*i:])
		if i > 0 && b.pageLUT[i] <= b.pageLUT[i-1] {
			return decodeErrorf("page offsets not strictly increasing at page %d", i)
		}
		if int(b.pageLUT[i]) > len(b.pageData) {
			return decodeErrorf("page %d offset past page data", i)
		}
	}
	return nil
}

func (b *Book) parseGlyphs(data []byte, offset, count int) error {
	pos := offset
	b.glyphs = make([]Glyph, 0, count)
	for i := 0; i < count; i++ {
		if pos+glyphRecordSize > len(data) {
			return decodeErrorf("glyph table truncated at entry %d", i)
		}
		g := Glyph{
			Codepoint: rune(binary.LittleEndian.Uint32(data[pos:])),
			Style:     layout.Style(data[pos+4]),
			Width:     int(binary.LittleEndian.Uint16(data[pos+6:])),
			Height:    int(binary.LittleEndian.Uint16(data[pos+8:])),
			Advance:   int(int16(binary.LittleEndian.Uint16(data[pos+10:]))),
			XOffset:   int(int16(binary.LittleEndian.Uint16(data[pos+12:]))),
			YOffset:   int(int16(binary.LittleEndian.Uint16(data[pos+14:]))),
		}
		planeLen := int(binary.LittleEndian.Uint32(data[pos+16:]))
		pos += glyphRecordSize
		if planeLen != g.PlaneLen() {
			return decodeErrorf("glyph %d plane length %d, want %d", i, planeLen, g.PlaneLen())
		}
		if pos+3*planeLen > len(data) {
			return decodeErrorf("glyph %d bitplanes overrun file", i)
		}
		g.BW = data[pos : pos+planeLen]
		g.LSB = data[pos+planeLen : pos+2*planeLen]
		g.MSB = data[pos+2*planeLen : pos+3*planeLen]
		pos += 3 * planeLen

		if n := len(b.glyphs); n > 0 {
			prev := &b.glyphs[n-1]
			if prev.Style > g.Style || (prev.Style == g.Style && prev.Codepoint >= g.Codepoint) {
				return decodeErrorf("glyph table not sorted at entry %d", i)
			}
		}
		b.glyphs = append(b.glyphs, g)
	}
	return nil
}

func (b *Book) parseImages(data []byte, offset int) error {
	if offset+4 > len(data) {
		return decodeErrorf("image table truncated")
	}
	count := int(binary.LittleEndian.Uint32(data[offset:]))
	pos := offset + 4
	if pos+count*imageEntrySize > len(data) {
		return decodeErrorf("image table entries overrun file")
	}
	b.imageEntries = make([]imageEntry, count)
	for i := 0; i < count; i++ {
		b.imageEntries[i] = imageEntry{
			offset: binary.LittleEndian.Uint32(data[pos:]),
			length: binary.LittleEndian.Uint32(data[pos+4:]),
			width:  binary.LittleEndian.Uint16(data[pos+8:]),
			height: binary.LittleEndian.Uint16(data[pos+10:]),
		}
		pos += imageEntrySize
	}
	b.imageData = data[pos:]
	for i, e := range b.imageEntries {
		if int(e.offset)+int(e.length) > len(b.imageData) {
			return decodeErrorf("image %d payload overruns file", i)
		}
	}
	return nil
}

// Meta returns the book's metadata strings.
func (b *Book) Meta() Metadata { return b.meta }

// Geometry returns the layout constants the container was compiled with.
func (b *Book) Geometry() Geometry { return b.geom }

// SourceHash returns the hash of the compile input recorded at write time.
func (b *Book) SourceHash() uint32 { return b.sourceHash }

// PageCount returns the number of pages in the container.
func (b *Book) PageCount() int { return len(b.pageLUT) }

// TOC returns the table of contents in source order.
func (b *Book) TOC() []TocEntry { return b.toc }

// ImageCount returns the number of embedded images.
func (b *Book) ImageCount() int { return len(b.imageEntries) }

// Page decodes the operation list of one page. The page's bytes run
// from its lookup-table offset to the next page's offset (or the end
// of the page-data section for the last page).
func (b *Book) Page(index int) ([]Op, error) {
	if index < 0 || index >= len(b.pageLUT) {
		return nil, decodeErrorf("page index %d out of range [0,%d)", index, len(b.pageLUT))
	}
	start := int(b.pageLUT[index])
	end := len(b.pageData)
	if index+1 < len(b.pageLUT) {
		end = int(b.pageLUT[index+1])
	}
	return decodeOps(b.pageData[start:end], len(b.imageEntries))
}

func decodeOps(data []byte, imageCount int) ([]Op, error) {
	var ops []Op
	pos := 0
	for pos < len(data) {
		if pos+3 > len(data) {
			return nil, decodeErrorf("page op header truncated at byte %d", pos)
		}
		tag := data[pos]
		length := int(binary.LittleEndian.Uint16(data[pos+1:]))
		pos += 3
		if pos+length > len(data) {
			return nil, decodeErrorf("page op payload overruns page at byte %d", pos)
		}
		payload := data[pos : pos+length]
		pos += length

		switch tag {
		case opTagText:
			if length < 6 {
				return nil, decodeErrorf("text op payload too short: %d", length)
			}
			ops = append(ops, Op{
				Kind:  OpText,
				X:     int(binary.LittleEndian.Uint16(payload[0:])),
				Y:     int(binary.LittleEndian.Uint16(payload[2:])),
				Style: layout.Style(payload[4]),
				Text:  string(payload[6:]),
			})

		case opTagImage:
			if length != 12 {
				return nil, decodeErrorf("image op payload length %d, want 12", length)
			}
			op := Op{
				Kind:  OpImage,
				X:     int(binary.LittleEndian.Uint16(payload[0:])),
				Y:     int(binary.LittleEndian.Uint16(payload[2:])),
				W:     int(binary.LittleEndian.Uint16(payload[4:])),
				H:     int(binary.LittleEndian.Uint16(payload[6:])),
				Image: int(binary.LittleEndian.Uint16(payload[8:])),
			}
			if op.Image >= imageCount {
				return nil, decodeErrorf("image op references image %d of %d", op.Image, imageCount)
			}
			ops = append(ops, op)

		default:
			return nil, decodeErrorf("unknown page op tag 0x%02x", tag)
		}
	}
	return ops, nil
}

// GlyphFor looks up the glyph for a (style, codepoint) pair via binary
// search over the sorted glyph table.
func (b *Book) GlyphFor(style layout.Style, r rune) (*Glyph, bool) {
	i := sort.Search(len(b.glyphs), func(i int) bool {
		g := &b.glyphs[i]
		return g.Style > style || (g.Style == style && g.Codepoint >= r)
	})
	if i < len(b.glyphs) && b.glyphs[i].Style == style && b.glyphs[i].Codepoint == r {
		return &b.glyphs[i], true
	}
	return nil, false
}

// GlyphCount returns the number of glyph table entries.
func (b *Book) GlyphCount() int { return len(b.glyphs) }

// Image decodes one embedded image by index.
func (b *Book) Image(index int) (*ImageAsset, error) {
	if index < 0 || index >= len(b.imageEntries) {
		return nil, decodeErrorf("image index %d out of range [0,%d)", index, len(b.imageEntries))
	}
	e := b.imageEntries[index]
	return DecodeTRIM(b.imageData[e.offset : e.offset+e.length])
}
