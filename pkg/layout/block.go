package layout

// BlockKind discriminates the block variants produced by the extractor.
type BlockKind uint8

const (
	BlockParagraph BlockKind = iota
	BlockImage
	BlockPageBreak
)

// StyledRun is a span of text in a single style within a paragraph.
type StyledRun struct {
	Style Style
	Text  string
}

// Block is one ordered unit of chapter content handed to the layout
// engine: a paragraph of styled runs, an image reference, or an
// explicit page break.
type Block struct {
	Kind     BlockKind
	Runs     []StyledRun // BlockParagraph
	ImageSrc string      // BlockImage: source key into the image map
}

// ImageRef is a resolved, deduplicated embedded image: its index in
// the container image table and the dimensions it will occupy on the
// page.
type ImageRef struct {
	Index  int
	Width  int
	Height int
}
