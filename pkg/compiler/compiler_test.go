package compiler

import (
	"hash/fnv"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	goepub "github.com/bmaupin/go-epub"

	"github.com/alde/trbk/pkg/font"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/profile"
	"github.com/alde/trbk/pkg/trbk"
)

// stubRasterizer renders every codepoint as a 2x2 ink block, keeping
// compile tests independent of real font files.
type stubRasterizer struct {
	size int
}

func (s *stubRasterizer) Rasterize(style layout.Style, r rune) (font.Raster, bool) {
	return font.Raster{
		Width:   2,
		Height:  2,
		Advance: 3,
		YOffset: -2,
		Lum:     make([]byte, 4),
	}, true
}

func (s *stubRasterizer) Advance(style layout.Style, r rune) (int, bool) { return 3, true }

func (s *stubRasterizer) LineHeight() int { return 6 }

func (s *stubRasterizer) Size() int { return s.size }

func (s *stubRasterizer) Name() string { return "stub" }

func writeFixtureEPUB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "figure.png")
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()

	e := goepub.NewEpub("Compile Fixture")
	e.SetAuthor("Author")
	e.SetLang("en")

	internalImg, err := e.AddImage(imgPath, "figure.png")
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if _, err := e.AddSection(
		`<h1>First</h1><p>Some <b>styled</b> text that wraps over lines.</p><img src="`+internalImg+`"/>`,
		"First", "", ""); err != nil {
		t.Fatalf("AddSection failed: %v", err)
	}
	if _, err := e.AddSection(
		`<h1>Second</h1><p>More text in another chapter.</p>`,
		"Second", "", ""); err != nil {
		t.Fatalf("AddSection failed: %v", err)
	}

	epubPath := filepath.Join(dir, "fixture.epub")
	if err := e.Write(epubPath); err != nil {
		t.Fatalf("failed to write fixture EPUB: %v", err)
	}
	return epubPath
}

func testProfile(t *testing.T) profile.Profile {
	t.Helper()
	p, err := profile.GetProfile("generic")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCompileEndToEnd(t *testing.T) {
	input := writeFixtureEPUB(t)
	output := filepath.Join(t.TempDir(), "book.trbk")

	comp := New(Options{
		InputPath:   input,
		OutputPath:  output,
		Profile:     testProfile(t),
		WorkerCount: 2,
		NewRasterizer: func(size int) (font.Rasterizer, error) {
			return &stubRasterizer{size: size}, nil
		},
	})
	if err := comp.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	book, err := trbk.Decode(data)
	if err != nil {
		t.Fatalf("output container invalid: %v", err)
	}

	if book.Meta().Title != "Compile Fixture" {
		t.Errorf("title = %q", book.Meta().Title)
	}
	if book.Meta().Rasterizer != "stub" {
		t.Errorf("rasterizer = %q", book.Meta().Rasterizer)
	}
	if book.PageCount() == 0 {
		t.Error("container has no pages")
	}
	if book.GlyphCount() == 0 {
		t.Error("container has no glyphs")
	}
	if book.ImageCount() != 1 {
		t.Errorf("image count = %d, want 1", book.ImageCount())
	}
	if len(book.TOC()) != 2 {
		t.Errorf("TOC entries = %d, want 2", len(book.TOC()))
	}

	// The recorded source hash matches the input bytes.
	raw, err := os.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	h := fnv.New32a()
	h.Write(raw)
	if book.SourceHash() != h.Sum32() {
		t.Errorf("source hash = %08x, want %08x", book.SourceHash(), h.Sum32())
	}

	// Every page decodes and the ops stay within the screen.
	geom := book.Geometry()
	for p := 0; p < book.PageCount(); p++ {
		ops, err := book.Page(p)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", p, err)
		}
		if len(ops) == 0 {
			t.Errorf("page %d is empty", p)
		}
		for _, op := range ops {
			if op.Y < 0 || op.Y >= geom.ScreenHeight {
				t.Errorf("page %d op at Y=%d outside screen", p, op.Y)
			}
		}
	}

	stats := comp.GetStats()
	if stats.Chapters != 2 || stats.Variants != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Pages != book.PageCount() {
		t.Errorf("stats pages = %d, container has %d", stats.Pages, book.PageCount())
	}
}

func TestCompileTitleGlyphsPackedRegular(t *testing.T) {
	// Headings lay out bold, but the device menu draws chapter titles
	// in the regular style. 'F' appears only in the "First" heading,
	// never in regular body text.
	input := writeFixtureEPUB(t)
	output := filepath.Join(t.TempDir(), "book.trbk")

	comp := New(Options{
		InputPath:  input,
		OutputPath: output,
		Profile:    testProfile(t),
		NewRasterizer: func(size int) (font.Rasterizer, error) {
			return &stubRasterizer{size: size}, nil
		},
	})
	if err := comp.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	book, err := trbk.Decode(data)
	if err != nil {
		t.Fatalf("output container invalid: %v", err)
	}

	if _, ok := book.GlyphFor(layout.StyleRegular, 'F'); !ok {
		t.Error("no regular glyph for a codepoint used only in a chapter title")
	}
	if _, ok := book.GlyphFor(layout.StyleBold, 'F'); !ok {
		t.Error("no bold glyph for the heading itself")
	}
}

func TestCompileMultipleSizes(t *testing.T) {
	input := writeFixtureEPUB(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "book.trbk")

	comp := New(Options{
		InputPath:   input,
		OutputPath:  output,
		Sizes:       []int{12, 14},
		Profile:     testProfile(t),
		WorkerCount: 2,
		NewRasterizer: func(size int) (font.Rasterizer, error) {
			return &stubRasterizer{size: size}, nil
		},
	})
	if err := comp.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, name := range []string{"book_12.trbk", "book_14.trbk"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("variant %s missing: %v", name, err)
		}
		if _, err := trbk.Decode(data); err != nil {
			t.Errorf("variant %s invalid: %v", name, err)
		}
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("unsuffixed output exists alongside size variants")
	}
}

func TestCompileMissingInput(t *testing.T) {
	comp := New(Options{
		InputPath:  "/nonexistent/book.epub",
		OutputPath: filepath.Join(t.TempDir(), "out.trbk"),
		Profile:    testProfile(t),
	})
	if err := comp.Compile(); err == nil {
		t.Error("Compile succeeded on a missing input")
	}
}

func TestVariantOutputPath(t *testing.T) {
	comp := New(Options{OutputPath: "/books/war.trbk"})

	if got := comp.variantOutputPath(16, false); got != "/books/war.trbk" {
		t.Errorf("single variant path = %q", got)
	}
	if got := comp.variantOutputPath(16, true); got != "/books/war_16.trbk" {
		t.Errorf("multi variant path = %q", got)
	}
}
