// Package compiler orchestrates the producer pipeline: EPUB blocks
// through layout, glyph packing and pagination into one TRBK container
// per requested font size.
package compiler

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alde/trbk/internal/worker"
	"github.com/alde/trbk/pkg/epub"
	"github.com/alde/trbk/pkg/font"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/paginate"
	"github.com/alde/trbk/pkg/profile"
	"github.com/alde/trbk/pkg/trbk"
)

// deviceChars are the codepoints the device draws on its own (the
// empty-book placeholder, page-number stamps and the TOC selection
// marker); they are always packed into the glyph table.
const deviceChars = "(empty)0123456789/> "

// Options contains compile settings.
type Options struct {
	InputPath  string
	OutputPath string
	Fonts      font.Paths
	Sizes      []int
	Profile    profile.Profile

	WorkerCount int
	Verbose     bool

	// NewRasterizer overrides the opentype rasterizer, mainly for
	// tests. Nil uses Fonts at each requested size.
	NewRasterizer func(size int) (font.Rasterizer, error)
}

// Stats tracks compile metrics across all size variants.
type Stats struct {
	InputFileSize  uint64
	OutputFileSize uint64
	Chapters       int
	Variants       int
	Pages          int
	Glyphs         int
	Images         int
	ProcessingTime time.Duration
}

// Compiler runs the EPUB to TRBK conversion.
type Compiler struct {
	options   Options
	stats     Stats
	startTime time.Time

	mu sync.Mutex // guards stats across variant workers
}

// New creates a compiler instance.
func New(opts Options) *Compiler {
	return &Compiler{
		options:   opts,
		startTime: time.Now(),
	}
}

// Compile extracts the source book once and fans the requested size
// variants out over a worker pool. Any variant failure aborts the
// compile; output files are only created after their variant fully
// succeeds in memory.
func (c *Compiler) Compile() error {
	raw, err := os.ReadFile(c.options.InputPath)
	if err != nil {
		return &trbk.BookError{Kind: trbk.BookIo, Msg: "failed to read input", Err: err}
	}
	c.stats.InputFileSize = uint64(len(raw))
	hash := fnv.New32a()
	hash.Write(raw)
	sourceHash := hash.Sum32()

	extractor, err := epub.Open(c.options.InputPath)
	if err != nil {
		return err
	}
	defer extractor.Close()

	book, err := extractor.Extract()
	if err != nil {
		return err
	}
	c.stats.Chapters = len(book.Chapters)

	maxW, maxH := c.options.Profile.MaxImageSize()
	images := buildImages(book.Images, maxW, maxH, c.warnf)
	c.stats.Images = len(images.assets)

	sizes := c.options.Sizes
	if len(sizes) == 0 {
		sizes = c.options.Profile.Geometry.DefaultSizes
	}
	c.stats.Variants = len(sizes)

	if c.options.Verbose {
		fmt.Printf("Compiling %s for %s (%s)\n",
			filepath.Base(c.options.InputPath), c.options.Profile.Name, c.options.Profile.Manufacturer)
		fmt.Printf("Chapters: %d, embedded images: %d, sizes: %v\n",
			len(book.Chapters), len(images.assets), sizes)
	}

	pool := worker.NewPoolWithProgress(c.options.WorkerCount, len(sizes))
	pool.Start()

	for _, size := range sizes {
		pool.Submit(&variantJob{
			compiler:   c,
			book:       book,
			images:     images,
			size:       size,
			sourceHash: sourceHash,
			output:     c.variantOutputPath(size, len(sizes) > 1),
		})
	}

	var firstErr error
	for i := 0; i < len(sizes); i++ {
		result := <-pool.Results()
		if result.Error != nil && firstErr == nil {
			firstErr = fmt.Errorf("variant %s failed: %w", result.JobID, result.Error)
		}
	}
	pool.Stop()

	if firstErr != nil {
		return firstErr
	}

	c.stats.ProcessingTime = time.Since(c.startTime)
	c.displayResults(sizes)
	return nil
}

// variantOutputPath suffixes the output name with the point size when
// more than one variant is produced.
func (c *Compiler) variantOutputPath(size int, multi bool) string {
	if !multi {
		return c.options.OutputPath
	}
	ext := filepath.Ext(c.options.OutputPath)
	base := strings.TrimSuffix(c.options.OutputPath, ext)
	return fmt.Sprintf("%s_%d%s", base, size, ext)
}

// GetStats returns the compile statistics.
func (c *Compiler) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Compiler) warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

func (c *Compiler) newRasterizer(size int) (font.Rasterizer, error) {
	if c.options.NewRasterizer != nil {
		return c.options.NewRasterizer(size)
	}
	return font.NewSet(c.options.Fonts, size)
}

// variantJob compiles one size variant end to end.
type variantJob struct {
	compiler   *Compiler
	book       *epub.Book
	images     *imageSet
	size       int
	sourceHash uint32
	output     string
}

func (j *variantJob) ID() string {
	return fmt.Sprintf("%dpt", j.size)
}

func (j *variantJob) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.compiler.compileVariant(j)
}

// compileVariant builds the whole container in memory, writing the
// output file only as the final step.
func (c *Compiler) compileVariant(j *variantJob) error {
	ras, err := c.newRasterizer(j.size)
	if err != nil {
		return &trbk.BookError{Kind: trbk.BookIo, Msg: "failed to build rasterizer", Err: err}
	}

	opts := c.options.Profile.RenderOptions(j.size)
	opts.LineHeight = ras.LineHeight()
	if adv, ok := ras.Advance(layout.StyleRegular, 'n'); ok {
		opts.CharWidth = adv
	}
	advance := func(style layout.Style, r rune) (int, bool) {
		return ras.Advance(style, r)
	}

	chapters := make([][]layout.Block, len(j.book.Chapters))
	for i, ch := range j.book.Chapters {
		chapters[i] = ch.Blocks
	}
	engine := layout.NewEngine(opts, advance, j.images.refs)
	engine.Warnf = c.warnf
	items := engine.LayoutChapters(chapters)

	// The TOC menu draws chapter titles in the regular style, so their
	// codepoints must be packed even when body text never uses them.
	var extra strings.Builder
	extra.WriteString(deviceChars)
	for _, ch := range j.book.Chapters {
		extra.WriteString(ch.Title)
	}
	used := font.CollectUsed(items, extra.String())
	glyphs, ascent := font.Pack(ras, used)
	opts.Ascent = ascent

	pages := paginate.Paginate(items, opts, advance)

	entries := make([]paginate.SourceEntry, len(j.book.Chapters))
	for i, ch := range j.book.Chapters {
		entries[i] = paginate.SourceEntry{Title: ch.Title, Chapter: i, Level: ch.Level}
	}
	toc := paginate.BuildTOC(entries, pages)

	doc := &trbk.Document{
		Meta: trbk.Metadata{
			Title:      j.book.Meta.Title,
			Author:     j.book.Meta.Author,
			Language:   j.book.Meta.Language,
			Identifier: j.book.Meta.Identifier,
			Rasterizer: ras.Name(),
		},
		Geometry:   trbk.FromRenderOptions(opts),
		TOC:        toc,
		Pages:      paginate.Ops(pages),
		Glyphs:     glyphs,
		Images:     j.images.assets,
		SourceHash: j.sourceHash,
	}

	data, err := doc.Encode()
	if err != nil {
		return err
	}

	// Everything succeeded in memory; only now touch the filesystem.
	if err := os.WriteFile(j.output, data, 0644); err != nil {
		return &trbk.BookError{Kind: trbk.BookIo, Msg: "failed to write container", Err: err}
	}

	c.mu.Lock()
	c.stats.Pages += len(pages)
	c.stats.Glyphs += len(glyphs)
	c.stats.OutputFileSize += uint64(len(data))
	c.mu.Unlock()
	return nil
}

// displayResults shows the compile summary.
func (c *Compiler) displayResults(sizes []int) {
	fmt.Printf("\nCompile completed successfully\n")
	fmt.Printf("================================================================\n")
	fmt.Printf("Compile Summary\n")
	fmt.Printf("================================================================\n")
	fmt.Printf("Input:         %s (%s)\n", filepath.Base(c.options.InputPath), humanize.Bytes(c.stats.InputFileSize))
	fmt.Printf("Output:        %s (%s total)\n", filepath.Base(c.options.OutputPath), humanize.Bytes(c.stats.OutputFileSize))
	fmt.Printf("Chapters:      %d\n", c.stats.Chapters)
	fmt.Printf("Variants:      %d (%v pt)\n", c.stats.Variants, sizes)
	fmt.Printf("Pages:         %s across all variants\n", humanize.Comma(int64(c.stats.Pages)))
	fmt.Printf("Glyphs:        %s packed\n", humanize.Comma(int64(c.stats.Glyphs)))
	fmt.Printf("Images:        %d embedded\n", c.stats.Images)
	fmt.Printf("Target device: %s\n", c.options.Profile.Name)
	fmt.Printf("Processing:    %v\n", c.stats.ProcessingTime.Round(time.Millisecond))
	fmt.Printf("================================================================\n")
}
