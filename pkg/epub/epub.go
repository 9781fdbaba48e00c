// Package epub extracts ordered per-chapter blocks from an EPUB
// archive: paragraphs of styled runs, image references, and explicit
// page breaks, plus the book metadata and table-of-contents titles.
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// Metadata is the book identity read from the OPF package document.
type Metadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string
}

// Chapter is one spine item's extracted content. The slice index of a
// chapter is its spine (chapter) index throughout the pipeline.
type Chapter struct {
	Title  string
	Level  int
	Blocks []layout.Block
}

// Book is a fully extracted EPUB: metadata, chapters in spine order,
// and the raw bytes of every image referenced from chapter content,
// keyed by archive path.
type Book struct {
	Meta     Metadata
	Chapters []Chapter
	Images   map[string][]byte
}

// Extractor reads an EPUB archive.
type Extractor struct {
	filePath  string
	zipReader *zip.ReadCloser
}

// Open opens an EPUB file for extraction.
func Open(filePath string) (*Extractor, error) {
	zipReader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, &trbk.BookError{Kind: trbk.BookIo, Msg: "failed to open EPUB file", Err: err}
	}
	return &Extractor{
		filePath:  filePath,
		zipReader: zipReader,
	}, nil
}

// Close closes the underlying archive.
func (e *Extractor) Close() error {
	if e.zipReader != nil {
		return e.zipReader.Close()
	}
	return nil
}

// Extract reads the whole book: metadata, every spine chapter's
// blocks, and the referenced image bytes.
func (e *Extractor) Extract() (*Book, error) {
	opfPath, err := e.findOPFFile()
	if err != nil {
		return nil, &trbk.BookError{Kind: trbk.BookSourceFormat, Msg: "failed to locate OPF file", Err: err}
	}

	opfContent, err := e.readFileFromZip(opfPath)
	if err != nil {
		return nil, &trbk.BookError{Kind: trbk.BookSourceFormat, Msg: "failed to read OPF file", Err: err}
	}

	pkg, err := parseOPF(opfContent)
	if err != nil {
		return nil, &trbk.BookError{Kind: trbk.BookSourceFormat, Msg: "failed to parse OPF file", Err: err}
	}

	book := &Book{
		Meta:   pkg.meta,
		Images: make(map[string][]byte),
	}

	opfDir := path.Dir(opfPath)
	for i, href := range pkg.spineHrefs {
		chapterPath := resolvePath(opfDir, href)
		content, err := e.readFileFromZip(chapterPath)
		if err != nil {
			return nil, &trbk.BookError{
				Kind: trbk.BookSourceFormat,
				Msg:  fmt.Sprintf("failed to read chapter %d (%s)", i, chapterPath),
				Err:  err,
			}
		}

		chapter, imageSrcs, err := extractChapter(content, path.Dir(chapterPath))
		if err != nil {
			return nil, &trbk.BookError{
				Kind: trbk.BookSourceFormat,
				Msg:  fmt.Sprintf("failed to parse chapter %d (%s)", i, chapterPath),
				Err:  err,
			}
		}
		if chapter.Title == "" {
			chapter.Title = fmt.Sprintf("Chapter %d", i+1)
		}
		book.Chapters = append(book.Chapters, chapter)

		for _, src := range imageSrcs {
			if _, ok := book.Images[src]; ok {
				continue
			}
			if data, err := e.readFileFromZip(src); err == nil {
				book.Images[src] = data
			}
			// Missing image files stay unresolved; layout skips them
			// with a warning rather than failing the compile.
		}
	}

	return book, nil
}

// findOPFFile locates the OPF package document via
// META-INF/container.xml.
func (e *Extractor) findOPFFile() (string, error) {
	containerContent, err := e.readFileFromZip("META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("failed to read container.xml: %w", err)
	}

	fullPath, err := parseContainer(containerContent)
	if err != nil {
		return "", err
	}
	return fullPath, nil
}

// readFileFromZip reads a file from within the ZIP archive.
func (e *Extractor) readFileFromZip(p string) ([]byte, error) {
	for _, file := range e.zipReader.File {
		if file.Name == p {
			rc, err := file.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", p)
}

// resolvePath joins an href against the directory of the file that
// referenced it, normalizing any ../ segments.
func resolvePath(dir, href string) string {
	href = strings.TrimPrefix(href, "./")
	if dir == "." || dir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(dir, href))
}
