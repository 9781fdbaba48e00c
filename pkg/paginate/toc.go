package paginate

import "github.com/alde/trbk/pkg/trbk"

// SourceEntry is a table-of-contents entry before page resolution: a
// title anchored to a source chapter index at a nesting level.
type SourceEntry struct {
	Title   string
	Chapter int
	Level   int
}

// BuildTOC resolves source entries against the finished pages. Each
// entry maps to the first page whose chapter is at or past the entry's
// chapter; entries whose chapters produced no pages at all (and have
// no later content either) are dropped. The resulting page indices are
// non-decreasing in source order.
func BuildTOC(entries []SourceEntry, pages []Page) []trbk.TocEntry {
	var toc []trbk.TocEntry
	for _, entry := range entries {
		page, ok := firstPageAtOrAfter(pages, entry.Chapter)
		if !ok {
			continue
		}
		toc = append(toc, trbk.TocEntry{
			Title: entry.Title,
			Page:  page,
			Level: entry.Level,
		})
	}
	return toc
}

// firstPageAtOrAfter returns the first page index whose starting
// chapter is >= the given chapter.
func firstPageAtOrAfter(pages []Page, chapter int) (int, bool) {
	for i, page := range pages {
		if page.Chapter >= chapter {
			return i, true
		}
	}
	return 0, false
}
