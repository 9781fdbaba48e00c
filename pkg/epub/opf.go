package epub

import (
	"encoding/xml"
	"fmt"
)

// parsed OPF package document: metadata plus the spine's chapter
// hrefs in reading order.
type opfPackage struct {
	meta       Metadata
	spineHrefs []string
}

func parseContainer(content []byte) (string, error) {
	type container struct {
		Rootfiles struct {
			Rootfile []struct {
				FullPath string `xml:"full-path,attr"`
			} `xml:"rootfile"`
		} `xml:"rootfiles"`
	}

	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return "", fmt.Errorf("failed to parse container.xml: %w", err)
	}
	if len(c.Rootfiles.Rootfile) == 0 {
		return "", fmt.Errorf("no rootfile found in container.xml")
	}
	return c.Rootfiles.Rootfile[0].FullPath, nil
}

func parseOPF(content []byte) (*opfPackage, error) {
	type opf struct {
		Metadata struct {
			Title      []string `xml:"title"`
			Creator    []string `xml:"creator"`
			Language   []string `xml:"language"`
			Identifier []string `xml:"identifier"`
		} `xml:"metadata"`
		Manifest struct {
			Item []struct {
				ID   string `xml:"id,attr"`
				Href string `xml:"href,attr"`
			} `xml:"item"`
		} `xml:"manifest"`
		Spine struct {
			ItemRef []struct {
				IDRef string `xml:"idref,attr"`
			} `xml:"itemref"`
		} `xml:"spine"`
	}

	var p opf
	if err := xml.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	pkg := &opfPackage{}
	if len(p.Metadata.Title) > 0 {
		pkg.meta.Title = p.Metadata.Title[0]
	}
	if len(p.Metadata.Creator) > 0 {
		pkg.meta.Author = p.Metadata.Creator[0]
	}
	if len(p.Metadata.Language) > 0 {
		pkg.meta.Language = p.Metadata.Language[0]
	}
	if len(p.Metadata.Identifier) > 0 {
		pkg.meta.Identifier = p.Metadata.Identifier[0]
	}

	idToHref := make(map[string]string)
	for _, item := range p.Manifest.Item {
		idToHref[item.ID] = item.Href
	}
	for _, ref := range p.Spine.ItemRef {
		if href, ok := idToHref[ref.IDRef]; ok {
			pkg.spineHrefs = append(pkg.spineHrefs, href)
		}
	}
	if len(pkg.spineHrefs) == 0 {
		return nil, fmt.Errorf("OPF spine references no readable items")
	}
	return pkg, nil
}
