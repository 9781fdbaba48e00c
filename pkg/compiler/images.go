package compiler

import (
	"bytes"
	"image"
	"sort"

	"github.com/disintegration/imaging"

	// Embedded EPUB images arrive as JPEG, PNG or WebP.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/alde/trbk/pkg/font"
	"github.com/alde/trbk/pkg/layout"
	"github.com/alde/trbk/pkg/trbk"
)

// imageSet is the deduplicated embedded image table shared by every
// size variant: the source geometry never changes with font size.
type imageSet struct {
	assets []trbk.ImageAsset
	refs   map[string]layout.ImageRef
}

// buildImages decodes, fits and quantizes every referenced image.
// Sources that fail to decode are dropped; layout later skips their
// placements with a warning. Keys are processed in sorted order so the
// image table is deterministic.
func buildImages(sources map[string][]byte, maxW, maxH int, warnf func(string, ...interface{})) *imageSet {
	set := &imageSet{refs: make(map[string]layout.ImageRef)}

	keys := make([]string, 0, len(sources))
	for key := range sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		asset, err := quantizeImage(sources[key], maxW, maxH)
		if err != nil {
			warnf("dropping image %q: %v", key, err)
			continue
		}
		set.refs[key] = layout.ImageRef{
			Index:  len(set.assets),
			Width:  asset.Width,
			Height: asset.Height,
		}
		set.assets = append(set.assets, *asset)
	}
	return set
}

// quantizeImage converts one raster image to a TRIM asset: scale down
// to fit the page, grayscale, then grade each pixel through the
// tri-level ladder. Images with any mid-tone pixel become gray2;
// pure black-and-white sources pack into a single mono plane.
func quantizeImage(data []byte, maxW, maxH int) (*trbk.ImageAsset, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	if bounds.Dx() > maxW || bounds.Dy() > maxH {
		src = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}
	gray := imaging.Grayscale(src)

	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	n := (w*h + 7) / 8
	bw := make([]byte, n)
	lsb := make([]byte, n)
	msb := make([]byte, n)
	hasMidTones := false

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Grayscale NRGBA has R == G == B.
			lum := gray.NRGBAAt(x, y).R
			b, l, m := font.QuantizeLevel(lum)
			i := y*w + x
			mask := byte(0x80) >> uint(i&7)
			if b {
				bw[i>>3] |= mask
			}
			if l {
				lsb[i>>3] |= mask
			}
			if m {
				msb[i>>3] |= mask
			}
			if l || m {
				hasMidTones = true
			}
		}
	}

	asset := &trbk.ImageAsset{Width: w, Height: h}
	if hasMidTones {
		asset.Kind = trbk.ImageGray2
		asset.Data = append(append(bw, lsb...), msb...)
	} else {
		asset.Kind = trbk.ImageMono
		asset.Data = bw
	}
	return asset, nil
}
