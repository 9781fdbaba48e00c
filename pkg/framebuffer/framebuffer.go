// Package framebuffer provides the double-buffered 1-bit-per-pixel
// e-ink framebuffer with display-rotation-aware pixel addressing, plus
// the optional 2-bit grayscale overlay planes layered on top of it.
package framebuffer

// Rotation selects the logical orientation of the display.
type Rotation uint8

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Buffers is the physical framebuffer pair. Drawing always targets the
// back buffer; Flip promotes it to the front (displayed) buffer. A bit
// set means white, cleared means black.
type Buffers struct {
	physW  int
	physH  int
	rot    Rotation
	planes [2][]byte
	active int // index of the front buffer
}

// New allocates a buffer pair for a physical panel of w×h pixels.
// Both buffers start white.
func New(w, h int, rot Rotation) *Buffers {
	n := (w*h + 7) / 8
	b := &Buffers{physW: w, physH: h, rot: rot}
	for i := range b.planes {
		b.planes[i] = make([]byte, n)
		for j := range b.planes[i] {
			b.planes[i][j] = 0xFF
		}
	}
	return b
}

// Width returns the logical width after rotation.
func (b *Buffers) Width() int {
	if b.rot == Rotate90 || b.rot == Rotate270 {
		return b.physH
	}
	return b.physW
}

// Height returns the logical height after rotation.
func (b *Buffers) Height() int {
	if b.rot == Rotate90 || b.rot == Rotate270 {
		return b.physW
	}
	return b.physH
}

// Rotation returns the configured display rotation.
func (b *Buffers) Rotation() Rotation { return b.rot }

// Front returns the displayed buffer's bytes.
func (b *Buffers) Front() []byte { return b.planes[b.active] }

// Back returns the draw target buffer's bytes.
func (b *Buffers) Back() []byte { return b.planes[1-b.active] }

// Flip swaps the buffers, making the just-drawn page current.
func (b *Buffers) Flip() { b.active = 1 - b.active }

// ClearBack fills the back buffer white.
func (b *Buffers) ClearBack() {
	back := b.Back()
	for i := range back {
		back[i] = 0xFF
	}
}

// phys maps logical coordinates through the rotation onto the panel.
func (b *Buffers) phys(x, y int) (int, int) {
	switch b.rot {
	case Rotate90:
		return b.physW - 1 - y, x
	case Rotate180:
		return b.physW - 1 - x, b.physH - 1 - y
	case Rotate270:
		return y, b.physH - 1 - x
	default:
		return x, y
	}
}

// SetPixel writes one logical pixel into the back buffer. Out-of-range
// coordinates are ignored.
func (b *Buffers) SetPixel(x, y int, white bool) {
	if x < 0 || y < 0 || x >= b.Width() || y >= b.Height() {
		return
	}
	px, py := b.phys(x, y)
	i := py*b.physW + px
	mask := byte(0x80) >> uint(i&7)
	back := b.Back()
	if white {
		back[i>>3] |= mask
	} else {
		back[i>>3] &^= mask
	}
}

// Pixel reads one logical pixel from the back buffer.
func (b *Buffers) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width() || y >= b.Height() {
		return true
	}
	px, py := b.phys(x, y)
	i := py*b.physW + px
	return b.Back()[i>>3]&(0x80>>uint(i&7)) != 0
}

// LoadBack copies a pre-packed full frame straight into the back
// buffer. Used by the streamed full-screen image fast path; the frame
// must already be in physical (unrotated) layout.
func (b *Buffers) LoadBack(frame []byte) {
	copy(b.Back(), frame)
}
