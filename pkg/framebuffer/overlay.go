package framebuffer

// Overlay holds the two extra bitplanes (lsb, msb) that extend the
// binary framebuffer to four gray levels. The overlay shares the
// logical coordinate system and rotation of its Buffers.
type Overlay struct {
	fb  *Buffers
	lsb []byte
	msb []byte
}

// NewOverlay allocates cleared gray planes matching the framebuffer.
func NewOverlay(fb *Buffers) *Overlay {
	n := (fb.physW*fb.physH + 7) / 8
	return &Overlay{
		fb:  fb,
		lsb: make([]byte, n),
		msb: make([]byte, n),
	}
}

// Clear zeroes both gray planes.
func (o *Overlay) Clear() {
	for i := range o.lsb {
		o.lsb[i] = 0
		o.msb[i] = 0
	}
}

// Set writes one logical pixel's gray bits.
func (o *Overlay) Set(x, y int, lsb, msb bool) {
	if x < 0 || y < 0 || x >= o.fb.Width() || y >= o.fb.Height() {
		return
	}
	px, py := o.fb.phys(x, y)
	i := py*o.fb.physW + px
	mask := byte(0x80) >> uint(i&7)
	if lsb {
		o.lsb[i>>3] |= mask
	} else {
		o.lsb[i>>3] &^= mask
	}
	if msb {
		o.msb[i>>3] |= mask
	} else {
		o.msb[i>>3] &^= mask
	}
}

// Bits reads one logical pixel's gray bits. Out-of-range coordinates
// read as no gray.
func (o *Overlay) Bits(x, y int) (lsb, msb bool) {
	if x < 0 || y < 0 || x >= o.fb.Width() || y >= o.fb.Height() {
		return false, false
	}
	px, py := o.fb.phys(x, y)
	i := py*o.fb.physW + px
	mask := byte(0x80) >> uint(i&7)
	return o.lsb[i>>3]&mask != 0, o.msb[i>>3]&mask != 0
}

// Planes exposes the raw plane bytes for display commits.
func (o *Overlay) Planes() (lsb, msb []byte) { return o.lsb, o.msb }

// LoadPlanes copies pre-packed planes straight into the overlay.
// Used by the streamed full-screen image fast path.
func (o *Overlay) LoadPlanes(lsb, msb []byte) {
	copy(o.lsb, lsb)
	copy(o.msb, msb)
}

// Snapshot copies the current plane contents, for prefetch caching.
func (o *Overlay) Snapshot() (lsb, msb []byte) {
	lsb = make([]byte, len(o.lsb))
	msb = make([]byte, len(o.msb))
	copy(lsb, o.lsb)
	copy(msb, o.msb)
	return lsb, msb
}
