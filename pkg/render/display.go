package render

// RefreshMode selects the e-ink update waveform: fast partial updates
// are low-latency but accumulate ghosting; full refreshes settle the
// panel completely.
type RefreshMode uint8

const (
	RefreshFast RefreshMode = iota
	RefreshFull
)

// Display is the physical panel sink. The driver behind it owns the
// SPI/LUT details; this core only chooses between a binary refresh and
// an absolute or differential grayscale overlay commit.
type Display interface {
	// Refresh pushes a packed 1bpp frame using the given mode.
	Refresh(frame []byte, mode RefreshMode) error
	// CommitGray2 pushes the two overlay planes. A differential commit
	// only transitions pixels that changed since the last commit.
	CommitGray2(lsb, msb []byte, differential bool) error
}
