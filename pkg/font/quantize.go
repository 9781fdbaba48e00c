package font

// The tri-level quantizer grades 8-bit luminance into five buckets
// through a four-threshold ladder and packs each pixel into three
// bitplanes: a black/white bit plus two grayscale bits (lsb, msb).
// The (bw,lsb,msb) tuples, darkest to lightest:
//
//	black      (0,0,0)
//	dark gray  (0,1,1)
//	gray       (0,0,1)
//	light gray (1,1,0)
//	white      (1,0,0)

// Luminance thresholds, darkest to lightest.
var grayLadder = [4]uint8{32, 96, 160, 224}

// QuantizeLevel grades one luminance value (0 = black, 255 = white)
// into its packed (bw, lsb, msb) bits.
func QuantizeLevel(v uint8) (bw, lsb, msb bool) {
	switch {
	case v >= grayLadder[3]: // white
		return true, false, false
	case v >= grayLadder[2]: // light gray
		return true, true, false
	case v >= grayLadder[1]: // gray
		return false, false, true
	case v >= grayLadder[0]: // dark gray
		return false, true, true
	default: // black
		return false, false, false
	}
}

// QuantizePlanes converts a row-major luminance cell into the three
// packed bitplanes. Each plane is (w*h+7)/8 bytes, MSB-first.
func QuantizePlanes(lum []byte, w, h int) (bw, lsb, msb []byte) {
	n := (w*h + 7) / 8
	bw = make([]byte, n)
	lsb = make([]byte, n)
	msb = make([]byte, n)
	for i := 0; i < w*h; i++ {
		b, l, m := QuantizeLevel(lum[i])
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
	}
	return bw, lsb, msb
}
