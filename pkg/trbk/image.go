package trbk

import (
	"bytes"
	"encoding/binary"
)

// TRIM is the self-describing embedded image payload format.
const (
	trimMagic      = "TRIM"
	trimVersion    = 1
	trimHeaderSize = 16
)

// ImageKind selects the TRIM pixel encoding.
type ImageKind uint8

const (
	// ImageMono is a single packed 1bpp plane (bit set = white).
	ImageMono ImageKind = 0
	// ImageGray2 is three concatenated bitplanes (bw, lsb, msb)
	// encoding four gray levels plus black.
	ImageGray2 ImageKind = 1
)

// ImageAsset is one decoded embedded image. For ImageMono, Data is a
// single plane; for ImageGray2 it is the bw, lsb and msb planes
// concatenated, each PlaneLen bytes.
type ImageAsset struct {
	Width  int
	Height int
	Kind   ImageKind
	Data   []byte
}

// PlaneLen returns the byte length of one packed bitplane.
func (a *ImageAsset) PlaneLen() int {
	return (a.Width*a.Height + 7) / 8
}

// Planes splits a gray2 asset into its three bitplanes without
// copying. Mono assets return the single plane as bw with nil gray
// planes.
func (a *ImageAsset) Planes() (bw, lsb, msb []byte) {
	n := a.PlaneLen()
	if a.Kind == ImageMono {
		return a.Data[:n], nil, nil
	}
	return a.Data[:n], a.Data[n : 2*n], a.Data[2*n : 3*n]
}

// EncodeTRIM serializes an asset: magic, version, kind, dimensions,
// six reserved bytes, then the pixel data.
func EncodeTRIM(a *ImageAsset) []byte {
	var buf bytes.Buffer
	buf.Grow(trimHeaderSize + len(a.Data))
	buf.WriteString(trimMagic)
	buf.WriteByte(trimVersion)
	buf.WriteByte(byte(a.Kind))
	writeU16(&buf, uint16(a.Width))
	writeU16(&buf, uint16(a.Height))
	buf.Write(make([]byte, 6))
	buf.Write(a.Data)
	return buf.Bytes()
}

// DecodeTRIM parses a TRIM payload, validating magic, version, kind
// and data length against the declared dimensions.
func DecodeTRIM(data []byte) (*ImageAsset, error) {
	if len(data) < trimHeaderSize {
		return nil, decodeErrorf("TRIM payload truncated: %d bytes", len(data))
	}
	if string(data[:4]) != trimMagic {
		return nil, decodeErrorf("bad TRIM magic %q", data[:4])
	}
	if data[4] != trimVersion {
		return nil, &ImageError{Kind: ImageUnsupported, Msg: "unsupported TRIM version"}
	}
	kind := ImageKind(data[5])
	if kind != ImageMono && kind != ImageGray2 {
		return nil, &ImageError{Kind: ImageUnsupported, Msg: "unknown TRIM encoding kind"}
	}
	a := &ImageAsset{
		Width:  int(binary.LittleEndian.Uint16(data[6:])),
		Height: int(binary.LittleEndian.Uint16(data[8:])),
		Kind:   kind,
		Data:   data[trimHeaderSize:],
	}
	want := a.PlaneLen()
	if kind == ImageGray2 {
		want *= 3
	}
	if len(a.Data) != want {
		return nil, decodeErrorf("TRIM data length %d, want %d for %dx%d kind %d",
			len(a.Data), want, a.Width, a.Height, kind)
	}
	return a, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
