package trbk

import "fmt"

// BookErrorKind classifies compiler-side failures.
type BookErrorKind int

const (
	BookIo BookErrorKind = iota
	BookSourceFormat
	BookInvalidOutput
)

func (k BookErrorKind) String() string {
	switch k {
	case BookIo:
		return "io"
	case BookSourceFormat:
		return "source format"
	case BookInvalidOutput:
		return "invalid output"
	default:
		return "unknown"
	}
}

// BookError is a compiler-side failure. A BookError aborts the whole
// size variant; no partial container is left on disk.
type BookError struct {
	Kind BookErrorKind
	Msg  string
	Err  error
}

func (e *BookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("book %s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("book %s error: %s", e.Kind, e.Msg)
}

func (e *BookError) Unwrap() error { return e.Err }

// ImageErrorKind classifies device-side failures.
type ImageErrorKind int

const (
	ImageIo ImageErrorKind = iota
	ImageDecode
	ImageUnsupported
	ImageMessage
)

func (k ImageErrorKind) String() string {
	switch k {
	case ImageIo:
		return "io"
	case ImageDecode:
		return "decode"
	case ImageUnsupported:
		return "unsupported"
	case ImageMessage:
		return "message"
	default:
		return "unknown"
	}
}

// ImageError is a device-side failure surfaced to the book reader.
// Failed page decodes carry ImageDecode; the reader turns them into a
// user-visible error state instead of crashing.
type ImageError struct {
	Kind ImageErrorKind
	Msg  string
	Err  error
}

func (e *ImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image %s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("image %s error: %s", e.Kind, e.Msg)
}

func (e *ImageError) Unwrap() error { return e.Err }

func decodeErrorf(format string, args ...interface{}) error {
	return &ImageError{Kind: ImageDecode, Msg: fmt.Sprintf(format, args...)}
}
