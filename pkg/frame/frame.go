// Package frame defines the image frame type shared across thorcam.
//
// Frames are delivered by reference: once a frame leaves the acquisition
// loop its Data must be treated as read-only. Callers that need to mutate
// pixels must Clone first.
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// Format identifies the pixel layout of a frame's Data.
type Format string

const (
	// Mono8 is 8-bit grayscale, one byte per pixel.
	Mono8 Format = "mono8"
	// Mono16 is 16-bit grayscale, two bytes per pixel, little-endian.
	Mono16 Format = "mono16"
	// RGB24 is 8-bit-per-channel color, three bytes per pixel (R, G, B).
	RGB24 Format = "rgb24"
)

// BytesPerPixel returns the storage size of a single pixel.
func (f Format) BytesPerPixel() int {
	switch f {
	case Mono8:
		return 1
	case Mono16:
		return 2
	case RGB24:
		return 3
	default:
		return 0
	}
}

// Frame is a single captured image.
type Frame struct {
	// Data is the raw pixel buffer in the layout described by Format.
	// Shared by reference after delivery; must not be modified.
	Data []byte

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Format describes the pixel layout of Data.
	Format Format

	// BitDepth is the significant bits per sample as reported by the
	// sensor (8 for processed output, 10-16 for raw mono).
	BitDepth int

	// Seq is the sequence number assigned by the acquisition loop.
	// Monotonically increasing per stream; gaps indicate dropped frames.
	Seq uint64

	// Timestamp is the capture time.
	Timestamp time.Time
}

// Size returns the expected byte length of Data.
func (f *Frame) Size() int {
	return f.Width * f.Height * f.Format.BytesPerPixel()
}

// Valid reports whether Data matches the declared geometry.
func (f *Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Size()
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return &out
}

// Image returns a stdlib image view of the frame.
// Mono8 and RGB24 share the underlying buffer where possible;
// Mono16 is converted because image.Gray16 stores big-endian samples.
func (f *Frame) Image() (image.Image, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("frame: invalid geometry %dx%d %s with %d bytes",
			f.Width, f.Height, f.Format, len(f.Data))
	}

	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Format {
	case Mono8:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}, nil

	case Mono16:
		img := image.NewGray16(rect)
		for i := 0; i < len(f.Data); i += 2 {
			// little-endian sample to big-endian Gray16 storage
			img.Pix[i] = f.Data[i+1]
			img.Pix[i+1] = f.Data[i]
		}
		return img, nil

	case RGB24:
		img := image.NewRGBA(rect)
		for p, q := 0, 0; p < len(f.Data); p, q = p+3, q+4 {
			img.Pix[q] = f.Data[p]
			img.Pix[q+1] = f.Data[p+1]
			img.Pix[q+2] = f.Data[p+2]
			img.Pix[q+3] = 0xff
		}
		return img, nil

	default:
		return nil, fmt.Errorf("frame: unsupported format %q", f.Format)
	}
}

// EncodeJPEG encodes the frame as JPEG at the given quality (1-100).
func (f *Frame) EncodeJPEG(quality int) ([]byte, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("frame: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// At returns the pixel value at (x, y) scaled to 16 bits.
// Intended for tests and spot checks, not per-pixel iteration.
func (f *Frame) At(x, y int) color.Color {
	switch f.Format {
	case Mono8:
		v := f.Data[y*f.Width+x]
		return color.Gray{Y: v}
	case Mono16:
		i := (y*f.Width + x) * 2
		v := uint16(f.Data[i]) | uint16(f.Data[i+1])<<8
		return color.Gray16{Y: v}
	case RGB24:
		i := (y*f.Width + x) * 3
		return color.RGBA{R: f.Data[i], G: f.Data[i+1], B: f.Data[i+2], A: 0xff}
	default:
		return color.Gray{}
	}
}
