// Package process converts raw sensor frames into deliverable images.
//
// Monochrome sensors are rescaled from their native bit depth to 8-bit
// grayscale. Bayer sensors are demosaiced to RGB24 using the sensor's
// color filter array phase, default white balance matrix, and color
// correction matrix. A passthrough pipeline skips both and delivers
// samples at the native bit depth as 16-bit grayscale.
package process

import (
	"fmt"

	"github.com/visikit/thorcam/pkg/frame"
	"github.com/visikit/thorcam/pkg/sdk"
)

// Pipeline converts RawFrames from one camera into Frames.
// A Pipeline is bound to the sensor it was created for and is safe for
// use from a single goroutine (the acquisition loop).
type Pipeline struct {
	sensor      sdk.Sensor
	passthrough bool

	// matrix is the combined correction applied to demosaiced color:
	// color correction x white balance, row-major 3x3.
	matrix [9]float64

	// scratch demosaic planes, reused across frames
	r, g, b []float64
}

// New creates a Pipeline for the given sensor.
func New(sensor sdk.Sensor) *Pipeline {
	p := &Pipeline{sensor: sensor}
	if sensor.IsColor() {
		p.matrix = matmul3(sensor.ColorCorrection, sensor.WhiteBalance)
		n := sensor.Width * sensor.Height
		p.r = make([]float64, n)
		p.g = make([]float64, n)
		p.b = make([]float64, n)
	}
	return p
}

// NewPassthrough creates a Pipeline that delivers samples at the native
// bit depth as 16-bit grayscale, with no rescaling or demosaicing.
// Bayer sensors deliver the raw mosaic.
func NewPassthrough(sensor sdk.Sensor) *Pipeline {
	return &Pipeline{sensor: sensor, passthrough: true}
}

// Sensor returns the sensor this pipeline was built for.
func (p *Pipeline) Sensor() sdk.Sensor {
	return p.sensor
}

// Process converts a raw frame, stamping it with the given sequence number.
func (p *Pipeline) Process(raw *sdk.RawFrame, seq uint64) (*frame.Frame, error) {
	if raw == nil {
		return nil, fmt.Errorf("process: nil raw frame")
	}
	if len(raw.Pixels) != raw.Width*raw.Height {
		return nil, fmt.Errorf("process: raw frame has %d pixels, want %d",
			len(raw.Pixels), raw.Width*raw.Height)
	}

	out := &frame.Frame{
		Width:     raw.Width,
		Height:    raw.Height,
		BitDepth:  8,
		Seq:       seq,
		Timestamp: raw.Timestamp,
	}

	if p.passthrough {
		out.Format = frame.Mono16
		out.BitDepth = raw.BitDepth
		out.Data = packMono16(raw)
	} else if p.sensor.IsColor() {
		out.Format = frame.RGB24
		out.Data = p.demosaic(raw)
	} else {
		out.Format = frame.Mono8
		out.Data = scaleMono(raw)
	}

	return out, nil
}

// packMono16 stores raw samples little-endian, two bytes per pixel.
func packMono16(raw *sdk.RawFrame) []byte {
	data := make([]byte, len(raw.Pixels)*2)
	for i, px := range raw.Pixels {
		data[i*2] = byte(px)
		data[i*2+1] = byte(px >> 8)
	}
	return data
}

// scaleMono rescales raw samples to 8 bits.
func scaleMono(raw *sdk.RawFrame) []byte {
	shift := uint(0)
	if raw.BitDepth > 8 {
		shift = uint(raw.BitDepth - 8)
	}

	data := make([]byte, len(raw.Pixels))
	for i, px := range raw.Pixels {
		data[i] = byte(px >> shift)
	}
	return data
}

// demosaic interpolates the Bayer mosaic to RGB24, then applies the
// combined white balance and color correction matrix.
func (p *Pipeline) demosaic(raw *sdk.RawFrame) []byte {
	w, h := raw.Width, raw.Height
	maxVal := float64(uint32(1)<<uint(raw.BitDepth) - 1)

	// Interpolate each channel as the average of same-color samples in
	// the 3x3 neighborhood. The pixel's own sample dominates when it
	// carries the channel.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			p.r[i] = p.neighborhoodAvg(raw, x, y, 'R')
			p.g[i] = p.neighborhoodAvg(raw, x, y, 'G')
			p.b[i] = p.neighborhoodAvg(raw, x, y, 'B')
		}
	}

	m := p.matrix
	data := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		r := m[0]*p.r[i] + m[1]*p.g[i] + m[2]*p.b[i]
		g := m[3]*p.r[i] + m[4]*p.g[i] + m[5]*p.b[i]
		b := m[6]*p.r[i] + m[7]*p.g[i] + m[8]*p.b[i]

		data[i*3] = quantize(r, maxVal)
		data[i*3+1] = quantize(g, maxVal)
		data[i*3+2] = quantize(b, maxVal)
	}
	return data
}

// neighborhoodAvg averages the samples of the wanted CFA color in the
// 3x3 window around (x, y), clamping at the sensor edges.
func (p *Pipeline) neighborhoodAvg(raw *sdk.RawFrame, x, y int, want byte) float64 {
	if p.cfaColor(x, y) == want {
		return float64(raw.Pixels[y*raw.Width+x])
	}

	var sum float64
	var n int
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= raw.Width || ny >= raw.Height {
				continue
			}
			if p.cfaColor(nx, ny) == want {
				sum += float64(raw.Pixels[ny*raw.Width+nx])
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// cfaColor returns 'R', 'G' or 'B' for the sensor position (x, y)
// according to the color filter array phase.
func (p *Pipeline) cfaColor(x, y int) byte {
	// pattern index within the repeating 2x2 cell
	idx := (y&1)<<1 | x&1

	switch p.sensor.Phase {
	case sdk.PhaseBayerRed: // R G / G B
		return [4]byte{'R', 'G', 'G', 'B'}[idx]
	case sdk.PhaseGreenLeftOfRed: // G R / B G
		return [4]byte{'G', 'R', 'B', 'G'}[idx]
	case sdk.PhaseGreenLeftOfBlue: // G B / R G
		return [4]byte{'G', 'B', 'R', 'G'}[idx]
	case sdk.PhaseBayerBlue: // B G / G R
		return [4]byte{'B', 'G', 'G', 'R'}[idx]
	default:
		return 'G'
	}
}

// quantize clamps v to [0, maxVal] and rescales to 8 bits.
func quantize(v, maxVal float64) byte {
	if v < 0 {
		v = 0
	}
	if v > maxVal {
		v = maxVal
	}
	return byte(v/maxVal*255 + 0.5)
}

// matmul3 multiplies two row-major 3x3 matrices.
func matmul3(a, b [9]float64) [9]float64 {
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[i*3+k] * b[k*3+j]
			}
			out[i*3+j] = sum
		}
	}
	return out
}
