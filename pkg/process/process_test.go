package process

import (
	"testing"
	"time"

	"github.com/visikit/thorcam/pkg/frame"
	"github.com/visikit/thorcam/pkg/sdk"
)

func monoSensor(w, h, depth int) sdk.Sensor {
	return sdk.Sensor{
		Type:     sdk.SensorMonochrome,
		Width:    w,
		Height:   h,
		BitDepth: depth,
	}
}

func bayerSensor(w, h, depth int, phase sdk.CFAPhase) sdk.Sensor {
	return sdk.Sensor{
		Type:            sdk.SensorBayer,
		Width:           w,
		Height:          h,
		BitDepth:        depth,
		Phase:           phase,
		ColorCorrection: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		WhiteBalance:    [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}
}

func rawFrame(sensor sdk.Sensor, fill uint16) *sdk.RawFrame {
	pixels := make([]uint16, sensor.Width*sensor.Height)
	for i := range pixels {
		pixels[i] = fill
	}
	return &sdk.RawFrame{
		Pixels:    pixels,
		Width:     sensor.Width,
		Height:    sensor.Height,
		BitDepth:  sensor.BitDepth,
		Timestamp: time.Now(),
	}
}

func TestProcess_MonoScaling(t *testing.T) {
	sensor := monoSensor(4, 4, 12)
	p := New(sensor)

	raw := rawFrame(sensor, 0xFFF) // full-scale 12-bit
	f, err := p.Process(raw, 3)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if f.Format != frame.Mono8 {
		t.Fatalf("format: got %s, want mono8", f.Format)
	}
	if f.Seq != 3 {
		t.Errorf("seq: got %d, want 3", f.Seq)
	}
	for i, b := range f.Data {
		if b != 255 {
			t.Fatalf("pixel %d: got %d, want 255", i, b)
		}
	}
}

func TestProcess_MonoMidrange(t *testing.T) {
	sensor := monoSensor(2, 2, 10)
	p := New(sensor)

	raw := rawFrame(sensor, 512) // half-scale 10-bit
	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if f.Data[0] != 128 {
		t.Errorf("pixel: got %d, want 128", f.Data[0])
	}
}

func TestProcess_Mono8Passthrough(t *testing.T) {
	sensor := monoSensor(2, 2, 8)
	p := New(sensor)

	raw := rawFrame(sensor, 200)
	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if f.Data[0] != 200 {
		t.Errorf("pixel: got %d, want 200", f.Data[0])
	}
}

func TestProcess_BayerUniform(t *testing.T) {
	// A uniform mosaic with identity matrices must come out as uniform
	// gray: every channel interpolates to the same value.
	sensor := bayerSensor(8, 8, 12, sdk.PhaseBayerRed)
	p := New(sensor)

	raw := rawFrame(sensor, 0xFFF)
	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if f.Format != frame.RGB24 {
		t.Fatalf("format: got %s, want rgb24", f.Format)
	}
	if len(f.Data) != 8*8*3 {
		t.Fatalf("data length: got %d, want %d", len(f.Data), 8*8*3)
	}
	for i, b := range f.Data {
		if b != 255 {
			t.Fatalf("channel %d: got %d, want 255", i, b)
		}
	}
}

func TestProcess_BayerRedSite(t *testing.T) {
	// Light up only the red sample at (0,0) of an RGGB mosaic. The red
	// channel at that site must carry the sample; blue comes only from
	// distant sites and stays dark.
	sensor := bayerSensor(4, 4, 8, sdk.PhaseBayerRed)
	p := New(sensor)

	raw := rawFrame(sensor, 0)
	raw.Pixels[0] = 255

	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	r, g, b := f.Data[0], f.Data[1], f.Data[2]
	if r != 255 {
		t.Errorf("red at (0,0): got %d, want 255", r)
	}
	if g != 0 || b != 0 {
		t.Errorf("green/blue at (0,0): got %d/%d, want 0/0", g, b)
	}
}

func TestCFAColor_Phases(t *testing.T) {
	tests := []struct {
		phase sdk.CFAPhase
		// colors at (0,0), (1,0), (0,1), (1,1)
		want [4]byte
	}{
		{sdk.PhaseBayerRed, [4]byte{'R', 'G', 'G', 'B'}},
		{sdk.PhaseGreenLeftOfRed, [4]byte{'G', 'R', 'B', 'G'}},
		{sdk.PhaseGreenLeftOfBlue, [4]byte{'G', 'B', 'R', 'G'}},
		{sdk.PhaseBayerBlue, [4]byte{'B', 'G', 'G', 'R'}},
	}

	for _, tt := range tests {
		p := New(bayerSensor(4, 4, 8, tt.phase))
		got := [4]byte{
			p.cfaColor(0, 0),
			p.cfaColor(1, 0),
			p.cfaColor(0, 1),
			p.cfaColor(1, 1),
		}
		if got != tt.want {
			t.Errorf("phase %d: got %c%c/%c%c, want %c%c/%c%c", tt.phase,
				got[0], got[1], got[2], got[3],
				tt.want[0], tt.want[1], tt.want[2], tt.want[3])
		}
	}
}

func TestProcess_WhiteBalanceApplied(t *testing.T) {
	// Doubling the red row of the white balance matrix must double the
	// red output of a half-scale mosaic.
	sensor := bayerSensor(8, 8, 8, sdk.PhaseBayerRed)
	sensor.WhiteBalance = [9]float64{2, 0, 0, 0, 1, 0, 0, 0, 1}
	p := New(sensor)

	raw := rawFrame(sensor, 100)
	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	r, g := f.Data[0], f.Data[1]
	if r != 200 {
		t.Errorf("red: got %d, want 200", r)
	}
	if g != 100 {
		t.Errorf("green: got %d, want 100", g)
	}
}

func TestProcess_BadInput(t *testing.T) {
	p := New(monoSensor(4, 4, 12))

	if _, err := p.Process(nil, 0); err == nil {
		t.Error("expected error for nil raw frame")
	}

	raw := &sdk.RawFrame{Pixels: make([]uint16, 3), Width: 4, Height: 4}
	if _, err := p.Process(raw, 0); err == nil {
		t.Error("expected error for short pixel buffer")
	}
}

func TestMatmul3(t *testing.T) {
	a := [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	identity := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

	if got := matmul3(a, identity); got != a {
		t.Errorf("A*I: got %v, want %v", got, a)
	}
	if got := matmul3(identity, a); got != a {
		t.Errorf("I*A: got %v, want %v", got, a)
	}
}

func TestProcess_PassthroughMono16(t *testing.T) {
	sensor := monoSensor(2, 2, 10)
	p := NewPassthrough(sensor)

	raw := rawFrame(sensor, 0x0234)
	f, err := p.Process(raw, 7)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if f.Format != frame.Mono16 {
		t.Fatalf("format: got %s, want mono16", f.Format)
	}
	if f.BitDepth != 10 {
		t.Errorf("bit depth: got %d, want 10", f.BitDepth)
	}
	if !f.Valid() {
		t.Fatalf("frame invalid: %d bytes for %dx%d", len(f.Data), f.Width, f.Height)
	}
	// samples are stored little-endian, untouched
	if f.Data[0] != 0x34 || f.Data[1] != 0x02 {
		t.Errorf("sample bytes: got %#x %#x, want 0x34 0x02", f.Data[0], f.Data[1])
	}
}

func TestProcess_PassthroughKeepsBayerMosaic(t *testing.T) {
	sensor := bayerSensor(4, 4, 12, sdk.PhaseBayerRed)
	p := NewPassthrough(sensor)

	raw := rawFrame(sensor, 100)
	f, err := p.Process(raw, 0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if f.Format != frame.Mono16 {
		t.Errorf("format: got %s, want mono16 (raw mosaic)", f.Format)
	}
}
