package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func frameOf(samples ...int16) []byte {
	frame := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	return frame
}

func TestLevelOfSilenceIsZero(t *testing.T) {
	info := GetDefaultEncodingInfo()
	if got := Level(frameOf(0, 0, 0, 0), info); got != 0 {
		t.Errorf("expected silence to meter at 0, got %f", got)
	}
}

func TestLevelOfFullScaleIsNearOne(t *testing.T) {
	info := GetDefaultEncodingInfo()
	got := Level(frameOf(math.MaxInt16, math.MaxInt16, math.MaxInt16, math.MaxInt16), info)
	if math.Abs(got-1) > 0.001 {
		t.Errorf("expected full-scale level near 1, got %f", got)
	}
}

func TestLevelScalesWithAmplitude(t *testing.T) {
	info := GetDefaultEncodingInfo()
	quiet := Level(frameOf(1000, -1000, 1000, -1000), info)
	loud := Level(frameOf(20000, -20000, 20000, -20000), info)
	if quiet >= loud {
		t.Errorf("expected louder frame to meter higher, got quiet=%f loud=%f", quiet, loud)
	}
}

func TestLevelOfNonLinearFormatsIsZero(t *testing.T) {
	info := EncodingInfo{SampleRate: 8000, Channels: 1, Format: EncodingMulaw}
	if got := Level([]byte{0x10, 0x20, 0x30, 0x40}, info); got != 0 {
		t.Errorf("expected companded formats to meter at 0, got %f", got)
	}
}

func TestMeterRetainsLastMeasurement(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	level := meter.Update(frameOf(10000, -10000, 10000, -10000))
	if level <= 0 {
		t.Fatalf("expected positive level, got %f", level)
	}
	if got := meter.Value(); got != level {
		t.Errorf("expected Value to return last update %f, got %f", level, got)
	}

	meter.Reset()
	if got := meter.Value(); got != 0 {
		t.Errorf("expected 0 after reset, got %f", got)
	}
}
