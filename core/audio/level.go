package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Level computes the instantaneous RMS level of a raw frame, normalized to
// [0, 1]. Only linear16 frames carry enough information to meter; other
// formats report zero.
func Level(frame []byte, info EncodingInfo) float64 {
	if info.Format != EncodingLinear16 || len(frame) < 2 {
		return 0
	}

	samples := len(frame) / 2
	var sum float64
	for i := 0; i < samples; i++ {
		sample := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		v := float64(sample) / math.MaxInt16
		sum += v * v
	}

	return math.Sqrt(sum / float64(samples))
}

// Meter retains the most recent level measurement so consumers can poll
// without subscribing to per-frame events. Safe for concurrent use.
type Meter struct {
	level atomic.Uint64

	encodingInfo EncodingInfo
}

func NewMeter(encodingInfo EncodingInfo) *Meter {
	return &Meter{encodingInfo: encodingInfo}
}

// Update meters the frame and returns the measured level.
func (m *Meter) Update(frame []byte) float64 {
	level := Level(frame, m.encodingInfo)
	m.level.Store(math.Float64bits(level))
	return level
}

// Value reports the level of the most recently metered frame.
func (m *Meter) Value() float64 {
	return math.Float64frombits(m.level.Load())
}

func (m *Meter) Reset() {
	m.level.Store(0)
}
