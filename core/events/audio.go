package events

const (
	// KindCaptureStarted identifies the start of microphone capture.
	KindCaptureStarted Kind = "audio.capture_started"
	// KindCaptureStopped identifies the end of microphone capture.
	KindCaptureStopped Kind = "audio.capture_stopped"
	// KindInputLevel identifies an outbound level measurement.
	KindInputLevel Kind = "audio.input_level"
	// KindOutputLevel identifies an inbound level measurement.
	KindOutputLevel Kind = "audio.output_level"
)

// CaptureStarted marks the start of microphone capture.
type CaptureStarted struct{ Base }

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted() CaptureStarted {
	return CaptureStarted{Base: newBase(KindCaptureStarted)}
}

// CaptureStopped marks the end of capture. Err is set when the stop was
// caused by a device failure rather than an explicit stop request.
type CaptureStopped struct {
	Base
	Err error
}

// NewCaptureStopped creates a capture stopped event.
func NewCaptureStopped(err error) CaptureStopped {
	return CaptureStopped{Base: newBase(KindCaptureStopped), Err: err}
}

// InputLevel carries the instantaneous level of the latest captured frame.
type InputLevel struct {
	Base
	Level float64
}

// NewInputLevel creates an input level event.
func NewInputLevel(level float64) InputLevel {
	return InputLevel{Base: newBase(KindInputLevel), Level: level}
}

// OutputLevel carries the instantaneous level of the latest playback frame.
type OutputLevel struct {
	Base
	Level float64
}

// NewOutputLevel creates an output level event.
func NewOutputLevel(level float64) OutputLevel {
	return OutputLevel{Base: newBase(KindOutputLevel), Level: level}
}
