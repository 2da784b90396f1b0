package audio

import "fmt"

// CaptureError reports a device or permission failure while acquiring input
// audio. The capture pipeline stops; playback is unaffected.
type CaptureError struct {
	Device string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("audio capture failed on %s: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("audio capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
