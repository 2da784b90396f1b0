package events

import (
	"errors"
	"strings"
	"testing"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "connection state changed", event: NewConnectionStateChanged("connecting"), expected: KindConnectionStateChanged},
		{name: "connected", event: NewConnected("sess", false), expected: KindConnected},
		{name: "disconnected", event: NewDisconnected(true), expected: KindDisconnected},
		{name: "connection failed", event: NewConnectionFailed(errors.New("boom")), expected: KindConnectionFailed},
		{name: "protocol violation", event: NewProtocolViolation("bad frame"), expected: KindProtocolViolation},
		{name: "turn started", event: NewTurnStarted("turn-1", "assistant"), expected: KindTurnStarted},
		{name: "turn ended", event: NewTurnEnded("turn-1", "assistant"), expected: KindTurnEnded},
		{name: "session replaced", event: NewSessionReplaced("sess"), expected: KindSessionReplaced},
		{name: "session updated", event: NewSessionUpdated("sess"), expected: KindSessionUpdated},
		{name: "transcript item appended", event: NewTranscriptItemAppended(0), expected: KindTranscriptItemAppended},
		{name: "transcript item updated", event: NewTranscriptItemUpdated(0), expected: KindTranscriptItemUpdated},
		{name: "transcript reset", event: NewTranscriptReset(3), expected: KindTranscriptReset},
		{name: "capture started", event: NewCaptureStarted(), expected: KindCaptureStarted},
		{name: "capture stopped", event: NewCaptureStopped(nil), expected: KindCaptureStopped},
		{name: "input level", event: NewInputLevel(0.5), expected: KindInputLevel},
		{name: "output level", event: NewOutputLevel(0.5), expected: KindOutputLevel},
		{name: "caption interim", event: NewCaptionInterim("par"), expected: KindCaptionInterim},
		{name: "caption final", event: NewCaptionFinal("partial"), expected: KindCaptionFinal},
		{name: "system alert", event: NewSystemAlert(SeverityWarning, "msg"), expected: KindSystemAlert},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected a non-zero timestamp for %q", testCase.expected)
			}
		})
	}
}

func TestKindsAreNamespaced(t *testing.T) {
	kinds := []Kind{
		KindConnectionStateChanged, KindConnected, KindDisconnected,
		KindConnectionFailed, KindProtocolViolation,
		KindTurnStarted, KindTurnEnded,
		KindSessionReplaced, KindSessionUpdated,
		KindTranscriptItemAppended, KindTranscriptItemUpdated, KindTranscriptReset,
		KindCaptureStarted, KindCaptureStopped, KindInputLevel, KindOutputLevel,
		KindCaptionInterim, KindCaptionFinal,
		KindSystemAlert,
	}

	seen := map[Kind]struct{}{}
	for _, kind := range kinds {
		if !strings.Contains(string(kind), ".") {
			t.Errorf("kind %q is missing a namespace", kind)
		}
		if _, duplicate := seen[kind]; duplicate {
			t.Errorf("kind %q declared twice", kind)
		}
		seen[kind] = struct{}{}
	}
}
