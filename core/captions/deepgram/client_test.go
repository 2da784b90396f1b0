package deepgram

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/otolabs/oto-core/core/audio"
	"github.com/otolabs/oto-core/core/captions"
)

func result(transcript string, isFinal, speechFinal bool) api.MessageResponse {
	payload := fmt.Sprintf(
		`{"type":"Results","is_final":%t,"speech_final":%t,"channel":{"alternatives":[{"transcript":%q}]}}`,
		isFinal, speechFinal, transcript,
	)
	var response api.MessageResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		panic(err)
	}
	return response
}

func TestFinalSegmentsAccumulateUntilUtteranceEnds(t *testing.T) {
	var captionCalls atomic.Int32
	var lastCaption atomic.Value
	options := captions.Options{
		CaptionCallback: func(text string) {
			captionCalls.Add(1)
			lastCaption.Store(text)
		},
	}

	client := NewCaptionClient(WithAPIKey("test-key"))
	client.processResult(result("hello", true, false), options)
	client.processResult(result("world", true, false), options)

	if got := captionCalls.Load(); got != 0 {
		t.Fatalf("expected no caption before the utterance ends, got %d", got)
	}

	client.processResult(result("", true, true), options)

	if got := captionCalls.Load(); got != 1 {
		t.Fatalf("expected one caption per utterance, got %d", got)
	}
	if got := lastCaption.Load(); got != "hello world" {
		t.Errorf("expected accumulated caption %q, got %q", "hello world", got)
	}

	// The accumulator resets between utterances.
	client.processResult(result("again", true, true), options)
	if got := lastCaption.Load(); got != "again" {
		t.Errorf("expected fresh accumulator, got %q", got)
	}
}

func TestInterimCaptionsIncludeAccumulatedPrefix(t *testing.T) {
	var interims []string
	options := captions.Options{
		InterimCaptionCallback: func(text string) { interims = append(interims, text) },
	}

	client := NewCaptionClient(WithAPIKey("test-key"))
	client.processResult(result("hello", true, false), options)
	client.processResult(result("wor", false, false), options)

	if len(interims) != 1 {
		t.Fatalf("expected one interim caption, got %d", len(interims))
	}
	if interims[0] != "hello wor" {
		t.Errorf("expected interim %q, got %q", "hello wor", interims[0])
	}
}

func TestEmptySegmentsAreIgnored(t *testing.T) {
	var captionCalls, endedCalls atomic.Int32
	options := captions.Options{
		CaptionCallback:     func(string) { captionCalls.Add(1) },
		SpeechEndedCallback: func() { endedCalls.Add(1) },
	}

	client := NewCaptionClient(WithAPIKey("test-key"))
	client.processResult(result("   ", true, true), options)

	if got := captionCalls.Load(); got != 0 {
		t.Errorf("expected blank utterances dropped, got %d captions", got)
	}
	if got := endedCalls.Load(); got != 1 {
		t.Errorf("expected speech-ended notification regardless, got %d", got)
	}
}

func TestConvertEncodingRejectsCompandedHighRates(t *testing.T) {
	_, err := convertEncoding(audio.EncodingInfo{
		SampleRate: 16000,
		Channels:   1,
		Format:     audio.EncodingMulaw,
	})
	if err == nil {
		t.Fatal("expected mulaw above 8kHz to be rejected")
	}

	converted, err := convertEncoding(audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("unexpected error for default encoding: %v", err)
	}
	if converted.Format != "linear16" || converted.SampleRate != 16000 {
		t.Errorf("unexpected conversion %+v", converted)
	}
}
