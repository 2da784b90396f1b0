// Package captions defines the provider-independent surface for live
// captioning of outbound microphone audio. Captioning is a local nicety
// layered next to the conversation stream; the service never sees it.
package captions

import "github.com/otolabs/oto-core/core/audio"

// Options collects caption callbacks. Callbacks that are nil disable the
// corresponding provider feature.
type Options struct {
	EncodingInfo audio.EncodingInfo

	// CaptionCallback receives one finalized caption per utterance.
	CaptionCallback func(text string)
	// InterimCaptionCallback receives low-latency partial captions that may
	// be revised by the finalized one.
	InterimCaptionCallback func(text string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()
}

type Option func(*Options)

func WithEncoding(info audio.EncodingInfo) Option {
	return func(o *Options) {
		o.EncodingInfo = info
	}
}

func WithCaptionCallback(callback func(text string)) Option {
	return func(o *Options) {
		o.CaptionCallback = callback
	}
}

func WithInterimCaptionCallback(callback func(text string)) Option {
	return func(o *Options) {
		o.InterimCaptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) Option {
	return func(o *Options) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) Option {
	return func(o *Options) {
		o.SpeechEndedCallback = callback
	}
}
