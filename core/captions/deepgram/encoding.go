package deepgram

import (
	"fmt"

	"github.com/otolabs/oto-core/core/audio"
)

type streamEncoding struct {
	SampleRate int
	Format     string
}

// convertEncoding maps the engine's encoding onto Deepgram's listen
// parameters. The companded formats are only defined at 8kHz.
func convertEncoding(encoding audio.EncodingInfo) (*streamEncoding, error) {
	converted := streamEncoding{}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		converted.SampleRate = encoding.SampleRate
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = "linear16"
	case audio.EncodingALaw:
		converted.Format = "alaw"
	case audio.EncodingMulaw:
		converted.Format = "mulaw"
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}
	if converted.Format != "linear16" && converted.SampleRate != 8000 {
		return nil, fmt.Errorf("%s encoding requires an 8kHz sample rate", converted.Format)
	}

	return &converted, nil
}
