package events

const (
	// KindCaptionInterim identifies a revisable partial caption.
	KindCaptionInterim Kind = "caption.interim"
	// KindCaptionFinal identifies a finalized utterance caption.
	KindCaptionFinal Kind = "caption.final"
)

// CaptionInterim carries a low-latency partial caption of the user's
// outbound audio. Later interims and the final caption supersede it.
type CaptionInterim struct {
	Base
	Text string
}

func NewCaptionInterim(text string) CaptionInterim {
	return CaptionInterim{Base: newBase(KindCaptionInterim), Text: text}
}

// CaptionFinal carries one finalized caption per utterance.
type CaptionFinal struct {
	Base
	Text string
}

func NewCaptionFinal(text string) CaptionFinal {
	return CaptionFinal{Base: newBase(KindCaptionFinal), Text: text}
}
