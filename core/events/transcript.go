package events

const (
	// KindTranscriptItemAppended identifies a newly appended chat item.
	KindTranscriptItemAppended Kind = "transcript.item_appended"
	// KindTranscriptItemUpdated identifies an in-place update of the
	// trailing streaming message.
	KindTranscriptItemUpdated Kind = "transcript.item_updated"
	// KindTranscriptReset identifies a rebuild from a history snapshot.
	KindTranscriptReset Kind = "transcript.reset"
)

// TranscriptItemAppended marks a new chat item at the given index.
type TranscriptItemAppended struct {
	Base
	Index int
}

// NewTranscriptItemAppended creates an item appended event.
func NewTranscriptItemAppended(index int) TranscriptItemAppended {
	return TranscriptItemAppended{Base: newBase(KindTranscriptItemAppended), Index: index}
}

// TranscriptItemUpdated marks an in-place mutation of the item at the given
// index. Only the trailing streaming message is ever updated in place.
type TranscriptItemUpdated struct {
	Base
	Index int
}

// NewTranscriptItemUpdated creates an item updated event.
func NewTranscriptItemUpdated(index int) TranscriptItemUpdated {
	return TranscriptItemUpdated{Base: newBase(KindTranscriptItemUpdated), Index: index}
}

// TranscriptReset marks a rebuild of the whole item sequence.
type TranscriptReset struct {
	Base
	ItemCount int
}

// NewTranscriptReset creates a transcript reset event.
func NewTranscriptReset(itemCount int) TranscriptReset {
	return TranscriptReset{Base: newBase(KindTranscriptReset), ItemCount: itemCount}
}
