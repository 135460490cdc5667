package graph

// Reserved source_type tags. "content" marks user-visible streaming
// chunks and per-loop-iteration items; "end" is the canonical terminal
// output of a node, with "default" accepted as an alias wherever a
// terminal source_type is read or compared, then normalized to "end" so
// the rest of the engine only ever sees one value.
const (
	SourceTypeContent = "content"
	SourceTypeEnd     = "end"
	SourceTypeDefault = "default"
	SourceTypeVoid    = "void"
)

// NormalizeSourceType folds the "default" alias onto the canonical "end"
// tag. Every comparison against SourceTypeEnd in the executor and bypass
// engine goes through this so a node may emit either name.
func NormalizeSourceType(sourceType string) string {
	if sourceType == SourceTypeDefault {
		return SourceTypeEnd
	}
	return sourceType
}

// Payload is the value carried by an Event: the id of the node that
// produced it plus the value itself.
type Payload struct {
	ProducerID string
	Value      any
}

// Event is the typed envelope every node emits. A node's invocation
// produces a finite, ordered sequence of Events before it stops.
//
// Extras carries a content event's sideband structured payload (§6
// "extras"), e.g. send_message folding handle_send_extra into the same
// chunk as its text, rather than onto a disconnected later event.
type Event struct {
	SourceType string
	Payload    Payload
	Extras     map[string]any
}

// NewEvent builds an Event payload-wrapping value on behalf of producerID.
func NewEvent(producerID, sourceType string, value any) Event {
	return Event{
		SourceType: sourceType,
		Payload: Payload{
			ProducerID: producerID,
			Value:      value,
		},
	}
}
