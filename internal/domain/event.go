package domain

import "encoding/json"

type EventKind string

const (
	KindReaction        EventKind = "reaction"
	KindAggregateUpdate EventKind = "aggregate_update"
)

// AggregateStats is produced by the external aggregation service.
// The relay passes it through without interpreting it.
type AggregateStats = json.RawMessage

// Event is a single relayed occurrence: one viewer's reaction or an
// aggregate update pushed by the aggregation collaborator.
type Event struct {
	Kind      EventKind
	OriginID  string
	Payload   string
	Timestamp int64 // epoch milliseconds
	Stats     AggregateStats
}

// NewReaction creates a reaction event.
func NewReaction(originID, payload string, timestamp int64) Event {
	return Event{Kind: KindReaction, OriginID: originID, Payload: payload, Timestamp: timestamp}
}

// NewAggregateUpdate creates an aggregate update event. stats is copied.
func NewAggregateUpdate(payload string, timestamp int64, stats AggregateStats) Event {
	return Event{
		Kind:      KindAggregateUpdate,
		Payload:   payload,
		Timestamp: timestamp,
		Stats:     append(AggregateStats(nil), stats...),
	}
}

// HasStats reports whether the event carries a non-null stats blob.
func (e Event) HasStats() bool {
	return len(e.Stats) > 0 && string(e.Stats) != "null"
}

// LogRecord is the durable log wire contract for a reaction event.
type LogRecord struct {
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Timestamp int64  `json:"timestamp"`
}

// LogRecordFor builds the durable log record of a reaction event.
func LogRecordFor(e Event) LogRecord {
	return LogRecord{UserID: e.OriginID, Emoji: e.Payload, Timestamp: e.Timestamp}
}
