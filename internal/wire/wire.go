// Package wire implements the JSON frame format spoken on the real-time transport.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/G-m007/EmoStream/internal/domain"
)

// Frame types.
const (
	TypeConnect       = "connect"
	TypeEmoji         = "emoji"
	TypeEmotionResult = "emotion_result"
)

// ErrInformational marks frames that carry no event (e.g. "connect").
var ErrInformational = errors.New("informational frame")

// Message is one JSON frame. Field order matches the frames clients expect.
// Relayed frames are re-encoded from these fields; unknown fields are dropped.
type Message struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	Emoji     string          `json:"emoji"`
	Timestamp int64           `json:"timestamp"`
	Stats     json.RawMessage `json:"stats,omitempty"`
}

// Decode parses a frame into an Event.
// Returns ErrInformational for frames that should not be routed.
func Decode(data []byte) (domain.Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Event{}, fmt.Errorf("decode frame: %w", err)
	}

	switch msg.Type {
	case TypeEmoji:
		return domain.NewReaction(msg.UserID, msg.Emoji, msg.Timestamp), nil
	case TypeEmotionResult:
		return domain.NewAggregateUpdate(msg.Emoji, msg.Timestamp, domain.AggregateStats(msg.Stats)), nil
	case TypeConnect:
		return domain.Event{OriginID: msg.UserID}, ErrInformational
	case "":
		return domain.Event{}, errors.New("decode frame: missing type")
	default:
		return domain.Event{}, fmt.Errorf("decode frame: unknown type %q", msg.Type)
	}
}

// Encode serializes an Event into its transport frame.
func Encode(e domain.Event) ([]byte, error) {
	var msg Message
	switch e.Kind {
	case domain.KindReaction:
		msg = Message{Type: TypeEmoji, UserID: e.OriginID, Emoji: e.Payload, Timestamp: e.Timestamp}
	case domain.KindAggregateUpdate:
		msg = Message{Type: TypeEmotionResult, Emoji: e.Payload, Timestamp: e.Timestamp, Stats: json.RawMessage(e.Stats)}
	default:
		return nil, fmt.Errorf("encode frame: unknown event kind %q", e.Kind)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}
