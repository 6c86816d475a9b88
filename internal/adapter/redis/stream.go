package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/G-m007/EmoStream/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// StreamField is the stream entry field holding the JSON log record.
const StreamField = "data"

// StreamLog is a domain.EventLog appending to a Redis stream with XADD.
// A positive maxLen trims the stream approximately to that length.
type StreamLog struct {
	rdb    *goredis.Client
	stream string
	maxLen int64
}

func NewStreamLog(rdb *goredis.Client, stream string, maxLen int64) *StreamLog {
	return &StreamLog{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *StreamLog) Append(ctx context.Context, record domain.LogRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}

	err = s.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]any{StreamField: string(value)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *StreamLog) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *StreamLog) Close() error {
	return s.rdb.Close()
}
