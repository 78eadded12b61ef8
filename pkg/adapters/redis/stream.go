package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// StreamSink implements ports.CommitSink by appending each reply to a Redis Stream.
// Downstream consumers (e.g. a comments service) read the stream with XREAD.
type StreamSink struct {
	client *backend.Client
	stream string
	maxLen int64
}

// NewStreamSink creates a sink writing to stream. A positive maxLen trims the
// stream approximately to that many entries.
func NewStreamSink(client *backend.Client, stream string, maxLen int64) *StreamSink {
	return &StreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Commit appends the reply to the stream.
func (s *StreamSink) Commit(ctx context.Context, subjectID, parentID string, node domain.CommentNode) error {
	payload, err := json.Marshal(node.Leaf())
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"subject": subjectID,
			"parent":  parentID,
			"node":    string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append reply to stream: %w", err)
	}
	return nil
}
