package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"paybridge/internal/app/logger"
)

// Sink delivers a single message to a recipient. Best effort: the caller
// never rolls anything back on failure.
type Sink interface {
	Send(ctx context.Context, recipient, text string) error
}

// LogSink writes notifications to the log. Used when no chat transport is
// configured.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{logger: l.WithComponent("Notify.LogSink")}
}

func (s *LogSink) Send(_ context.Context, recipient, text string) error {
	s.logger.Info().Str("recipient", recipient).Str("text", text).Msg("Notification")
	return nil
}

// RedisSink publishes notifications to a redis channel consumed by the
// chat bot process.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
	}
}

type sinkMessage struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

func (s *RedisSink) Send(ctx context.Context, recipient, text string) error {
	b, err := json.Marshal(sinkMessage{Recipient: recipient, Text: text})
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, b).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}
