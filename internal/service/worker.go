// Package service runs resolve requests arriving on a message queue and
// publishes their envelopes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"mapagent/models"
)

// MessageIterator is the consuming side of the queue. Messages is closed when
// the consumer stops.
type MessageIterator interface {
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// Publisher is the producing side of the queue.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Resolver answers one prompt.
type Resolver interface {
	Resolve(ctx context.Context, prompt, model string) models.SearchResultEnvelope
}

// Request is the message consumed from the request topic.
type Request struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// Result is the message published to the result topic, keyed by request id.
type Result struct {
	ID       string                      `json:"id"`
	Envelope models.SearchResultEnvelope `json:"envelope"`
}

// Default publish retry backoff, doubled after every failure up to the cap.
const (
	DefaultRetryBackoff = 500 * time.Millisecond
	MaxRetryBackoff     = 30 * time.Second
)

// Worker processes one message at a time: decode, resolve, publish, commit.
// Group offsets are cumulative, so a message is never passed over: a failing
// publish is retried until it succeeds or ctx is done. Undecodable requests
// are committed and dropped.
type Worker struct {
	messages  MessageIterator
	resolver  Resolver
	publisher Publisher
	logger    *zap.Logger
	backoff   time.Duration
}

func NewWorker(messages MessageIterator, resolver Resolver, publisher Publisher, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		messages:  messages,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		backoff:   DefaultRetryBackoff,
	}
}

// Run blocks until the message channel is closed or ctx is done. A message
// whose result was not published when ctx ends is left uncommitted.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.messages.Messages():
			if !ok {
				return
			}
			if err := w.handle(ctx, msg); err != nil {
				w.logger.Warn("stopping before commit", zap.Int64("offset", msg.Offset), zap.Error(err))
				return
			}
			if err := w.messages.CommitOffset(ctx, msg); err != nil {
				w.logger.Error("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
			}
		}
	}
}

// handle returns an error only when ctx ended before the result was published.
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	var req Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		w.logger.Warn("dropping malformed request", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	if req.ID == "" {
		req.ID = string(msg.Key)
	}

	env := w.resolver.Resolve(ctx, req.Prompt, req.Model)

	body, err := json.Marshal(Result{ID: req.ID, Envelope: env})
	if err != nil {
		// deterministic, a retry would fail the same way
		w.logger.Error("dropping unencodable result", zap.String("id", req.ID), zap.Error(err))
		return nil
	}
	if err := w.publish(ctx, []byte(req.ID), body); err != nil {
		return fmt.Errorf("publish result %s: %w", req.ID, err)
	}
	w.logger.Info("request resolved", zap.String("id", req.ID), zap.Int("places", len(env.Places)))
	return nil
}

func (w *Worker) publish(ctx context.Context, key, body []byte) error {
	backoff := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.publisher.Publish(ctx, key, body)
		if err == nil {
			return nil
		}
		w.logger.Warn("publish failed, retrying",
			zap.ByteString("id", key), zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MaxRetryBackoff)
	}
}
