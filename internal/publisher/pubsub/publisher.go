// Package pubsub publishes audit lifecycle events to Google Cloud
// Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Publisher sends JSON-encoded events to Pub/Sub topics. Topic handles
// are cached so repeated publishes reuse the same batching goroutines.
type Publisher struct {
	client *gcppubsub.Client
	logger *zap.Logger

	mu     sync.Mutex
	topics map[string]*gcppubsub.Topic
}

// New connects a Publisher for the given project.
func New(ctx context.Context, projectID string, logger *zap.Logger) (*Publisher, error) {
	client, err := gcppubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Publisher{
		client: client,
		logger: logger,
		topics: make(map[string]*gcppubsub.Topic),
	}, nil
}

// Publish JSON-encodes the payload and publishes it, blocking until
// the server acknowledges.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	t := p.topicFor(topic)
	result := t.Publish(ctx, &gcppubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug("published event",
		zap.String("topic", topic),
		zap.String("message_id", id))
	return id, nil
}

func (p *Publisher) topicFor(name string) *gcppubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		return t
	}
	t := p.client.Topic(name)
	p.topics[name] = t
	return t
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}
