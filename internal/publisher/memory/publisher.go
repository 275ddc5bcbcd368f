// Package memory keeps a bounded, in-process log of published pass summaries.
// Payloads are encoded to JSON exactly as the Pub/Sub publisher sends them, so
// the log shows what a subscriber would receive.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// DefaultCapacity bounds each topic's log when New is given zero.
const DefaultCapacity = 100

// Message is one logged publish.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Decode unmarshals the message body into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode message %s: %w", m.ID, err)
	}
	return nil
}

// Publisher logs the most recent messages per topic and drops the oldest
// once a topic reaches capacity.
type Publisher struct {
	capacity int

	mu     sync.Mutex
	seq    map[string]int
	topics map[string][]Message
}

// New returns an empty Publisher retaining up to capacity messages per topic.
func New(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{
		capacity: capacity,
		seq:      make(map[string]int),
		topics:   make(map[string][]Message),
	}
}

// Publish encodes payload and appends it to the topic's log. Ids are
// "<topic>-<n>" with n counting every publish on that topic, evicted or not.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish canceled: %w", err)
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq[topic]++
	msg := Message{ID: topic + "-" + strconv.Itoa(p.seq[topic]), Topic: topic, Data: data}
	log := append(p.topics[topic], msg)
	if len(log) > p.capacity {
		log = append([]Message(nil), log[len(log)-p.capacity:]...)
	}
	p.topics[topic] = log
	return msg.ID, nil
}

// Messages returns the retained messages for topic, oldest first.
func (p *Publisher) Messages(topic string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.topics[topic]...)
}

// Last returns the newest retained message for topic.
func (p *Publisher) Last(topic string) (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	log := p.topics[topic]
	if len(log) == 0 {
		return Message{}, false
	}
	return log[len(log)-1], true
}
