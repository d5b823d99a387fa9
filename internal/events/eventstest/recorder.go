// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"encoding/json"
	"sync"
)

type Message struct {
	RoutingKey string
	Body       []byte
}

// Recorder keeps every published message. Set Err to make publishes fail.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Err  error
}

func (r *Recorder) PublishJSON(_ context.Context, routingKey string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, Message{RoutingKey: routingKey, Body: body})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.RoutingKey)
	}
	return out
}

// Decode unmarshals the i-th message into v.
func (r *Recorder) Decode(i int, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Unmarshal(r.msgs[i].Body, v)
}
