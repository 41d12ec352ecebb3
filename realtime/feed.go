// Package realtime publishes worker location updates over Redis pub/sub.
// Consumers receive full-state replacement payloads, not deltas, and delivery
// order is not guaranteed; the latest received state always wins.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// WorkerLocation is the full state pushed on every update.
type WorkerLocation struct {
	WorkerID  string    `json:"workerId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Feed is a Redis-backed location channel, one channel per worker.
type Feed struct {
	rdb *redis.Client
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

func channelFor(workerID string) string {
	return "worker-location:" + workerID
}

// Publish pushes the worker's current state to all subscribers.
func (f *Feed) Publish(ctx context.Context, loc WorkerLocation) error {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now()
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, channelFor(loc.WorkerID), b).Err()
}

// Subscription delivers location updates for one worker until closed.
type Subscription struct {
	pubsub *redis.PubSub
	ch     chan WorkerLocation
	cancel context.CancelFunc
}

// Updates yields full-state payloads. The channel closes after Close.
func (s *Subscription) Updates() <-chan WorkerLocation { return s.ch }

// Close unsubscribes and stops the pump. Safe to call once.
func (s *Subscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

// Subscribe registers a listener for one worker's channel. Malformed payloads
// are dropped.
func (f *Feed) Subscribe(ctx context.Context, workerID string) (*Subscription, error) {
	pubsub := f.rdb.Subscribe(ctx, channelFor(workerID))
	// Force the subscription onto the wire before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{pubsub: pubsub, ch: make(chan WorkerLocation, 16), cancel: cancel}
	go func() {
		defer close(sub.ch)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var loc WorkerLocation
				if err := json.Unmarshal([]byte(msg.Payload), &loc); err != nil {
					continue
				}
				select {
				case sub.ch <- loc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}
