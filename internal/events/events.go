// Package events carries photo lifecycle notifications from the local object
// cache to background workers.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

type Type string

const (
	PhotoSaved   Type = "photo.saved"
	PhotoDeleted Type = "photo.deleted"
)

type Event struct {
	Type    Type      `json:"type"`
	PhotoID int64     `json:"photo_id"`
	At      time.Time `json:"at"`
}

func (e Event) key() []byte {
	return []byte(strconv.FormatInt(e.PhotoID, 10))
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

func decode(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler processes one event. Returned errors are logged by the consumer loop.
type Handler func(ctx context.Context, e Event) error

// Bus is a Publisher that can also feed a consumer loop.
type Bus interface {
	Publisher
	// Consume blocks, delivering events to h until ctx is cancelled.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
