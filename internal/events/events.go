// Package events carries post change notifications between server instances.
package events

import (
	"context"
	"time"

	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/rs/zerolog"
)

var eventsLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	eventsLogger = l
}

const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	PostDeleted = "post.deleted"
)

type PostEvent struct {
	Type      string       `json:"type"`
	PostID    model.PostID `json:"post_id"`
	Origin    string       `json:"origin,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event PostEvent) error
}

// Handler reacts to events published by other instances.
type Handler interface {
	HandlePostEvent(ctx context.Context, event PostEvent)
}

type HandlerFunc func(ctx context.Context, event PostEvent)

func (f HandlerFunc) HandlePostEvent(ctx context.Context, event PostEvent) {
	f(ctx, event)
}

type Bus interface {
	Publisher
	Subscribe(h Handler) error
	Close()
}

// New connects to NATS at url. An empty url gives a bus that drops everything, which is
// what a single instance needs.
func New(url, subject string) (Bus, error) {
	if url == "" {
		eventsLogger.Info().Msg("No NATS url configured, post events stay local")
		return Nop{}, nil
	}
	return ConnectNATS(url, subject)
}

type Nop struct{}

func (Nop) Publish(context.Context, PostEvent) error { return nil }
func (Nop) Subscribe(Handler) error                  { return nil }
func (Nop) Close()                                   {}
