package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type NATSBus struct { // implements Bus
	conn    *nats.Conn
	subject string
	origin  string

	mu   sync.Mutex
	subs []*nats.Subscription
}

func ConnectNATS(url, subject string) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("kumagoya"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			eventsLogger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			eventsLogger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to NATS: %w", err)
	}

	eventsLogger.Info().Str("url", url).Str("subject", subject).Msg("NATS connected successfully")
	return newNATSBus(conn, subject), nil
}

func newNATSBus(conn *nats.Conn, subject string) *NATSBus {
	return &NATSBus{conn: conn, subject: subject, origin: uuid.NewString()}
}

func (b *NATSBus) Publish(_ context.Context, event PostEvent) error {
	event.Origin = b.origin
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	if err := b.conn.Publish(b.subject+"."+event.Type, data); err != nil {
		return fmt.Errorf("error publishing %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe delivers every post event published by other instances to h.
func (b *NATSBus) Subscribe(h Handler) error {
	sub, err := b.conn.Subscribe(b.subject+".>", func(msg *nats.Msg) {
		b.dispatch(msg.Data, h)
	})
	if err != nil {
		return fmt.Errorf("error subscribing to %s: %w", b.subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

func (b *NATSBus) dispatch(data []byte, h Handler) {
	var event PostEvent
	if err := json.Unmarshal(data, &event); err != nil {
		eventsLogger.Warn().Err(err).Msg("Dropping malformed post event")
		return
	}
	if event.Origin == b.origin {
		return
	}

	eventsLogger.Debug().Str("type", event.Type).Int64("post_id", int64(event.PostID)).Msg("Post event received")
	h.HandlePostEvent(context.Background(), event)
}

func (b *NATSBus) Close() {
	b.mu.Lock()
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			eventsLogger.Warn().Err(err).Msg("Error unsubscribing")
		}
	}
	b.subs = nil
	b.mu.Unlock()

	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
	}
}
