package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelUserEvents = "user_events"
)

// Event types delivered to a user's websocket connections.
const (
	EventSignedIn      = "signed_in"
	EventSignedOut     = "signed_out"
	EventSiteActivated = "site_activated"
)

// UserEvent is one auth or card state change for a user.
type UserEvent struct {
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	SiteID    int64  `json:"site_id,omitempty"`
	CustomURL string `json:"custom_url,omitempty"`
	Message   string `json:"message,omitempty"`
}

var eventMessages = map[string]string{
	EventSignedIn:      "Sessão iniciada",
	EventSignedOut:     "Sessão encerrada",
	EventSiteActivated: "Sua página foi publicada",
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, ev *UserEvent) error {
	if ev.Message == "" {
		ev.Message = eventMessages[ev.Type]
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal user event: %w", err)
	}

	return p.client.Publish(ctx, ChannelUserEvents, data).Err()
}

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe delivers events to handler until ctx is done. Undecodable
// payloads are skipped.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*UserEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelUserEvents)
	defer sub.Close()

	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelUserEvents, err)
	}
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var ev UserEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			handler(&ev)
		}
	}
}
