package events

import "context"

// Event types
const (
	EventDealCreated = "deal_created"
)

// ChannelDeals carries deal lifecycle events.
const ChannelDeals = "events:deal"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Event)) error
}
