package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// EventsChannel is the pub/sub channel change events are published on.
const EventsChannel = "marketplace:events"

// Publisher implements ports.EventPublisher over Redis pub/sub.
type Publisher struct {
	client  *redis.Client
	channel string
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, channel: EventsChannel}
}

// eventMessage is the JSON shape of a published change event. Amounts are
// decimal strings; principals and IDs are 0x-prefixed hex.
type eventMessage struct {
	Seq         uint64    `json:"seq"`
	Kind        string    `json:"kind"`
	StoreOwner  string    `json:"store_owner,omitempty"`
	Admin       string    `json:"admin,omitempty"`
	Customer    string    `json:"customer,omitempty"`
	StoreID     string    `json:"store_id,omitempty"`
	ItemID      string    `json:"item_id,omitempty"`
	Price       string    `json:"price,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Stock       uint64    `json:"stock,omitempty"`
	Index       *uint64   `json:"index,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (p *Publisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(newEventMessage(ev))
	if err != nil {
		return fmt.Errorf("encode event %d: %w", ev.Seq, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event %d: %w", ev.Seq, err)
	}
	return nil
}

func newEventMessage(ev domain.ChangeEvent) eventMessage {
	msg := eventMessage{
		Seq:         ev.Seq,
		Kind:        string(ev.Kind),
		Name:        ev.Name,
		Description: ev.Description,
		Stock:       ev.Stock,
		OccurredAt:  ev.OccurredAt.UTC(),
	}
	if ev.StoreOwner != domain.ZeroPrincipal {
		msg.StoreOwner = ev.StoreOwner.Hex()
	}
	if ev.Admin != domain.ZeroPrincipal {
		msg.Admin = ev.Admin.Hex()
	}
	if ev.Customer != domain.ZeroPrincipal {
		msg.Customer = ev.Customer.Hex()
	}
	if ev.StoreID != (domain.ID{}) {
		msg.StoreID = ev.StoreID.Hex()
	}
	if ev.ItemID != (domain.ID{}) {
		msg.ItemID = ev.ItemID.Hex()
	}
	if ev.Price != nil {
		msg.Price = ev.Price.Dec()
	}
	if ev.Amount != nil {
		msg.Amount = ev.Amount.Dec()
	}
	if ev.Kind == domain.EventAddedStore || ev.Kind == domain.EventAddedItem {
		idx := ev.Index
		msg.Index = &idx
	}
	return msg
}
