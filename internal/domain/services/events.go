package services

import (
	"context"
	"time"
)

// OrderCommittedEvent is the postflight notification emitted after a
// successful order commit, consumed by receipt rendering and loyalty
// integrations. Emission failures never fail the commit.
type OrderCommittedEvent struct {
	EventID     string    `json:"event_id"`
	TenantKey   string    `json:"tenant_key"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BranchID    string    `json:"branch_id"`
	StaffID     string    `json:"staff_id"`
	Status      string    `json:"status"`
	GrandTotal  string    `json:"grand_total"`
	Currency    string    `json:"currency"`
	CommittedAt time.Time `json:"committed_at"`
}

// EventPublisher delivers postflight events to downstream consumers.
type EventPublisher interface {
	OrderCommitted(ctx context.Context, evt *OrderCommittedEvent) error
}

// NopPublisher discards events; used when no downstream is configured.
type NopPublisher struct{}

func (NopPublisher) OrderCommitted(context.Context, *OrderCommittedEvent) error { return nil }
