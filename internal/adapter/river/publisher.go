package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// DealEventJobArgs carries the data needed to process a deal event
// asynchronously. River serializes this as JSON into its job queue table.
// It includes a snapshot of the deal at the time the event was published,
// so the worker never needs to query the database.
type DealEventJobArgs struct {
	Event      string  `json:"event"`
	DealID     string  `json:"deal_id"`
	Title      string  `json:"title"`
	Value      float64 `json:"value"`
	StageID    string  `json:"stage_id"`
	Status     string  `json:"status"`
	AssignedTo string  `json:"assigned_to"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (DealEventJobArgs) Kind() string { return "deal.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a deal event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, deal domain.Deal) error {
	_, err := p.client.Insert(ctx, DealEventJobArgs{
		Event:      string(event),
		DealID:     deal.ID,
		Title:      deal.Title,
		Value:      deal.Value,
		StageID:    deal.StageID,
		Status:     string(deal.Status),
		AssignedTo: deal.AssignedTo,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing deal event job: %w", err)
	}
	return nil
}
