package domain

import "context"

// DealRepository defines the persistence contract for deals.
type DealRepository interface {
	Create(ctx context.Context, deal Deal) error
	GetByID(ctx context.Context, id string) (Deal, error)
	List(ctx context.Context) ([]Deal, error)
	Update(ctx context.Context, deal Deal) error
	Delete(ctx context.Context, id string) error
}

// FunnelRepository defines read access to funnel definitions.
type FunnelRepository interface {
	// ActiveFunnel returns the active funnel with its stages, or
	// ErrNoActiveFunnel when none is configured.
	ActiveFunnel(ctx context.Context) (Funnel, error)
	GetByID(ctx context.Context, id string) (Funnel, error)
	List(ctx context.Context) ([]Funnel, error)
}

// ResponsibleRepository defines read access to deal owners.
type ResponsibleRepository interface {
	List(ctx context.Context) ([]Responsible, error)
	ListActive(ctx context.Context) ([]Responsible, error)
}

// EventPublisher defines the contract for emitting deal events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, deal Deal) error
}

// TransitionValidator checks lifecycle transitions against Transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// Directory resolves contact and company ids to display names for the
// free-text filter. Contact and company records live outside the engine;
// unresolved ids yield an empty string.
type Directory interface {
	ContactName(id string) string
	CompanyName(id string) string
}
