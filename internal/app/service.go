package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// PipelineService orchestrates the deal pipeline: lifecycle transitions,
// per-stage validation, filtering and the derived reports. It never
// reaches into ambient state; the active funnel and responsible set are
// loaded per call through the repository ports.
type PipelineService struct {
	deals        domain.DealRepository
	funnels      domain.FunnelRepository
	responsibles domain.ResponsibleRepository
	publisher    domain.EventPublisher
	validator    domain.TransitionValidator
	directory    domain.Directory

	// now is replaceable in tests; UpdatedAt doubles as the approximate
	// stage-entry time, so report assertions need a fixed clock.
	now func() time.Time
}

// NewPipelineService creates a service with the given adapters. The
// directory may be nil; free-text search then only covers deal titles.
func NewPipelineService(
	deals domain.DealRepository,
	funnels domain.FunnelRepository,
	responsibles domain.ResponsibleRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	directory domain.Directory,
) *PipelineService {
	return &PipelineService{
		deals:        deals,
		funnels:      funnels,
		responsibles: responsibles,
		publisher:    publisher,
		validator:    validator,
		directory:    directory,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock and returns the service. Reports
// and timestamps are derived from it; tests pin it to a fixed instant.
func (s *PipelineService) WithClock(now func() time.Time) *PipelineService {
	s.now = now
	return s
}

// Create validates and persists a new deal in the active status.
func (s *PipelineService) Create(ctx context.Context, draft domain.DealDraft) (domain.Deal, error) {
	funnel, err := s.funnels.ActiveFunnel(ctx)
	if err != nil {
		return domain.Deal{}, err
	}

	active, err := s.responsibles.ListActive(ctx)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("loading responsibles: %w", err)
	}
	if len(active) == 0 {
		return domain.Deal{}, domain.ErrNoActiveResponsible
	}
	if draft.AssignedTo == "" {
		return domain.Deal{}, &domain.MissingResponsibleError{}
	}
	if _, ok := domain.FindResponsible(active, draft.AssignedTo); !ok {
		return domain.Deal{}, &domain.MissingResponsibleError{AssignedTo: draft.AssignedTo}
	}

	// An omitted target stage means the funnel's entry stage.
	if draft.StageID == "" {
		if ordered := funnel.OrderedStages(); len(ordered) > 0 {
			draft.StageID = ordered[0].ID
		}
	}
	stage, ok := funnel.StageByID(draft.StageID)
	if !ok {
		return domain.Deal{}, &domain.UnknownStageError{StageID: draft.StageID}
	}

	id, err := generateID()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("generating deal id: %w", err)
	}

	deal := domain.NewDeal(id, draft, s.now())

	if err := domain.CheckStageRequirements(deal, stage); err != nil {
		return domain.Deal{}, err
	}

	if err := s.deals.Create(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("creating deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventCreated, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("publishing creation event: %w", err)
	}

	return deal, nil
}

// GetByID returns a deal by its unique identifier.
func (s *PipelineService) GetByID(ctx context.Context, id string) (domain.Deal, error) {
	return s.deals.GetByID(ctx, id)
}

// ListDeals returns the deals matching the filter, sorted by the given
// key. An empty sort key leaves repository order.
func (s *PipelineService) ListDeals(ctx context.Context, filter domain.FilterSpec, key domain.SortKey, order domain.SortOrder) ([]domain.Deal, error) {
	deals, err := s.deals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}

	matched := domain.FilterDeals(deals, filter, s.directory)
	if key == "" {
		return matched, nil
	}
	return domain.SortDeals(matched, key, order), nil
}

// UpdateFields applies non-lifecycle field changes to a deal and re-runs
// the stage-requirement check against the deal's current stage. Deals
// grandfathered onto a stage the active funnel no longer knows skip the
// check; closed deals whose stage was later removed must stay editable.
func (s *PipelineService) UpdateFields(ctx context.Context, id string, patch domain.FieldPatch) (domain.Deal, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}

	if patch.AssignedTo != nil {
		if err := s.checkResponsible(ctx, *patch.AssignedTo); err != nil {
			return domain.Deal{}, err
		}
	}

	updated := deal.Apply(patch)

	funnel, err := s.funnels.ActiveFunnel(ctx)
	switch {
	case errors.Is(err, domain.ErrNoActiveFunnel):
		// No funnel to validate against; same leniency as a removed stage.
	case err != nil:
		return domain.Deal{}, err
	default:
		if stage, ok := funnel.StageByID(updated.StageID); ok {
			if err := domain.CheckStageRequirements(updated, stage); err != nil {
				return domain.Deal{}, err
			}
		}
	}

	updated.UpdatedAt = s.now()

	if err := s.deals.Update(ctx, updated); err != nil {
		return domain.Deal{}, fmt.Errorf("updating deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventUpdated, updated); err != nil {
		return domain.Deal{}, fmt.Errorf("publishing update event: %w", err)
	}

	return updated, nil
}

// ChangeStage moves a deal to another stage of the active funnel. Moving
// into a won- or lost-flagged stage is a close action, not a relabeling,
// and is redirected to Close.
func (s *PipelineService) ChangeStage(ctx context.Context, id, stageID string) (domain.Deal, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}

	funnel, err := s.funnels.ActiveFunnel(ctx)
	if err != nil {
		return domain.Deal{}, err
	}

	stage, ok := funnel.StageByID(stageID)
	if !ok {
		return domain.Deal{}, &domain.UnknownStageError{StageID: stageID}
	}

	if stage.WonStage {
		return s.closeDeal(ctx, deal, funnel, domain.StatusWon, "")
	}
	if stage.LostStage {
		return s.closeDeal(ctx, deal, funnel, domain.StatusLost, "")
	}

	if err := domain.CheckStageRequirements(deal, stage); err != nil {
		return domain.Deal{}, err
	}

	deal.StageID = stage.ID
	deal.UpdatedAt = s.now()

	if err := s.deals.Update(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("updating deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventStageChanged, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("publishing stage event: %w", err)
	}

	return deal, nil
}

// Close settles a deal with a won or lost outcome and moves it to the
// funnel's matching outcome stage when one exists.
func (s *PipelineService) Close(ctx context.Context, id string, outcome domain.Status, closeReason string) (domain.Deal, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}

	funnel, err := s.funnels.ActiveFunnel(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoActiveFunnel) {
		return domain.Deal{}, err
	}

	return s.closeDeal(ctx, deal, funnel, outcome, closeReason)
}

func (s *PipelineService) closeDeal(ctx context.Context, deal domain.Deal, funnel domain.Funnel, outcome domain.Status, closeReason string) (domain.Deal, error) {
	event, ok := domain.CloseEvent(outcome)
	if !ok {
		return domain.Deal{}, fmt.Errorf("unsupported closing outcome %q", outcome)
	}

	newStatus, err := s.validator.Apply(ctx, deal.Status, event)
	if err != nil {
		return domain.Deal{}, err
	}

	now := s.now()
	deal.Status = newStatus
	// If the funnel carries no stage flagged for this outcome the stage is
	// left unchanged; only the status records the result.
	if stage, ok := funnel.OutcomeStage(outcome); ok {
		deal.StageID = stage.ID
	}
	deal.ClosedAt = &now
	deal.CloseReason = closeReason
	deal.UpdatedAt = now

	if err := s.deals.Update(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("updating deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("publishing event %q: %w", event, err)
	}

	return deal, nil
}

// Reopen brings a won or lost deal back to active. The stage is left
// as-is; callers move the card afterwards if needed.
func (s *PipelineService) Reopen(ctx context.Context, id string) (domain.Deal, error) {
	return s.applyLifecycle(ctx, id, domain.EventReopen, func(deal *domain.Deal) {
		deal.ClosedAt = nil
		deal.CloseReason = ""
	})
}

// Pause puts an active deal on hold.
func (s *PipelineService) Pause(ctx context.Context, id string) (domain.Deal, error) {
	return s.applyLifecycle(ctx, id, domain.EventPause, nil)
}

// Resume reactivates a paused deal.
func (s *PipelineService) Resume(ctx context.Context, id string) (domain.Deal, error) {
	return s.applyLifecycle(ctx, id, domain.EventResume, nil)
}

func (s *PipelineService) applyLifecycle(ctx context.Context, id string, event domain.Event, mutate func(*domain.Deal)) (domain.Deal, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}

	newStatus, err := s.validator.Apply(ctx, deal.Status, event)
	if err != nil {
		return domain.Deal{}, err
	}

	deal.Status = newStatus
	if mutate != nil {
		mutate(&deal)
	}
	deal.UpdatedAt = s.now()

	if err := s.deals.Update(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("updating deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("publishing event %q: %w", event, err)
	}

	return deal, nil
}

// Delete removes a deal. Deletion has no lifecycle guard; authorization
// is the caller's concern.
func (s *PipelineService) Delete(ctx context.Context, id string) error {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.deals.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting deal: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventDeleted, deal); err != nil {
		return fmt.Errorf("publishing delete event: %w", err)
	}

	return nil
}

func (s *PipelineService) checkResponsible(ctx context.Context, assignedTo string) error {
	if assignedTo == "" {
		return &domain.MissingResponsibleError{}
	}
	active, err := s.responsibles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("loading responsibles: %w", err)
	}
	if _, ok := domain.FindResponsible(active, assignedTo); !ok {
		return &domain.MissingResponsibleError{AssignedTo: assignedTo}
	}
	return nil
}

// ActiveFunnel exposes the active funnel definition to callers.
func (s *PipelineService) ActiveFunnel(ctx context.Context) (domain.Funnel, error) {
	return s.funnels.ActiveFunnel(ctx)
}

// Responsibles returns every known responsible, active or not.
func (s *PipelineService) Responsibles(ctx context.Context) ([]domain.Responsible, error) {
	return s.responsibles.List(ctx)
}
