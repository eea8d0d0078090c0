package domain

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a deal. The status is coupled
// to, but independent of, the deal's stage: won/lost deals normally sit in
// the funnel's won/lost stage, while active and paused deals sit in any
// regular stage.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// Event represents an action applied to a deal. Lifecycle events appear in
// Transitions; the remaining events only mark published changes that do
// not move the status.
type Event string

const (
	EventCreated      Event = "created"
	EventUpdated      Event = "updated"
	EventStageChanged Event = "stage_changed"
	EventCloseWon     Event = "close_won"
	EventCloseLost    Event = "close_lost"
	EventReopen       Event = "reopen"
	EventPause        Event = "pause"
	EventResume       Event = "resume"
	EventDeleted      Event = "deleted"
)

// Transition defines a valid state change: an event moves a deal from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the deal lifecycle.
// Won and lost are not terminal: reopen brings a closed deal back to
// active. This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventCloseWon, Src: StatusActive, Dst: StatusWon},
	{Event: EventCloseWon, Src: StatusPaused, Dst: StatusWon},
	{Event: EventCloseLost, Src: StatusActive, Dst: StatusLost},
	{Event: EventCloseLost, Src: StatusPaused, Dst: StatusLost},
	{Event: EventReopen, Src: StatusWon, Dst: StatusActive},
	{Event: EventReopen, Src: StatusLost, Dst: StatusActive},
	{Event: EventPause, Src: StatusActive, Dst: StatusPaused},
	{Event: EventResume, Src: StatusPaused, Dst: StatusActive},
}

// CloseEvent maps a closing outcome to its lifecycle event.
func CloseEvent(outcome Status) (Event, bool) {
	switch outcome {
	case StatusWon:
		return EventCloseWon, true
	case StatusLost:
		return EventCloseLost, true
	default:
		return "", false
	}
}

// Deal is a single sales opportunity moving through funnel stages.
// All mutation goes through the pipeline service so the status/stage/
// closedAt invariants hold; UpdatedAt doubles as the approximate
// stage-entry and closing time since no transition log is kept.
type Deal struct {
	ID                string
	Title             string
	Value             float64
	Currency          string
	Probability       int
	StageID           string
	Status            Status
	AssignedTo        string
	ContactID         string
	CompanyID         string
	ServiceIDs        []string
	ExpectedCloseDate *time.Time
	ClosedAt          *time.Time
	CloseReason       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Closed reports whether the deal has a won or lost outcome.
func (d Deal) Closed() bool {
	return d.Status == StatusWon || d.Status == StatusLost
}

// DealDraft holds the caller-supplied fields for a new deal.
type DealDraft struct {
	Title             string
	Value             float64
	Currency          string
	Probability       int
	StageID           string
	AssignedTo        string
	ContactID         string
	CompanyID         string
	ServiceIDs        []string
	ExpectedCloseDate *time.Time
}

// NewDeal creates a deal in the initial "active" state.
func NewDeal(id string, draft DealDraft, now time.Time) Deal {
	return Deal{
		ID:                id,
		Title:             draft.Title,
		Value:             draft.Value,
		Currency:          draft.Currency,
		Probability:       draft.Probability,
		StageID:           draft.StageID,
		Status:            StatusActive,
		AssignedTo:        draft.AssignedTo,
		ContactID:         draft.ContactID,
		CompanyID:         draft.CompanyID,
		ServiceIDs:        draft.ServiceIDs,
		ExpectedCloseDate: draft.ExpectedCloseDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// FieldPatch holds optional non-lifecycle field changes. Nil pointers
// leave the field untouched; status, stage and closing fields are never
// part of a patch.
type FieldPatch struct {
	Title             *string
	Value             *float64
	Currency          *string
	Probability       *int
	AssignedTo        *string
	ContactID         *string
	CompanyID         *string
	ServiceIDs        *[]string
	ExpectedCloseDate *time.Time
}

// Apply returns a copy of the deal with the patch applied.
func (d Deal) Apply(p FieldPatch) Deal {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Value != nil {
		d.Value = *p.Value
	}
	if p.Currency != nil {
		d.Currency = *p.Currency
	}
	if p.Probability != nil {
		d.Probability = *p.Probability
	}
	if p.AssignedTo != nil {
		d.AssignedTo = *p.AssignedTo
	}
	if p.ContactID != nil {
		d.ContactID = *p.ContactID
	}
	if p.CompanyID != nil {
		d.CompanyID = *p.CompanyID
	}
	if p.ServiceIDs != nil {
		d.ServiceIDs = *p.ServiceIDs
	}
	if p.ExpectedCloseDate != nil {
		d.ExpectedCloseDate = p.ExpectedCloseDate
	}
	return d
}

// CheckStageRequirements verifies the deal satisfies the stage's required
// fields. All violations are collected so the caller can surface them
// together; the order follows the stage's RequiredFields declaration.
func CheckStageRequirements(d Deal, s Stage) error {
	var missing []string
	for _, field := range s.RequiredFields {
		switch field {
		case FieldTitle:
			if strings.TrimSpace(d.Title) == "" {
				missing = append(missing, field)
			}
		case FieldContact:
			if d.ContactID == "" {
				missing = append(missing, field)
			}
		case FieldValue:
			if d.Value <= 0 {
				missing = append(missing, field)
			}
		}
	}
	if len(missing) > 0 {
		return &StageRequirementError{StageID: s.ID, Missing: missing}
	}
	return nil
}
