package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrDealNotFound        = errors.New("deal not found")
	ErrFunnelNotFound      = errors.New("funnel not found")
	ErrNoActiveFunnel      = errors.New("no active funnel")
	ErrNoActiveResponsible = errors.New("no active responsible")
)

// MissingResponsibleError is returned when a deal's assignee is empty or
// does not reference an active responsible.
type MissingResponsibleError struct {
	AssignedTo string
}

func (e *MissingResponsibleError) Error() string {
	if e.AssignedTo == "" {
		return "deal has no responsible assigned"
	}
	return fmt.Sprintf("responsible %q is not active", e.AssignedTo)
}

// UnknownStageError is returned when a referenced stage id is not part of
// the active funnel.
type UnknownStageError struct {
	StageID string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("stage %q is not part of the active funnel", e.StageID)
}

// StageRequirementError is returned when a deal is missing fields the
// target stage requires. Missing lists every violated field, in the
// stage's declaration order.
type StageRequirementError struct {
	StageID string
	Missing []string
}

func (e *StageRequirementError) Error() string {
	return fmt.Sprintf("stage %q requires missing fields: %s", e.StageID, strings.Join(e.Missing, ", "))
}

// TransitionError is returned when a lifecycle transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from status %q", e.Event, e.Current)
}
