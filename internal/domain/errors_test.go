package domain_test

import (
	"testing"

	"github.com/neomorfeo/dealflow/internal/domain"
)

func TestMissingResponsibleError_Error(t *testing.T) {
	err := &domain.MissingResponsibleError{}
	want := "deal has no responsible assigned"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = &domain.MissingResponsibleError{AssignedTo: "r-9"}
	want = `responsible "r-9" is not active`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStageRequirementError_Error(t *testing.T) {
	err := &domain.StageRequirementError{
		StageID: "proposal",
		Missing: []string{"title", "value"},
	}
	want := `stage "proposal" requires missing fields: title, value`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventPause,
		Current: domain.StatusPaused,
	}
	want := `event "pause" is not valid from status "paused"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnknownStageError_Error(t *testing.T) {
	err := &domain.UnknownStageError{StageID: "ghost"}
	want := `stage "ghost" is not part of the active funnel`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
