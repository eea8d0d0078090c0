package domain

import "sort"

// Field names a stage may require before a deal can be saved in it.
const (
	FieldTitle   = "title"
	FieldContact = "contactId"
	FieldValue   = "value"
)

// Stage is a single step in a sales funnel. A stage may be flagged as the
// funnel's won or lost marker; moving a deal into such a stage closes it.
type Stage struct {
	ID             string
	Name           string
	Order          int
	WonStage       bool
	LostStage      bool
	RequiredFields []string
}

// Funnel is an ordered set of stages defining a sales process. The
// surrounding application guarantees at most one funnel is active per
// scope; the engine receives the active one as a plain value.
type Funnel struct {
	ID     string
	Name   string
	Active bool
	Stages []Stage
}

// StageByID looks up a stage by its identifier.
func (f Funnel) StageByID(id string) (Stage, bool) {
	for _, s := range f.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// Knows reports whether the funnel contains the given stage. Deals may
// reference stages removed from the funnel after they were closed; those
// are edited leniently (see PipelineService.UpdateFields).
func (f Funnel) Knows(stageID string) bool {
	_, ok := f.StageByID(stageID)
	return ok
}

// OrderedStages returns the stages sorted by their Order field. Ties keep
// input order.
func (f Funnel) OrderedStages() []Stage {
	out := make([]Stage, len(f.Stages))
	copy(out, f.Stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OutcomeStage returns the stage flagged for the given closing outcome
// (StatusWon or StatusLost). Funnels are expected to carry at most one of
// each; the first match wins.
func (f Funnel) OutcomeStage(outcome Status) (Stage, bool) {
	for _, s := range f.Stages {
		if outcome == StatusWon && s.WonStage {
			return s, true
		}
		if outcome == StatusLost && s.LostStage {
			return s, true
		}
	}
	return Stage{}, false
}

// StageOrder returns the sort position of a stage id within the funnel.
// Unknown stage ids sort after every known stage.
func (f Funnel) StageOrder(stageID string) int {
	if s, ok := f.StageByID(stageID); ok {
		return s.Order
	}
	maxOrder := 0
	for _, s := range f.Stages {
		if s.Order > maxOrder {
			maxOrder = s.Order
		}
	}
	return maxOrder + 1
}
