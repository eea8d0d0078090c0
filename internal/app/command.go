package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// CommandKind discriminates the lifecycle actions a caller can apply to a
// deal. Modeling the actions as a tagged variant keeps the won/lost-column
// redirect an explicit branch instead of a side effect of a generic stage
// setter.
type CommandKind string

const (
	CommandChangeStage CommandKind = "change_stage"
	CommandClose       CommandKind = "close"
	CommandReopen      CommandKind = "reopen"
	CommandPause       CommandKind = "pause"
	CommandResume      CommandKind = "resume"
)

// Command is a single lifecycle action. StageID is used by change_stage;
// Outcome and CloseReason by close.
type Command struct {
	Kind        CommandKind
	StageID     string
	Outcome     domain.Status
	CloseReason string
}

// Apply dispatches a command to the matching lifecycle operation.
func (s *PipelineService) Apply(ctx context.Context, id string, cmd Command) (domain.Deal, error) {
	switch cmd.Kind {
	case CommandChangeStage:
		return s.ChangeStage(ctx, id, cmd.StageID)
	case CommandClose:
		return s.Close(ctx, id, cmd.Outcome, cmd.CloseReason)
	case CommandReopen:
		return s.Reopen(ctx, id)
	case CommandPause:
		return s.Pause(ctx, id)
	case CommandResume:
		return s.Resume(ctx, id)
	default:
		return domain.Deal{}, fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

// BulkResult reports the outcome of a best-effort bulk operation. One bad
// id never blocks the rest of the batch.
type BulkResult struct {
	Done   []string
	Failed map[string]error
}

// CloseMany closes each deal in ids independently, collecting per-id
// failures.
func (s *PipelineService) CloseMany(ctx context.Context, ids []string, outcome domain.Status, closeReason string) BulkResult {
	result := BulkResult{Failed: make(map[string]error)}
	for _, id := range ids {
		if _, err := s.Close(ctx, id, outcome, closeReason); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Done = append(result.Done, id)
	}
	return result
}

// DeleteMany deletes each deal in ids independently, collecting per-id
// failures.
func (s *PipelineService) DeleteMany(ctx context.Context, ids []string) BulkResult {
	result := BulkResult{Failed: make(map[string]error)}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Done = append(result.Done, id)
	}
	return result
}
