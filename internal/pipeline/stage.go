package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stage is the processing state of one group.
type Stage string

const (
	StageCollected           Stage = "COLLECTED"
	StageNormalizing         Stage = "NORMALIZING"
	StageTransitionApplying  Stage = "TRANSITION_APPLYING"
	StageTitleCardGenerating Stage = "TITLE_CARD_GENERATING"
	StageAssembling          Stage = "ASSEMBLING"
	StageConcatenating       Stage = "CONCATENATING"
	StageSucceeded           Stage = "SUCCEEDED"
	StageFailed              Stage = "FAILED"
)

// ErrInvalidTransition is returned when an invalid stage transition is attempted.
var ErrInvalidTransition = errors.New("invalid stage transition")

// validTransitions defines which stage transitions are allowed.
var validTransitions = map[Stage][]Stage{
	StageCollected:           {StageNormalizing, StageFailed},
	StageNormalizing:         {StageTransitionApplying, StageFailed},
	StageTransitionApplying:  {StageTitleCardGenerating, StageFailed},
	StageTitleCardGenerating: {StageAssembling, StageFailed},
	StageAssembling:          {StageConcatenating, StageFailed},
	StageConcatenating:       {StageSucceeded, StageFailed},
	StageSucceeded:           {},
	StageFailed:              {},
}

func canTransition(from, to Stage) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for SUCCEEDED and FAILED.
func (s Stage) IsTerminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// groupState tracks one group through its stages. It is owned by the
// goroutine processing the group.
type groupState struct {
	key     string
	stage   Stage
	entered time.Time
	started time.Time
	err     error
	logger  *slog.Logger
}

func newGroupState(key string, logger *slog.Logger) *groupState {
	now := time.Now()
	return &groupState{
		key:     key,
		stage:   StageCollected,
		entered: now,
		started: now,
		logger:  logger,
	}
}

func (g *groupState) advance(to Stage) error {
	if !canTransition(g.stage, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.stage, to)
	}
	g.logger.Debug("group stage",
		slog.String("group", g.key),
		slog.String("from", string(g.stage)),
		slog.String("to", string(to)),
		slog.Duration("elapsed", time.Since(g.entered)),
	)
	g.stage = to
	g.entered = time.Now()
	return nil
}

// fail moves the group to FAILED and records cause. It is a no-op on a
// terminal group.
func (g *groupState) fail(cause error) {
	if g.stage.IsTerminal() {
		return
	}
	g.err = cause
	_ = g.advance(StageFailed)
}

func (g *groupState) elapsed() time.Duration {
	return time.Since(g.started)
}
