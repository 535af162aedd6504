package player

import (
	"context"
	"log/slog"
	"sync"
)

// FinishOutcome is what the finalize endpoint returns; any of it may be
// missing when finalize fails or the server has nothing to report.
type FinishOutcome struct {
	Score            int    `json:"score"`
	MaxScore         int    `json:"max_score"`
	ScheduleID       string `json:"schedule_id"`
	QuizName         string `json:"quiz_name"`
	AnswersAvailable bool   `json:"answers_available"`
}

// Result is the terminal state handed to the results view, with every field
// coerced to a safe default.
type Result struct {
	AttemptID        string
	ScheduleID       string
	Score            int
	MaxScore         int
	QuizName         string
	AnswersAvailable bool
}

// Finalizer freezes an attempt server-side.
type Finalizer interface {
	FinishAttempt(ctx context.Context, attemptID string) (*FinishOutcome, error)
}

// FinishSequencer is the guarded one-shot transition out of an attempt:
// flush pending saves, finalize best-effort, hand a Result to the terminal
// callback. A timer-expiry effect and a user press racing each other cannot
// run the sequence twice.
type FinishSequencer struct {
	mu        sync.Mutex
	finishing bool

	dispatcher *Dispatcher
	finalizer  Finalizer
	logger     *slog.Logger

	attemptID string
	quizName  string
	navigate  func(Result)
}

// NewFinishSequencer wires the sequencer. quizName is the fallback display
// name used when finalize reports none; navigate receives the terminal
// Result exactly once.
func NewFinishSequencer(dispatcher *Dispatcher, finalizer Finalizer, logger *slog.Logger, attemptID, quizName string, navigate func(Result)) *FinishSequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinishSequencer{
		dispatcher: dispatcher,
		finalizer:  finalizer,
		logger:     logger,
		attemptID:  attemptID,
		quizName:   quizName,
		navigate:   navigate,
	}
}

// Finishing reports whether the one-shot has been taken.
func (f *FinishSequencer) Finishing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishing
}

// Finish runs the terminal sequence. The first caller wins; later calls
// (a second timer tick at zero, a double press) are no-ops and return false.
// Finalize failure is swallowed: the student still reaches the results view,
// just with zero score data.
func (f *FinishSequencer) Finish(ctx context.Context) bool {
	f.mu.Lock()
	if f.finishing {
		f.mu.Unlock()
		return false
	}
	f.finishing = true
	f.mu.Unlock()

	// Best-effort: Flush never rejects.
	_ = f.dispatcher.Flush(ctx)

	result := Result{
		AttemptID: f.attemptID,
		QuizName:  f.quizName,
	}
	outcome, err := f.finalizer.FinishAttempt(ctx, f.attemptID)
	if err != nil {
		f.logger.Warn("finalize failed, navigating without score data",
			"attempt_id", f.attemptID,
			"error", err)
	} else if outcome != nil {
		result.Score = outcome.Score
		result.MaxScore = outcome.MaxScore
		result.ScheduleID = outcome.ScheduleID
		result.AnswersAvailable = outcome.AnswersAvailable
		if outcome.QuizName != "" {
			result.QuizName = outcome.QuizName
		}
	}

	if f.navigate != nil {
		f.navigate(result)
	}
	return true
}
