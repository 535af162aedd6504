package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classquiz/attempt-service/internal/models"
)

type fakeFinalizer struct {
	mu      sync.Mutex
	calls   int
	outcome *FinishOutcome
	err     error
	onCall  func()
}

func (f *fakeFinalizer) FinishAttempt(ctx context.Context, attemptID string) (*FinishOutcome, error) {
	f.mu.Lock()
	f.calls++
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	return f.outcome, f.err
}

func (f *fakeFinalizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSequencer(clock Clock, saver Saver, finalizer Finalizer, navigate func(Result)) (*FinishSequencer, *Dispatcher) {
	var mu sync.Mutex
	value := "answer"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))
	return NewFinishSequencer(d, finalizer, discardLogger(), "attempt-1", "Fractions", navigate), d
}

func TestFinishSequencer_RunsExactlyOnce(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	finalizer := &fakeFinalizer{outcome: &FinishOutcome{Score: 3, MaxScore: 5}}

	var results []Result
	seq, _ := newTestSequencer(clock, &fakeSaver{}, finalizer, func(res Result) {
		results = append(results, res)
	})

	// A timer expiry and a Finish press racing each other.
	assert.True(t, seq.Finish(context.Background()))
	assert.False(t, seq.Finish(context.Background()))

	assert.Equal(t, 1, finalizer.callCount())
	assert.Len(t, results, 1)
	assert.True(t, seq.Finishing())
}

func TestFinishSequencer_FlushesBeforeFinalize(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	var mu sync.Mutex
	var order []string

	saver := &orderedSaver{record: func() {
		mu.Lock()
		order = append(order, "save")
		mu.Unlock()
	}}
	finalizer := &fakeFinalizer{onCall: func() {
		mu.Lock()
		order = append(order, "finalize")
		mu.Unlock()
	}}

	seq, d := newTestSequencer(clock, saver, finalizer, nil)

	// Unsaved state is waiting on the debounce when finish fires.
	d.ScheduleSave()
	assert.True(t, seq.Finish(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"save", "finalize"}, order)
}

func TestFinishSequencer_MapsOutcomeToResult(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	finalizer := &fakeFinalizer{outcome: &FinishOutcome{
		Score:            7,
		MaxScore:         10,
		ScheduleID:       "sched-1",
		QuizName:         "Fractions (v2)",
		AnswersAvailable: true,
	}}

	var got Result
	seq, _ := newTestSequencer(clock, &fakeSaver{}, finalizer, func(res Result) { got = res })

	seq.Finish(context.Background())

	assert.Equal(t, Result{
		AttemptID:        "attempt-1",
		ScheduleID:       "sched-1",
		Score:            7,
		MaxScore:         10,
		QuizName:         "Fractions (v2)",
		AnswersAvailable: true,
	}, got)
}

func TestFinishSequencer_FinalizeFailureStillNavigates(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	finalizer := &fakeFinalizer{err: errors.New("server unavailable")}

	var got Result
	navigated := false
	seq, _ := newTestSequencer(clock, &fakeSaver{}, finalizer, func(res Result) {
		navigated = true
		got = res
	})

	assert.True(t, seq.Finish(context.Background()))
	assert.True(t, navigated)

	// Defaults only: zero score, the locally known quiz name.
	assert.Equal(t, "attempt-1", got.AttemptID)
	assert.Equal(t, "Fractions", got.QuizName)
	assert.Zero(t, got.Score)
	assert.Zero(t, got.MaxScore)
	assert.False(t, got.AnswersAvailable)
}

func TestFinishSequencer_QuizNameFallsBackWhenOutcomeOmitsIt(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	finalizer := &fakeFinalizer{outcome: &FinishOutcome{Score: 2, MaxScore: 4}}

	var got Result
	seq, _ := newTestSequencer(clock, &fakeSaver{}, finalizer, func(res Result) { got = res })

	seq.Finish(context.Background())

	assert.Equal(t, "Fractions", got.QuizName)
	assert.Equal(t, 2, got.Score)
}

// orderedSaver invokes a hook on every save, for asserting call ordering
// against the finalizer.
type orderedSaver struct {
	record func()
}

func (s *orderedSaver) SaveAnswers(ctx context.Context, attemptID string, payload models.AnswersPayload) (int, error) {
	if s.record != nil {
		s.record()
	}
	return 1, nil
}
