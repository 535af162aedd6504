package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classquiz/attempt-service/internal/models"
)

// fakeSaver records every save and hands back incrementing versions the way
// the server does. An optional gate blocks the first call so tests can
// overlap a second save request with one in flight.
type fakeSaver struct {
	mu        sync.Mutex
	calls     []models.AnswersPayload
	errs      []error
	version   int
	active    int
	maxActive int

	gate    chan struct{}
	started chan struct{}
}

func (s *fakeSaver) SaveAnswers(ctx context.Context, attemptID string, payload models.AnswersPayload) (int, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	first := len(s.calls) == 0
	s.calls = append(s.calls, payload)
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	s.version++
	version := s.version
	gate, started := s.gate, s.started
	s.mu.Unlock()

	if first && gate != nil {
		if started != nil {
			close(started)
		}
		<-gate
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *fakeSaver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSaver) call(i int) models.AnswersPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// textSnapshot returns a snapshot func reading a mutable answer value, so
// tests can verify the payload reflects the state at dispatch time rather
// than at schedule time.
func textSnapshot(value *string, mu *sync.Mutex) func() models.AnswersPayload {
	return func() models.AnswersPayload {
		mu.Lock()
		defer mu.Unlock()
		payload := make(models.AnswersPayload)
		payload.SetText("item-open", *value)
		return payload
	}
}

func newTestDispatcher(clock Clock, saver Saver, snapshot func() models.AnswersPayload) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		Clock:     clock,
		Saver:     saver,
		Logger:    discardLogger(),
		AttemptID: "attempt-1",
		Token:     "token-1",
		Snapshot:  snapshot,
	})
}

func TestDispatcher_DebounceCoalescesBurstIntoOneSave(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := ""
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	// Three keystrokes inside the quiet period.
	for _, v := range []string{"a", "ab", "abc"} {
		mu.Lock()
		value = v
		mu.Unlock()
		d.ScheduleSave()
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, saver.callCount())

	clock.Advance(DefaultDebounce)
	assert.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 1, saver.callCount())
	assert.Equal(t, "abc", saver.call(0).Text("item-open"))
}

func TestDispatcher_EachMutationReArmsDebounce(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := "x"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	// Keystrokes every 300ms keep pushing the save out.
	for i := 0; i < 5; i++ {
		d.ScheduleSave()
		clock.Advance(300 * time.Millisecond)
	}
	assert.Equal(t, 0, saver.callCount())

	clock.Advance(DefaultDebounce)
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, 1, saver.callCount())
}

func TestDispatcher_SaveNowSkipsDebounce(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := "committed"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.ScheduleSave()
	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 1, saver.callCount())
	assert.Equal(t, "committed", saver.call(0).Text("item-open"))

	// The canceled debounce timer must not produce a second save.
	clock.Advance(2 * DefaultDebounce)
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, 1, saver.callCount())
}

func TestDispatcher_OverlappingSavesSerialized(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}

	var mu sync.Mutex
	value := "first"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.SaveNow()
	<-saver.started

	// Two more mutations land while the first save is in flight; they must
	// coalesce into exactly one follow-up with the final state.
	mu.Lock()
	value = "second"
	mu.Unlock()
	d.SaveNow()
	mu.Lock()
	value = "third"
	mu.Unlock()
	d.SaveNow()

	close(saver.gate)
	assert.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 2, saver.callCount())
	assert.Equal(t, "third", saver.call(1).Text("item-open"))

	saver.mu.Lock()
	maxActive := saver.maxActive
	saver.mu.Unlock()
	assert.Equal(t, 1, maxActive, "saves must never overlap")
}

func TestDispatcher_RecordsServerAssignedVersion(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := "v"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, 1, d.Version())

	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, 2, d.Version())
}

func TestDispatcher_ErrorStatusClearsOnNextSuccess(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{errs: []error{errors.New("network down")}}

	var mu sync.Mutex
	value := "v"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, SaveStatusError, d.Status())

	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, SaveStatusIdle, d.Status())
}

func TestDispatcher_FlushDispatchesPendingDebounce(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := "unsaved"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.ScheduleSave()
	assert.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 1, saver.callCount())
	assert.Equal(t, "unsaved", saver.call(0).Text("item-open"))
}

func TestDispatcher_FlushNeverReturnsError(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{errs: []error{errors.New("save rejected")}}

	var mu sync.Mutex
	value := "v"
	d := newTestDispatcher(clock, saver, textSnapshot(&value, &mu))

	d.SaveNow()
	assert.NoError(t, d.Flush(context.Background()))
	assert.Equal(t, SaveStatusError, d.Status())
}

func TestDispatcher_EmptyTokenDisablesSaves(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	saver := &fakeSaver{}

	var mu sync.Mutex
	value := "v"
	d := NewDispatcher(DispatcherConfig{
		Clock:     clock,
		Saver:     saver,
		Logger:    discardLogger(),
		AttemptID: "attempt-1",
		Snapshot:  textSnapshot(&value, &mu),
	})

	d.ScheduleSave()
	d.SaveNow()
	clock.Advance(2 * DefaultDebounce)
	assert.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, 0, saver.callCount())
	assert.Equal(t, SaveStatusIdle, d.Status())
}
