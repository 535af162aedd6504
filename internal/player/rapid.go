package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
)

// RapidSchedule answers "which item should be active" for a rapid quiz from
// wall clock alone: the attempt start plus the cumulative per-item limits.
// Because position is a pure function of time, backgrounding the app cannot
// stop the clock; resuming just recomputes.
type RapidSchedule struct {
	startedAt time.Time
	limits    []int
}

func NewRapidSchedule(startedAt time.Time, items []models.QuizItem) *RapidSchedule {
	limits := make([]int, len(items))
	for i, item := range items {
		limits[i] = item.TimeLimit
	}
	return &RapidSchedule{startedAt: startedAt, limits: limits}
}

// PositionAt returns the item index active at the given instant and the
// whole seconds left on that item. done is true once the total budget is
// spent.
func (s *RapidSchedule) PositionAt(now time.Time) (index, remaining int, done bool) {
	elapsed := int(now.Sub(s.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	cumulative := 0
	for i, limit := range s.limits {
		cumulative += limit
		if elapsed < cumulative {
			return i, cumulative - elapsed, false
		}
	}
	return len(s.limits), 0, true
}

// RemainingFor returns the seconds left before the schedule moves past the
// given item. When an item is confirmed early, the leftover rolls into the
// next item's window so the whole attempt still ends after the sum of
// limits.
func (s *RapidSchedule) RemainingFor(index int, now time.Time) int {
	elapsed := int(now.Sub(s.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	cumulative := 0
	for i := 0; i <= index && i < len(s.limits); i++ {
		cumulative += s.limits[i]
	}
	remaining := cumulative - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TotalLimit is the sum of per-item limits in seconds.
func (s *RapidSchedule) TotalLimit() int {
	total := 0
	for _, limit := range s.limits {
		total += limit
	}
	return total
}

// RapidRunner drives a rapid attempt: one item on screen at a time, a
// per-item countdown, and an advance machine where `answer selected ->
// confirm -> save this item only -> advance (or finish on the last item)`.
// The transitioning flag keeps a timer-expiry auto-advance from racing a
// manual confirm into a double advance.
type RapidRunner struct {
	mu sync.Mutex

	clock      Clock
	schedule   *RapidSchedule
	items      []models.QuizItem
	store      *AnswerStore
	saver      Saver
	sequencer  *FinishSequencer
	logger     *slog.Logger
	attemptID  string
	token      string
	onAdvance  func(index, remaining int)
	onItemTick func(remaining int)

	index         int
	transitioning bool
	countdown     *Countdown
}

type RapidRunnerConfig struct {
	Clock     Clock
	StartedAt time.Time
	Items     []models.QuizItem
	Store     *AnswerStore
	Saver     Saver
	Sequencer *FinishSequencer
	Logger    *slog.Logger
	AttemptID string
	Token     string

	// OnAdvance is called whenever the active item changes, with the new
	// index and its remaining seconds. OnItemTick reports countdown ticks
	// for the active item.
	OnAdvance  func(index, remaining int)
	OnItemTick func(remaining int)
}

func NewRapidRunner(cfg RapidRunnerConfig) *RapidRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RapidRunner{
		clock:      cfg.Clock,
		schedule:   NewRapidSchedule(cfg.StartedAt, cfg.Items),
		items:      cfg.Items,
		store:      cfg.Store,
		saver:      cfg.Saver,
		sequencer:  cfg.Sequencer,
		logger:     logger,
		attemptID:  cfg.AttemptID,
		token:      cfg.Token,
		onAdvance:  cfg.OnAdvance,
		onItemTick: cfg.OnItemTick,
	}
}

// Start positions the runner from wall clock and begins the active item's
// countdown. Starting an already-exhausted schedule finishes immediately.
func (r *RapidRunner) Start(ctx context.Context) {
	r.mu.Lock()
	index, remaining, done := r.schedule.PositionAt(r.clock.Now())
	if done {
		r.mu.Unlock()
		r.sequencer.Finish(ctx)
		return
	}
	r.index = index
	r.startCountdownLocked(ctx, remaining)
	r.mu.Unlock()
	if r.onAdvance != nil {
		r.onAdvance(index, remaining)
	}
}

// Index returns the active item index.
func (r *RapidRunner) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Confirm saves the active item's answer and advances. It is the manual arm
// of the advance machine; a no-op while a transition is already running.
func (r *RapidRunner) Confirm(ctx context.Context) {
	r.advance(ctx, true)
}

// Resync recomputes the active index from wall clock, jumping the UI forward
// past any items whose limits elapsed while the app was backgrounded. Items
// skipped this way are never saved; their time is simply gone.
func (r *RapidRunner) Resync(ctx context.Context) {
	r.mu.Lock()
	if r.transitioning {
		r.mu.Unlock()
		return
	}
	index, remaining, done := r.schedule.PositionAt(r.clock.Now())
	if done {
		r.stopCountdownLocked()
		r.mu.Unlock()
		r.sequencer.Finish(ctx)
		return
	}
	// The UI can be ahead of the schedule after an early confirm; resync
	// only ever jumps forward.
	if index <= r.index {
		if r.countdown != nil {
			cd := r.countdown
			r.mu.Unlock()
			cd.Resync()
			return
		}
		r.mu.Unlock()
		return
	}
	r.stopCountdownLocked()
	r.index = index
	r.startCountdownLocked(ctx, remaining)
	r.mu.Unlock()
	if r.onAdvance != nil {
		r.onAdvance(index, remaining)
	}
}

// Stop halts the active countdown, used on unmount.
func (r *RapidRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCountdownLocked()
}

// advance runs one step of the advance machine. save is true for manual
// confirms; timer expiry advances without re-saving since the answer may not
// have been confirmed.
func (r *RapidRunner) advance(ctx context.Context, save bool) {
	r.mu.Lock()
	if r.transitioning || r.sequencer.Finishing() {
		r.mu.Unlock()
		return
	}
	r.transitioning = true
	current := r.index
	r.stopCountdownLocked()
	r.mu.Unlock()

	if save && r.token != "" && current < len(r.items) {
		item := r.items[current]
		payload := r.store.ItemSnapshot(item.ID)
		if len(payload) > 0 {
			if _, err := r.saver.SaveAnswers(ctx, r.attemptID, payload); err != nil {
				r.logger.Warn("rapid item save failed",
					"attempt_id", r.attemptID,
					"item_id", item.ID,
					"error", err)
			}
		}
	}

	r.mu.Lock()
	if current >= len(r.items)-1 {
		r.transitioning = false
		r.mu.Unlock()
		r.sequencer.Finish(ctx)
		return
	}
	r.index = current + 1
	remaining := r.schedule.RemainingFor(r.index, r.clock.Now())
	if remaining <= 0 {
		remaining = r.schedule.limits[r.index]
	}
	r.startCountdownLocked(ctx, remaining)
	index := r.index
	r.transitioning = false
	r.mu.Unlock()
	if r.onAdvance != nil {
		r.onAdvance(index, remaining)
	}
}

func (r *RapidRunner) startCountdownLocked(ctx context.Context, remaining int) {
	now := r.clock.Now()
	cd := NewCountdown(r.clock, remaining, now, r.onItemTick, func() {
		r.advance(ctx, false)
	})
	r.countdown = cd
	cd.Start()
}

func (r *RapidRunner) stopCountdownLocked() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}
