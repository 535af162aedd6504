package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
)

// SaveStatus is the save indicator consumed by the UI.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusError  SaveStatus = "error"
)

// DefaultDebounce is the quiet period for coalescing rapid-fire mutations
// (crossword keystrokes, multiple-choice taps) into one save call.
const DefaultDebounce = 400 * time.Millisecond

// Saver sends one answers snapshot to the save endpoint and returns the
// server-assigned attempt version.
type Saver interface {
	SaveAnswers(ctx context.Context, attemptID string, payload models.AnswersPayload) (int, error)
}

// Dispatcher funnels every save for one attempt through a single serialized
// queue: at most one request is in flight, and a save requested while one is
// running coalesces into exactly one follow-up that snapshots the latest
// state. Responses therefore cannot be applied out of order, and a slow
// earlier save can never overwrite a later one. The dispatcher never sends a
// version of its own; it records whatever version the server returns.
type Dispatcher struct {
	mu sync.Mutex

	clock    Clock
	saver    Saver
	logger   *slog.Logger
	debounce time.Duration

	attemptID string
	token     string
	snapshot  func() models.AnswersPayload

	status        SaveStatus
	version       int
	debounceTimer Timer
	inFlight      bool
	pending       bool
	waiters       []chan struct{}
}

// DispatcherConfig wires a Dispatcher. Snapshot is called at dispatch time so
// the outgoing payload always reflects the latest local state. An empty
// Token turns every save into a no-op rather than an error.
type DispatcherConfig struct {
	Clock     Clock
	Saver     Saver
	Logger    *slog.Logger
	AttemptID string
	Token     string
	Snapshot  func() models.AnswersPayload
	Debounce  time.Duration
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		clock:     cfg.Clock,
		saver:     cfg.Saver,
		logger:    logger,
		debounce:  debounce,
		attemptID: cfg.AttemptID,
		token:     cfg.Token,
		snapshot:  cfg.Snapshot,
		status:    SaveStatusIdle,
	}
}

// Status returns the current save indicator state.
func (d *Dispatcher) Status() SaveStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Version returns the last attempt version the server reported.
func (d *Dispatcher) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// ScheduleSave (re)arms the debounce timer; the save goes out after the
// quiet period with whatever state the snapshot sees then.
func (d *Dispatcher) ScheduleSave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token == "" {
		return
	}
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
	}
	d.debounceTimer = d.clock.AfterFunc(d.debounce, func() {
		d.mu.Lock()
		d.debounceTimer = nil
		d.enqueueLocked()
		d.mu.Unlock()
	})
}

// SaveNow cancels any pending debounce and dispatches immediately. Used for
// discrete selections and blur events where waiting adds nothing.
func (d *Dispatcher) SaveNow() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.token == "" {
		return
	}
	d.cancelDebounceLocked()
	d.enqueueLocked()
}

// Flush cancels any pending debounce, dispatches unsaved state and waits for
// the queue to drain. It always returns nil: finish and navigation proceed
// best-effort even if the last save failed or ctx expired first.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.token == "" {
		d.mu.Unlock()
		return nil
	}
	if d.debounceTimer != nil {
		d.cancelDebounceLocked()
		d.enqueueLocked()
	}
	if !d.inFlight && !d.pending {
		d.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	d.waiters = append(d.waiters, done)
	d.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func (d *Dispatcher) cancelDebounceLocked() {
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
}

// enqueueLocked marks state dirty and starts the worker unless one is
// already draining the queue.
func (d *Dispatcher) enqueueLocked() {
	d.pending = true
	if d.inFlight {
		return
	}
	d.inFlight = true
	go d.drain()
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if !d.pending {
			d.inFlight = false
			for _, w := range d.waiters {
				close(w)
			}
			d.waiters = nil
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.status = SaveStatusSaving
		d.mu.Unlock()

		payload := d.snapshot()
		version, err := d.saver.SaveAnswers(context.Background(), d.attemptID, payload)

		d.mu.Lock()
		if err != nil {
			d.status = SaveStatusError
			d.mu.Unlock()
			d.logger.Warn("answers save failed",
				"attempt_id", d.attemptID,
				"error", err)
			continue
		}
		d.status = SaveStatusIdle
		d.version = version
		d.mu.Unlock()
	}
}
