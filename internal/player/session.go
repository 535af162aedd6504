package player

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/classquiz/attempt-service/internal/models"
)

// Session wires one attempt's runtime: answer store, save dispatcher, finish
// sequencer and the timer variant matching the quiz type. It is the
// programmatic equivalent of mounting a play screen.
type Session struct {
	quiz    *models.Quiz
	attempt *models.Attempt

	clock      Clock
	logger     *slog.Logger
	store      *AnswerStore
	dispatcher *Dispatcher
	sequencer  *FinishSequencer
	countdown  *Countdown
	rapid      *RapidRunner
}

// SessionConfig carries the collaborators a Session needs. Endpoint is the
// save/finalize pair, usually an *APIClient. Navigate receives the terminal
// Result. OnTick and OnAdvance are optional UI hooks.
type SessionConfig struct {
	Quiz     *models.Quiz
	Attempt  *models.Attempt
	Token    string
	Clock    Clock
	Logger   *slog.Logger
	Saver    Saver
	Finisher Finalizer
	Navigate func(Result)

	OnTick    func(remaining int)
	OnAdvance func(index, remaining int)
}

func NewSession(cfg SessionConfig) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = NewClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var existing models.AnswersPayload
	if len(cfg.Attempt.Answers) > 0 {
		existing = decodeAnswers(cfg.Attempt.Answers)
	}
	store := NewAnswerStore(cfg.Quiz, existing)

	dispatcher := NewDispatcher(DispatcherConfig{
		Clock:     clock,
		Saver:     cfg.Saver,
		Logger:    logger,
		AttemptID: cfg.Attempt.ID,
		Token:     cfg.Token,
		Snapshot:  store.Snapshot,
	})

	scheduleID := ""
	if cfg.Attempt.ScheduleID != nil {
		scheduleID = *cfg.Attempt.ScheduleID
	}
	sequencer := NewFinishSequencer(dispatcher, cfg.Finisher, logger, cfg.Attempt.ID, cfg.Quiz.Name, func(res Result) {
		if res.ScheduleID == "" {
			res.ScheduleID = scheduleID
		}
		if cfg.Navigate != nil {
			cfg.Navigate(res)
		}
	})

	s := &Session{
		quiz:       cfg.Quiz,
		attempt:    cfg.Attempt,
		clock:      clock,
		logger:     logger,
		store:      store,
		dispatcher: dispatcher,
		sequencer:  sequencer,
	}

	if cfg.Quiz.Type == models.QuizTypeRapid {
		s.rapid = NewRapidRunner(RapidRunnerConfig{
			Clock:      clock,
			StartedAt:  cfg.Attempt.StartedAt,
			Items:      cfg.Quiz.Items,
			Store:      store,
			Saver:      cfg.Saver,
			Sequencer:  sequencer,
			Logger:     logger,
			AttemptID:  cfg.Attempt.ID,
			Token:      cfg.Token,
			OnAdvance:  cfg.OnAdvance,
			OnItemTick: cfg.OnTick,
		})
	} else if cfg.Quiz.TotalTimeLimit > 0 {
		s.countdown = NewCountdown(clock, cfg.Quiz.TotalTimeLimit, cfg.Attempt.StartedAt, cfg.OnTick, func() {
			s.sequencer.Finish(context.Background())
		})
	}

	return s
}

// Start begins ticking. For rapid quizzes this also positions the runner
// from wall clock, which may finish immediately on an exhausted schedule.
func (s *Session) Start(ctx context.Context) {
	if s.rapid != nil {
		s.rapid.Start(ctx)
		return
	}
	if s.countdown != nil {
		s.countdown.Start()
	}
}

// Store exposes the answer state for the UI.
func (s *Session) Store() *AnswerStore { return s.store }

// SaveStatus surfaces the idle/saving/error badge state.
func (s *Session) SaveStatus() SaveStatus { return s.dispatcher.Status() }

// Remaining returns the active countdown value in seconds.
func (s *Session) Remaining() int {
	if s.countdown != nil {
		return s.countdown.Remaining()
	}
	return 0
}

// ToggleChoice records a tap on a choice option. Discrete selections
// dispatch through the debounce window so a burst of taps coalesces into
// one save.
func (s *Session) ToggleChoice(itemID, optionID string) {
	s.store.ToggleChoice(itemID, optionID)
	s.dispatcher.ScheduleSave()
}

// SetText updates an open answer while typing. No save side effect.
func (s *Session) SetText(itemID, text string) {
	s.store.SetText(itemID, text)
}

// BlurText commits an open answer, saving immediately.
func (s *Session) BlurText(itemID string) {
	s.dispatcher.SaveNow()
}

// TypeCell records a crossword keystroke and schedules a debounced save.
func (s *Session) TypeCell(row, col int, r rune) {
	if grid := s.store.Grid(); grid != nil {
		grid.SetCell(row, col, r)
		s.dispatcher.ScheduleSave()
	}
}

// Confirm advances a rapid quiz past the active item.
func (s *Session) Confirm(ctx context.Context) {
	if s.rapid != nil {
		s.rapid.Confirm(ctx)
	}
}

// Finish is the explicit Finish press. Reports false when the terminal
// sequence already ran.
func (s *Session) Finish(ctx context.Context) bool {
	return s.sequencer.Finish(ctx)
}

// Foreground recomputes timers from wall clock after the app regains focus.
func (s *Session) Foreground(ctx context.Context) {
	if s.rapid != nil {
		s.rapid.Resync(ctx)
		return
	}
	if s.countdown != nil {
		s.countdown.Resync()
	}
}

// Close is the unmount path: stop timers and flush unsaved state
// best-effort.
func (s *Session) Close(ctx context.Context) {
	if s.rapid != nil {
		s.rapid.Stop()
	}
	if s.countdown != nil {
		s.countdown.Stop()
	}
	_ = s.dispatcher.Flush(ctx)
}

func decodeAnswers(raw []byte) models.AnswersPayload {
	payload := make(models.AnswersPayload)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return make(models.AnswersPayload)
	}
	return payload
}
