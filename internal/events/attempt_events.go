package events

import (
	"time"

	"github.com/classquiz/attempt-service/internal/models"
)

// EventType represents the attempt lifecycle events this service emits.
type EventType string

const (
	EventAttemptStarted      EventType = "attempt.started"
	EventAttemptAnswersSaved EventType = "attempt.answers_saved"
	EventAttemptFinished     EventType = "attempt.finished"
	EventAttemptTimedOut     EventType = "attempt.timed_out"
)

// AttemptEvent is the envelope published for every lifecycle transition.
type AttemptEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptStartedEvent struct {
	AttemptID string          `json:"attempt_id"`
	QuizID    string          `json:"quiz_id"`
	QuizType  models.QuizType `json:"quiz_type"`
	StudentID string          `json:"student_id"`
	StartedAt time.Time       `json:"started_at"`
	Resumed   bool            `json:"resumed"`
}

type AttemptAnswersSavedEvent struct {
	AttemptID      string `json:"attempt_id"`
	StudentID      string `json:"student_id"`
	AttemptVersion int    `json:"attempt_version"`
	AnswerCount    int    `json:"answer_count"`
}

type AttemptFinishedEvent struct {
	AttemptID string                  `json:"attempt_id"`
	QuizID    string                  `json:"quiz_id"`
	StudentID string                  `json:"student_id"`
	Score     int                     `json:"score"`
	MaxScore  int                     `json:"max_score"`
	EndReason models.AttemptEndReason `json:"end_reason"`
}
