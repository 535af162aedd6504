package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizType string

const (
	QuizTypeBasic     QuizType = "basic"
	QuizTypeRapid     QuizType = "rapid"
	QuizTypeCrossword QuizType = "crossword"
)

type ItemKind string

const (
	ItemKindChoice ItemKind = "choice"
	ItemKindText   ItemKind = "text"
)

type EntryDirection string

const (
	DirectionAcross EntryDirection = "across"
	DirectionDown   EntryDirection = "down"
)

// Quiz is the immutable snapshot a student plays against. Attempts keep a
// reference to the quiz version they were started with, so edits made by the
// teacher after an attempt begins never change a running attempt.
type Quiz struct {
	ID    string   `json:"id" gorm:"primaryKey;size:36"`
	Name  string   `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Type  QuizType `json:"type" gorm:"not null;index" validate:"required,quiz_type"`
	Grade *string  `json:"grade" gorm:"size:50"`

	// TotalTimeLimit is the whole-quiz countdown in seconds. 0 means untimed.
	// Rapid quizzes ignore it and use the per-item limits instead.
	TotalTimeLimit int `json:"total_time_limit" gorm:"default:0" validate:"min=0,max=14400"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	Version   int            `json:"version" gorm:"default:1"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Items   []QuizItem       `json:"items" gorm:"foreignKey:QuizID"`
	Entries []CrosswordEntry `json:"entries,omitempty" gorm:"foreignKey:QuizID"`
}

// QuizItem is one question of a basic or rapid quiz.
type QuizItem struct {
	ID     string   `json:"id" gorm:"primaryKey;size:36"`
	QuizID string   `json:"quiz_id" gorm:"not null;size:36;index"`
	Kind   ItemKind `json:"kind" gorm:"not null" validate:"required,item_kind"`
	Order  int      `json:"order" gorm:"not null"`
	Prompt string   `json:"prompt" gorm:"type:text;not null" validate:"required"`
	Points int      `json:"points" gorm:"default:1" validate:"min=0"`

	// MultiSelect only applies to choice items: single-select keeps at most
	// one selected option, multi-select toggles membership.
	MultiSelect bool `json:"multi_select" gorm:"default:false"`

	// TimeLimit is the per-item countdown in seconds for rapid quizzes.
	TimeLimit int `json:"time_limit" gorm:"default:0" validate:"min=0,max=600"`

	// Options is the []ItemOption list for choice items.
	Options datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`

	// CorrectAnswer holds the grading key: []string of option ids for choice
	// items, a plain string for text items. Never sent to students.
	CorrectAnswer datatypes.JSON `json:"-" gorm:"type:jsonb"`
}

type ItemOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CrosswordEntry is one word slot of a crossword quiz. Cell positions are
// derived from Row/Col/Direction/Length; the grid itself is not stored.
type CrosswordEntry struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	QuizID    string         `json:"quiz_id" gorm:"not null;size:36;index"`
	Number    int            `json:"number" gorm:"not null"`
	Clue      string         `json:"clue" gorm:"type:text;not null"`
	Row       int            `json:"row" gorm:"not null" validate:"min=0"`
	Col       int            `json:"col" gorm:"not null" validate:"min=0"`
	Direction EntryDirection `json:"direction" gorm:"not null" validate:"required,oneof=across down"`
	Length    int            `json:"length" gorm:"not null" validate:"min=1,max=50"`
	Solution  string         `json:"-" gorm:"size:50"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizItem) TableName() string {
	return "quiz_items"
}

func (CrosswordEntry) TableName() string {
	return "crossword_entries"
}

// CellPositions returns the (row, col) coordinates covered by the entry, in
// reading order.
func (e *CrosswordEntry) CellPositions() [][2]int {
	cells := make([][2]int, e.Length)
	for i := 0; i < e.Length; i++ {
		if e.Direction == DirectionDown {
			cells[i] = [2]int{e.Row + i, e.Col}
		} else {
			cells[i] = [2]int{e.Row, e.Col + i}
		}
	}
	return cells
}

// ItemIDs returns the ids answer payload keys are validated against: item ids
// for basic/rapid quizzes, entry ids for crosswords.
func (q *Quiz) ItemIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(q.Items)+len(q.Entries))
	if q.Type == QuizTypeCrossword {
		for _, e := range q.Entries {
			ids[e.ID] = struct{}{}
		}
		return ids
	}
	for _, item := range q.Items {
		ids[item.ID] = struct{}{}
	}
	return ids
}

// MaxScore is the sum of item points, or one point per crossword entry.
func (q *Quiz) MaxScore() int {
	if q.Type == QuizTypeCrossword {
		return len(q.Entries)
	}
	total := 0
	for _, item := range q.Items {
		total += item.Points
	}
	return total
}
