package player

import (
	"sync"

	"github.com/classquiz/attempt-service/internal/models"
)

// AnswerStore is the in-memory answer state for one attempt. Mutations come
// from UI callbacks only; nothing here talks to the network. Every save
// rebuilds the full payload from this state rather than diffing.
type AnswerStore struct {
	mu sync.Mutex

	multiSelect map[string]bool
	selections  map[string][]string
	texts       map[string]string
	grid        *CrosswordGrid
}

// NewAnswerStore builds a store for the given quiz, preloaded with any
// answers carried over from a resumed attempt.
func NewAnswerStore(quiz *models.Quiz, existing models.AnswersPayload) *AnswerStore {
	s := &AnswerStore{
		multiSelect: make(map[string]bool),
		selections:  make(map[string][]string),
		texts:       make(map[string]string),
	}
	if quiz.Type == models.QuizTypeCrossword {
		s.grid = NewCrosswordGrid(quiz.Entries)
		if existing != nil {
			s.grid.Load(existing)
		}
		return s
	}
	for _, item := range quiz.Items {
		switch item.Kind {
		case models.ItemKindChoice:
			s.multiSelect[item.ID] = item.MultiSelect
			if existing != nil {
				if ids := existing.Choice(item.ID); len(ids) > 0 {
					s.selections[item.ID] = ids
				}
			}
		case models.ItemKindText:
			if existing != nil {
				if text := existing.Text(item.ID); text != "" {
					s.texts[item.ID] = text
				}
			}
		}
	}
	return s
}

// ToggleChoice flips the selection state of one option. Single-select items
// replace the whole selection, so the stored slice never exceeds one id;
// multi-select items toggle membership, so toggling twice restores the
// original set.
func (s *AnswerStore) ToggleChoice(itemID, optionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.selections[itemID]
	if !s.multiSelect[itemID] {
		if len(current) == 1 && current[0] == optionID {
			s.selections[itemID] = nil
			return
		}
		s.selections[itemID] = []string{optionID}
		return
	}

	for i, id := range current {
		if id == optionID {
			s.selections[itemID] = append(current[:i:i], current[i+1:]...)
			return
		}
	}
	s.selections[itemID] = append(current, optionID)
}

// Selection returns the selected option ids for a choice item.
func (s *AnswerStore) Selection(itemID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.selections[itemID]))
	copy(out, s.selections[itemID])
	return out
}

// SetText replaces the text answer for an open item. Deliberately free of
// save side effects: open answers are dispatched on blur/submit, never while
// typing.
func (s *AnswerStore) SetText(itemID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[itemID] = text
}

// Text returns the current text answer for an item.
func (s *AnswerStore) Text(itemID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texts[itemID]
}

// Grid exposes the crossword grid, or nil for non-crossword quizzes.
func (s *AnswerStore) Grid() *CrosswordGrid {
	return s.grid
}

// Snapshot rebuilds the full answers payload from local state. Crossword
// payloads are re-derived from the grid by walking each entry's cells.
func (s *AnswerStore) Snapshot() models.AnswersPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grid != nil {
		return s.grid.Payload()
	}

	payload := make(models.AnswersPayload, len(s.selections)+len(s.texts))
	for id, sel := range s.selections {
		if len(sel) > 0 {
			payload.SetChoice(id, sel)
		}
	}
	for id, text := range s.texts {
		if text != "" {
			payload.SetText(id, text)
		}
	}
	return payload
}

// ItemSnapshot rebuilds the payload for a single item, used by rapid mode
// which saves one item per confirm.
func (s *AnswerStore) ItemSnapshot(itemID string) models.AnswersPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := make(models.AnswersPayload, 1)
	if sel, ok := s.selections[itemID]; ok && len(sel) > 0 {
		payload.SetChoice(itemID, sel)
	} else if text, ok := s.texts[itemID]; ok && text != "" {
		payload.SetText(itemID, text)
	}
	return payload
}
