package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/classquiz/attempt-service/internal/models"
)

// ScoreAttempt grades the objective items of an attempt against the quiz's
// answer key. Choice items score on exact set match, text items on trimmed
// case-insensitive equality, crossword entries letter-for-letter (one point
// per entry).
func ScoreAttempt(attempt *models.Attempt, quiz *models.Quiz) (score, maxScore int, err error) {
	answers := make(models.AnswersPayload)
	if len(attempt.Answers) > 0 {
		if err := json.Unmarshal(attempt.Answers, &answers); err != nil {
			return 0, 0, fmt.Errorf("failed to decode answers: %w", err)
		}
	}

	if quiz.Type == models.QuizTypeCrossword {
		return scoreCrossword(answers, quiz.Entries), len(quiz.Entries), nil
	}

	maxScore = quiz.MaxScore()
	for _, item := range quiz.Items {
		correct, err := scoreItem(answers, &item)
		if err != nil {
			return 0, 0, err
		}
		if correct {
			score += item.Points
		}
	}
	return score, maxScore, nil
}

func scoreItem(answers models.AnswersPayload, item *models.QuizItem) (bool, error) {
	if len(item.CorrectAnswer) == 0 {
		return false, nil // No key, not auto-gradable
	}

	switch item.Kind {
	case models.ItemKindChoice:
		var key []string
		if err := json.Unmarshal(item.CorrectAnswer, &key); err != nil {
			return false, fmt.Errorf("invalid answer key for item %s: %w", item.ID, err)
		}
		return sameIDSet(answers.Choice(item.ID), key), nil

	case models.ItemKindText:
		var key string
		if err := json.Unmarshal(item.CorrectAnswer, &key); err != nil {
			return false, fmt.Errorf("invalid answer key for item %s: %w", item.ID, err)
		}
		given := answers.Text(item.ID)
		return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(key)), nil
	}
	return false, nil
}

func scoreCrossword(answers models.AnswersPayload, entries []models.CrosswordEntry) int {
	score := 0
	for _, entry := range entries {
		if entry.Solution == "" {
			continue
		}
		given := answers.Text(entry.ID)
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(entry.Solution)) {
			score++
		}
	}
	return score
}

// sameIDSet compares selections order-insensitively. An empty selection
// never scores.
func sameIDSet(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	if len(set) != len(b) {
		return false
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
