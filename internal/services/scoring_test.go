package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/classquiz/attempt-service/internal/models"
)

func rawJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func attemptWithAnswers(t *testing.T, answers models.AnswersPayload) *models.Attempt {
	t.Helper()
	return &models.Attempt{
		ID:      "attempt-1",
		Answers: rawJSON(t, answers),
	}
}

func gradableQuiz(t *testing.T) *models.Quiz {
	t.Helper()
	return &models.Quiz{
		ID:   "quiz-1",
		Type: models.QuizTypeBasic,
		Items: []models.QuizItem{
			{
				ID:            "item-single",
				Kind:          models.ItemKindChoice,
				Points:        2,
				CorrectAnswer: rawJSON(t, []string{"opt-a"}),
			},
			{
				ID:            "item-multi",
				Kind:          models.ItemKindChoice,
				Points:        3,
				MultiSelect:   true,
				CorrectAnswer: rawJSON(t, []string{"opt-a", "opt-c"}),
			},
			{
				ID:            "item-open",
				Kind:          models.ItemKindText,
				Points:        1,
				CorrectAnswer: rawJSON(t, "Photosynthesis"),
			},
			{
				ID:     "item-ungraded",
				Kind:   models.ItemKindText,
				Points: 1,
				// No answer key: never scores.
			},
		},
	}
}

func TestScoreAttempt_FullMarks(t *testing.T) {
	answers := make(models.AnswersPayload)
	answers.SetChoice("item-single", []string{"opt-a"})
	answers.SetChoice("item-multi", []string{"opt-c", "opt-a"}) // order must not matter
	answers.SetText("item-open", "  photosynthesis ")           // case and whitespace must not matter

	score, maxScore, err := ScoreAttempt(attemptWithAnswers(t, answers), gradableQuiz(t))

	require.NoError(t, err)
	assert.Equal(t, 6, score)
	assert.Equal(t, 7, maxScore)
}

func TestScoreAttempt_PartialSelectionScoresNothing(t *testing.T) {
	answers := make(models.AnswersPayload)
	answers.SetChoice("item-multi", []string{"opt-a"}) // missing opt-c

	score, _, err := ScoreAttempt(attemptWithAnswers(t, answers), gradableQuiz(t))

	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreAttempt_ExtraSelectionScoresNothing(t *testing.T) {
	answers := make(models.AnswersPayload)
	answers.SetChoice("item-single", []string{"opt-a"})
	answers.SetChoice("item-multi", []string{"opt-a", "opt-c", "opt-b"})

	score, _, err := ScoreAttempt(attemptWithAnswers(t, answers), gradableQuiz(t))

	require.NoError(t, err)
	assert.Equal(t, 2, score) // only the single-select item
}

func TestScoreAttempt_EmptyAnswersScoreZero(t *testing.T) {
	score, maxScore, err := ScoreAttempt(&models.Attempt{ID: "attempt-1"}, gradableQuiz(t))

	require.NoError(t, err)
	assert.Equal(t, 0, score)
	assert.Equal(t, 7, maxScore)
}

func TestScoreAttempt_UnkeyedItemNeverScores(t *testing.T) {
	answers := make(models.AnswersPayload)
	answers.SetText("item-ungraded", "anything at all")

	score, _, err := ScoreAttempt(attemptWithAnswers(t, answers), gradableQuiz(t))

	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreAttempt_MalformedAnswersFails(t *testing.T) {
	attempt := &models.Attempt{ID: "attempt-1", Answers: datatypes.JSON(`{not json`)}

	_, _, err := ScoreAttempt(attempt, gradableQuiz(t))
	assert.Error(t, err)
}

func TestScoreAttempt_CrosswordOnePointPerEntry(t *testing.T) {
	quiz := &models.Quiz{
		ID:   "quiz-cw",
		Type: models.QuizTypeCrossword,
		Entries: []models.CrosswordEntry{
			{ID: "entry-1", Length: 3, Solution: "CAT"},
			{ID: "entry-2", Length: 3, Solution: "COW"},
			{ID: "entry-3", Length: 3, Solution: "OWL"},
		},
	}

	answers := make(models.AnswersPayload)
	answers.SetText("entry-1", "cat") // case-insensitive
	answers.SetText("entry-2", "CO ") // incomplete
	answers.SetText("entry-3", "OWL")

	score, maxScore, err := ScoreAttempt(attemptWithAnswers(t, answers), quiz)

	require.NoError(t, err)
	assert.Equal(t, 2, score)
	assert.Equal(t, 3, maxScore)
}

func TestSameIDSet(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"identical", []string{"x", "y"}, []string{"x", "y"}, true},
		{"order insensitive", []string{"y", "x"}, []string{"x", "y"}, true},
		{"subset", []string{"x"}, []string{"x", "y"}, false},
		{"superset", []string{"x", "y", "z"}, []string{"x", "y"}, false},
		{"empty selection", nil, []string{"x"}, false},
		{"both empty", nil, nil, false},
		{"duplicates collapse", []string{"x", "x"}, []string{"x", "y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameIDSet(tt.a, tt.b))
		})
	}
}
