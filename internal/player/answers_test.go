package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classquiz/attempt-service/internal/models"
)

func basicQuiz() *models.Quiz {
	return &models.Quiz{
		ID:   "quiz-1",
		Name: "Fractions",
		Type: models.QuizTypeBasic,
		Items: []models.QuizItem{
			{ID: "item-single", Kind: models.ItemKindChoice, Order: 0},
			{ID: "item-multi", Kind: models.ItemKindChoice, Order: 1, MultiSelect: true},
			{ID: "item-open", Kind: models.ItemKindText, Order: 2},
		},
	}
}

func TestAnswerStore_SingleSelectReplacesSelection(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.ToggleChoice("item-single", "opt-a")
	assert.Equal(t, []string{"opt-a"}, store.Selection("item-single"))

	// Picking another option replaces, it does not accumulate.
	store.ToggleChoice("item-single", "opt-b")
	assert.Equal(t, []string{"opt-b"}, store.Selection("item-single"))
}

func TestAnswerStore_SingleSelectToggleClearsSelection(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.ToggleChoice("item-single", "opt-a")
	store.ToggleChoice("item-single", "opt-a")

	assert.Empty(t, store.Selection("item-single"))
}

func TestAnswerStore_SingleSelectNeverExceedsOne(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	for _, opt := range []string{"opt-a", "opt-b", "opt-c", "opt-a", "opt-b"} {
		store.ToggleChoice("item-single", opt)
		assert.LessOrEqual(t, len(store.Selection("item-single")), 1)
	}
}

func TestAnswerStore_MultiSelectTogglesMembership(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.ToggleChoice("item-multi", "opt-a")
	store.ToggleChoice("item-multi", "opt-b")
	assert.ElementsMatch(t, []string{"opt-a", "opt-b"}, store.Selection("item-multi"))

	// Toggling the same option twice restores the original set.
	store.ToggleChoice("item-multi", "opt-c")
	store.ToggleChoice("item-multi", "opt-c")
	assert.ElementsMatch(t, []string{"opt-a", "opt-b"}, store.Selection("item-multi"))
}

func TestAnswerStore_SetTextHasNoSelectionSideEffects(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.SetText("item-open", "photo")
	store.SetText("item-open", "photosynthesis")

	assert.Equal(t, "photosynthesis", store.Text("item-open"))
	assert.Empty(t, store.Selection("item-single"))
}

func TestAnswerStore_SnapshotOmitsEmptyAnswers(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.ToggleChoice("item-single", "opt-a")
	store.SetText("item-open", "drafted")
	store.SetText("item-open", "")

	payload := store.Snapshot()

	assert.Equal(t, []string{"opt-a"}, payload.Choice("item-single"))
	assert.NotContains(t, payload, "item-open")
	assert.NotContains(t, payload, "item-multi")
}

func TestAnswerStore_ResumePreloadsExistingAnswers(t *testing.T) {
	existing := make(models.AnswersPayload)
	existing.SetChoice("item-multi", []string{"opt-a", "opt-c"})
	existing.SetText("item-open", "mitochondria")

	store := NewAnswerStore(basicQuiz(), existing)

	assert.ElementsMatch(t, []string{"opt-a", "opt-c"}, store.Selection("item-multi"))
	assert.Equal(t, "mitochondria", store.Text("item-open"))

	// Resumed state keeps its toggle semantics.
	store.ToggleChoice("item-multi", "opt-a")
	assert.ElementsMatch(t, []string{"opt-c"}, store.Selection("item-multi"))
}

func TestAnswerStore_ItemSnapshotContainsOnlyThatItem(t *testing.T) {
	store := NewAnswerStore(basicQuiz(), nil)

	store.ToggleChoice("item-single", "opt-b")
	store.SetText("item-open", "answer")

	payload := store.ItemSnapshot("item-single")

	assert.Len(t, payload, 1)
	assert.Equal(t, []string{"opt-b"}, payload.Choice("item-single"))

	assert.Empty(t, store.ItemSnapshot("item-multi"))
}
