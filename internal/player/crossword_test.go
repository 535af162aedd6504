package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classquiz/attempt-service/internal/models"
)

// crosswordEntries builds a small crossing pair:
//
//	C A T
//	O . .
//	W . .
//
// "cat" across at (0,0), "cow" down at (0,0), sharing the C.
func crosswordEntries() []models.CrosswordEntry {
	return []models.CrosswordEntry{
		{ID: "entry-across", Number: 1, Row: 0, Col: 0, Direction: models.DirectionAcross, Length: 3},
		{ID: "entry-down", Number: 2, Row: 0, Col: 0, Direction: models.DirectionDown, Length: 3},
	}
}

func TestCrosswordGrid_SizedToEntryExtent(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	rows, cols := grid.Size()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
}

func TestCrosswordGrid_LettersUppercased(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	grid.SetCell(0, 0, 'c')
	grid.SetCell(0, 1, 'A')

	assert.Equal(t, 'C', grid.Cell(0, 0))
	assert.Equal(t, 'A', grid.Cell(0, 1))
}

func TestCrosswordGrid_NonLetterClearsCell(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	grid.SetCell(0, 0, 'c')
	grid.SetCell(0, 0, '?')

	assert.Equal(t, ' ', grid.Cell(0, 0))
}

func TestCrosswordGrid_OutOfRangeIgnored(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	grid.SetCell(-1, 0, 'x')
	grid.SetCell(0, 99, 'x')

	assert.Equal(t, ' ', grid.Cell(-1, 0))
	assert.Equal(t, ' ', grid.Cell(0, 99))
}

func TestCrosswordGrid_PayloadPadsBlanksToEntryLength(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	// Only the shared corner and the last across cell are filled.
	grid.SetCell(0, 0, 'c')
	grid.SetCell(0, 2, 't')

	payload := grid.Payload()

	assert.Equal(t, "C T", payload.Text("entry-across"))
	assert.Equal(t, "C  ", payload.Text("entry-down"))
}

func TestCrosswordGrid_SharedCellAppearsInBothEntries(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())

	grid.SetCell(0, 0, 'c')
	grid.SetCell(0, 1, 'a')
	grid.SetCell(0, 2, 't')
	grid.SetCell(1, 0, 'o')
	grid.SetCell(2, 0, 'w')

	payload := grid.Payload()

	assert.Equal(t, "CAT", payload.Text("entry-across"))
	assert.Equal(t, "COW", payload.Text("entry-down"))
}

func TestCrosswordGrid_PayloadLoadRoundTrips(t *testing.T) {
	grid := NewCrosswordGrid(crosswordEntries())
	grid.SetCell(0, 0, 'c')
	grid.SetCell(0, 2, 't')
	grid.SetCell(2, 0, 'w')

	reloaded := NewCrosswordGrid(crosswordEntries())
	reloaded.Load(grid.Payload())

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			assert.Equal(t, grid.Cell(row, col), reloaded.Cell(row, col))
		}
	}
}

func TestCrosswordGrid_LoadTruncatesOverlongAnswers(t *testing.T) {
	payload := make(models.AnswersPayload)
	payload.SetText("entry-across", "CATTLE")

	grid := NewCrosswordGrid(crosswordEntries())
	grid.Load(payload)

	assert.Equal(t, "CAT", grid.Payload().Text("entry-across"))
	// Cells past the entry stay untouched.
	assert.Equal(t, ' ', grid.Cell(1, 0))
}

func TestCrosswordGrid_LoadShortAnswerLeavesTailBlank(t *testing.T) {
	payload := make(models.AnswersPayload)
	payload.SetText("entry-down", "co")

	grid := NewCrosswordGrid(crosswordEntries())
	grid.Load(payload)

	assert.Equal(t, "CO ", grid.Payload().Text("entry-down"))
}
