package player

import (
	"strings"
	"sync"
	"unicode"

	"github.com/classquiz/attempt-service/internal/models"
)

const blankCell = ' '

// CrosswordGrid holds the letters the student has typed, addressed by
// row/col. The grid is the UI source of truth; the per-entry strings the
// server stores are re-derived from it on every save by walking each entry's
// cell positions (blank cell -> space, letter -> uppercase).
type CrosswordGrid struct {
	mu sync.Mutex

	rows, cols int
	cells      [][]rune
	entries    []models.CrosswordEntry
}

// NewCrosswordGrid sizes a grid to the extent of the given entries.
func NewCrosswordGrid(entries []models.CrosswordEntry) *CrosswordGrid {
	rows, cols := 0, 0
	for _, e := range entries {
		for _, pos := range e.CellPositions() {
			if pos[0]+1 > rows {
				rows = pos[0] + 1
			}
			if pos[1]+1 > cols {
				cols = pos[1] + 1
			}
		}
	}
	cells := make([][]rune, rows)
	for i := range cells {
		cells[i] = make([]rune, cols)
		for j := range cells[i] {
			cells[i][j] = blankCell
		}
	}
	return &CrosswordGrid{
		rows:    rows,
		cols:    cols,
		entries: entries,
		cells:   cells,
	}
}

// Size returns the grid dimensions.
func (g *CrosswordGrid) Size() (rows, cols int) {
	return g.rows, g.cols
}

// SetCell writes one letter. Out-of-range positions are ignored; anything
// that is not a letter or digit clears the cell.
func (g *CrosswordGrid) SetCell(row, col int, r rune) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		g.cells[row][col] = blankCell
		return
	}
	g.cells[row][col] = unicode.ToUpper(r)
}

// ClearCell blanks one cell.
func (g *CrosswordGrid) ClearCell(row, col int) {
	g.SetCell(row, col, blankCell)
}

// Cell reads one cell; blank and out-of-range cells read as a space.
func (g *CrosswordGrid) Cell(row, col int) rune {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return blankCell
	}
	return g.cells[row][col]
}

// Load fills the grid from a saved answers payload. Entry strings shorter
// than the entry length leave the tail blank; longer strings are truncated.
func (g *CrosswordGrid) Load(payload models.AnswersPayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, entry := range g.entries {
		word := []rune(payload.Text(entry.ID))
		for i, pos := range entry.CellPositions() {
			if i >= len(word) {
				break
			}
			r := word[i]
			if r == blankCell {
				continue
			}
			g.cells[pos[0]][pos[1]] = unicode.ToUpper(r)
		}
	}
}

// Payload derives the per-entry strings from the grid. Every entry is
// present in the result with exactly Length characters, spaces standing in
// for blank cells, so loading the payload into a fresh grid round-trips.
func (g *CrosswordGrid) Payload() models.AnswersPayload {
	g.mu.Lock()
	defer g.mu.Unlock()
	payload := make(models.AnswersPayload, len(g.entries))
	for _, entry := range g.entries {
		var b strings.Builder
		for _, pos := range entry.CellPositions() {
			b.WriteRune(g.cells[pos[0]][pos[1]])
		}
		payload.SetText(entry.ID, b.String())
	}
	return payload
}
