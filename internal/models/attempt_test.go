package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptDeadline(t *testing.T) {
	startedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		quiz Quiz
		want *time.Time
	}{
		{
			name: "untimed basic quiz has no deadline",
			quiz: Quiz{Type: QuizTypeBasic, TotalTimeLimit: 0},
			want: nil,
		},
		{
			name: "timed quiz deadline is start plus limit",
			quiz: Quiz{Type: QuizTypeBasic, TotalTimeLimit: 600},
			want: timePtr(startedAt.Add(600 * time.Second)),
		},
		{
			name: "rapid quiz sums per-item limits",
			quiz: Quiz{
				Type:           QuizTypeRapid,
				TotalTimeLimit: 9999, // ignored for rapid
				Items: []QuizItem{
					{ID: "a", TimeLimit: 10},
					{ID: "b", TimeLimit: 15},
					{ID: "c", TimeLimit: 5},
				},
			},
			want: timePtr(startedAt.Add(30 * time.Second)),
		},
		{
			name: "rapid quiz with zero limits is untimed",
			quiz: Quiz{Type: QuizTypeRapid, Items: []QuizItem{{ID: "a"}}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt := &Attempt{StartedAt: startedAt}
			got := attempt.Deadline(&tt.quiz)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestAttemptExpired(t *testing.T) {
	startedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	quiz := &Quiz{Type: QuizTypeBasic, TotalTimeLimit: 60}
	attempt := &Attempt{StartedAt: startedAt}

	assert.False(t, attempt.Expired(quiz, startedAt.Add(59*time.Second)))
	assert.False(t, attempt.Expired(quiz, startedAt.Add(60*time.Second)))
	assert.True(t, attempt.Expired(quiz, startedAt.Add(61*time.Second)))

	untimed := &Quiz{Type: QuizTypeBasic}
	assert.False(t, attempt.Expired(untimed, startedAt.Add(100*time.Hour)))
}

func timePtr(t time.Time) *time.Time { return &t }
