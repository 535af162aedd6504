package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestCountdown_ResumesFromServerStartTime(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	// Attempt started 61 seconds ago on a 600 second quiz: the countdown
	// must resume mid-count, not restart from the full limit.
	cd := NewCountdown(clock, 600, testEpoch.Add(-61*time.Second), nil, nil)
	cd.Start()

	assert.Equal(t, 539, cd.Remaining())
}

func TestCountdown_TicksOncePerSecond(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	var ticks []int
	cd := NewCountdown(clock, 10, testEpoch, func(remaining int) {
		ticks = append(ticks, remaining)
	}, nil)
	cd.Start()

	clock.Advance(3 * time.Second)

	assert.Equal(t, []int{9, 8, 7}, ticks)
	assert.Equal(t, 7, cd.Remaining())
}

func TestCountdown_NeverIncreases(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	var ticks []int
	cd := NewCountdown(clock, 5, testEpoch, func(remaining int) {
		ticks = append(ticks, remaining)
	}, nil)
	cd.Start()

	clock.Advance(10 * time.Second)

	prev := 5
	for _, r := range ticks {
		assert.LessOrEqual(t, r, prev)
		assert.GreaterOrEqual(t, r, 0)
		prev = r
	}
}

func TestCountdown_ExpiresExactlyOnce(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	expirations := 0
	cd := NewCountdown(clock, 3, testEpoch, nil, func() {
		expirations++
	})
	cd.Start()

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, expirations)
	assert.Equal(t, 0, cd.Remaining())

	// Nothing further fires once the count is spent.
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, expirations)
}

func TestCountdown_AlreadyElapsedExpiresOnStart(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	expirations := 0
	cd := NewCountdown(clock, 30, testEpoch.Add(-45*time.Second), nil, func() {
		expirations++
	})
	cd.Start()

	assert.Equal(t, 1, expirations)
	assert.Equal(t, 0, cd.Remaining())
}

func TestCountdown_UntimedNeverTicksOrExpires(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	ticks, expirations := 0, 0
	cd := NewCountdown(clock, 0, testEpoch, func(int) { ticks++ }, func() { expirations++ })
	cd.Start()

	clock.Advance(time.Hour)

	assert.True(t, cd.Untimed())
	assert.Zero(t, ticks)
	assert.Zero(t, expirations)
}

func TestCountdown_StopHaltsTicking(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	ticks := 0
	cd := NewCountdown(clock, 60, testEpoch, func(int) { ticks++ }, nil)
	cd.Start()

	clock.Advance(2 * time.Second)
	cd.Stop()
	clock.Advance(10 * time.Second)

	assert.Equal(t, 2, ticks)
}

func TestCountdown_ResyncMatchesWallClock(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	cd := NewCountdown(clock, 120, testEpoch, nil, nil)
	cd.Start()

	clock.Advance(17 * time.Second)
	cd.Resync()

	assert.Equal(t, 103, cd.Remaining())
}

func TestRemainingAt(t *testing.T) {
	startedAt := testEpoch

	tests := []struct {
		name  string
		limit int
		now   time.Time
		want  int
	}{
		{"at start", 600, startedAt, 600},
		{"mid count", 600, startedAt.Add(61 * time.Second), 539},
		{"sub-second elapsed rounds down", 600, startedAt.Add(1500 * time.Millisecond), 599},
		{"exactly elapsed", 600, startedAt.Add(600 * time.Second), 0},
		{"past deadline clamps at zero", 600, startedAt.Add(2 * time.Hour), 0},
		{"clock before start clamps elapsed", 600, startedAt.Add(-10 * time.Second), 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, remainingAt(tt.limit, startedAt, tt.now))
		})
	}
}
