package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	date := time.Date(2026, 3, 15, 13, 45, 12, 0, cairo)

	got, err := ParseClock("22:00", date)
	require.NoError(t, err)
	assert.Equal(t, 22, got.Hour())
	assert.Equal(t, 0, got.Minute())
	assert.Equal(t, date.Day(), got.Day())
	assert.Equal(t, cairo, got.Location())

	_, err = ParseClock("25:99", date)
	assert.Error(t, err)

	// empty clock returns the date unchanged
	got, err = ParseClock("", date)
	require.NoError(t, err)
	assert.True(t, got.Equal(date))
}

func TestInWindowSameDay(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 15, h, m, 0, 0, time.UTC)
	}
	start := at(13, 0)
	end := at(15, 0)

	assert.False(t, InWindow(at(12, 59), start, end))
	assert.True(t, InWindow(at(13, 0), start, end))
	assert.True(t, InWindow(at(14, 30), start, end))
	assert.False(t, InWindow(at(15, 0), start, end), "end is exclusive")
}

func TestInWindowSpansMidnight(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 15, h, m, 0, 0, time.UTC)
	}
	start := at(22, 0)
	end := at(6, 0)

	assert.True(t, InWindow(at(23, 30), start, end))
	assert.True(t, InWindow(at(22, 0), start, end))
	assert.True(t, InWindow(at(5, 59), start, end))
	assert.False(t, InWindow(at(6, 0), start, end))
	assert.False(t, InWindow(at(12, 0), start, end))
}

func TestInWindowDegenerate(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.False(t, InWindow(at, at, at), "zero-width window never matches")
}
