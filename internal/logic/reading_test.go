package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"berean-backend/internal/db"
)

func TestAdjacentDayWraps(t *testing.T) {
	assert.Equal(t, 2, adjacentDay(1, 3, 1))
	assert.Equal(t, 1, adjacentDay(3, 3, 1))
	assert.Equal(t, 3, adjacentDay(1, 3, -1))
	assert.Equal(t, 1, adjacentDay(5, 0, 1))
}

func TestSummarize(t *testing.T) {
	plan := &db.ReadingPlan{TotalDays: 4}
	day := func(n int) *db.DailyReading { return &db.DailyReading{Day: n} }

	empty := summarize(plan, nil)
	assert.Equal(t, planProgress{TotalDays: 4, CurrentDay: 1, NextDay: 2}, empty)

	rows := []db.ReadingProgress{
		{IsCompleted: true, DailyReading: day(1)},
		{IsCompleted: true, DailyReading: day(2)},
		{DailyReading: day(3)},
	}
	got := summarize(plan, rows)
	assert.Equal(t, 2, got.CompletedDays)
	assert.Equal(t, 50, got.ProgressPercentage)
	assert.Equal(t, 3, got.CurrentDay)
	assert.Equal(t, 4, got.NextDay)
}
