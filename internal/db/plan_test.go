package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"berean-backend/internal/bible"
)

func TestGenerateBereanPlan(t *testing.T) {
	plan, err := GenerateBereanPlan()
	require.NoError(t, err)
	require.Len(t, plan.DailyReadings, BereanPlanDays)
	assert.Equal(t, BereanPlanDays, plan.TotalDays)

	for i, r := range plan.DailyReadings {
		require.Equal(t, i+1, r.Day)
		assert.NotEmpty(t, r.NTPassages, "day %d", r.Day)
		assert.NotEmpty(t, r.OTPassages, "day %d", r.Day)
		assert.Equal(t, r.NTEstimatedMinutes+r.OTEstimatedMinutes, r.TotalEstimatedMinutes)
		assert.Equal(t, (r.Day-1)%30+1, r.NTRepetitionCount)
		for _, p := range r.Passages() {
			_, err := bible.ParseReference(p)
			assert.NoError(t, err, "day %d passage %q", r.Day, p)
		}
	}

	day := func(n int) DailyReading { return plan.DailyReadings[n-1] }

	assert.Equal(t, []string{"1 John 1-5"}, []string(day(1).NTPassages))
	assert.Equal(t, RepetitionEntireBook, day(1).NTRepetitionType)
	assert.Equal(t, 20, day(1).NTEstimatedMinutes)
	assert.Equal(t, []string{"Philippians 1-4"}, []string(day(121).NTPassages))
	assert.Equal(t, []string{"Ephesians 1-6"}, []string(day(211).NTPassages))
	assert.Equal(t, RepetitionChapters, day(31).NTRepetitionType)
	assert.Equal(t, RepetitionReview, day(1260).NTRepetitionType)
	assert.Equal(t, 30, day(1260).NTRepetitionCount)

	assert.Equal(t, 1, day(360).Phase)
	assert.Equal(t, 2, day(361).Phase)
	assert.Equal(t, 3, day(990).Phase)
	assert.Equal(t, 4, day(991).Phase)

	assert.Equal(t, 1, day(365).OTCycle)
	assert.Equal(t, 2, day(366).OTCycle)
	assert.Equal(t, 4, day(1260).OTCycle)
	assert.Equal(t, day(1).OTPassages, day(366).OTPassages)
	assert.Equal(t, []string{"Malachi 2-4"}, []string(day(365).OTPassages))
}

func TestOTScheduleCoversEveryChapterOnce(t *testing.T) {
	days := otSchedule(365)
	total := 0
	for _, d := range days {
		total += d.chapters
		assert.True(t, d.chapters == 2 || d.chapters == 3)
	}
	assert.Equal(t, 929, total)
}

func TestPhaseForDayWithoutBoundaries(t *testing.T) {
	assert.Equal(t, 1, PhaseForDay(&ReadingPlan{TotalDays: 30}, 25))
	end := 10
	assert.Equal(t, 2, PhaseForDay(&ReadingPlan{Phase1EndDay: &end}, 11))
}
