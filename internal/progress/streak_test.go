package progress

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"berean-backend/internal/db"
)

func date(y int, m time.Month, d, h int, loc *time.Location) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, loc)
}

func TestAdvanceStreakFirstReading(t *testing.T) {
	s := &db.ReadingStreak{}
	now := date(2024, 3, 10, 21, time.UTC)

	AdvanceStreak(s, now, time.UTC)

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	assert.Equal(t, date(2024, 3, 10, 0, time.UTC), *s.LastReadingDate)
}

func TestAdvanceStreakConsecutiveDay(t *testing.T) {
	yesterday := date(2024, 3, 9, 0, time.UTC)
	s := &db.ReadingStreak{CurrentStreak: 5, LongestStreak: 5, LastReadingDate: &yesterday}

	AdvanceStreak(s, date(2024, 3, 10, 7, time.UTC), time.UTC)
	assert.Equal(t, 6, s.CurrentStreak)
	assert.Equal(t, 6, s.LongestStreak)

	s = &db.ReadingStreak{CurrentStreak: 5, LongestStreak: 12, LastReadingDate: &yesterday}
	AdvanceStreak(s, date(2024, 3, 10, 7, time.UTC), time.UTC)
	assert.Equal(t, 6, s.CurrentStreak)
	assert.Equal(t, 12, s.LongestStreak)
}

func TestAdvanceStreakGapResets(t *testing.T) {
	last := date(2024, 3, 7, 0, time.UTC)
	s := &db.ReadingStreak{CurrentStreak: 9, LongestStreak: 9, LastReadingDate: &last}

	AdvanceStreak(s, date(2024, 3, 10, 7, time.UTC), time.UTC)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 9, s.LongestStreak)
}

func TestAdvanceStreakSameDayIsIdempotent(t *testing.T) {
	s := &db.ReadingStreak{}
	AdvanceStreak(s, date(2024, 3, 10, 6, time.UTC), time.UTC)
	AdvanceStreak(s, date(2024, 3, 10, 23, time.UTC), time.UTC)
	assert.Equal(t, 1, s.CurrentStreak)
}

func TestAdvanceStreakFutureLastDate(t *testing.T) {
	future := date(2024, 3, 12, 0, time.UTC)
	s := &db.ReadingStreak{CurrentStreak: 3, LongestStreak: 4, LastReadingDate: &future}

	AdvanceStreak(s, date(2024, 3, 10, 7, time.UTC), time.UTC)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 4, s.LongestStreak)
	assert.Equal(t, future, *s.LastReadingDate)
}

func TestAdvanceStreakAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2024-03-10 is 23 hours long in New York.
	before := date(2024, 3, 10, 0, loc)
	s := &db.ReadingStreak{CurrentStreak: 2, LongestStreak: 2, LastReadingDate: &before}

	AdvanceStreak(s, date(2024, 3, 11, 0, loc).Add(30*time.Minute), loc)
	assert.Equal(t, 3, s.CurrentStreak)
}

func TestAdvanceStreakUsesReferenceLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	last := date(2024, 3, 9, 0, loc)
	s := &db.ReadingStreak{CurrentStreak: 1, LongestStreak: 1, LastReadingDate: &last}

	// 05:00 UTC on the 11th is still the 10th at UTC-8.
	AdvanceStreak(s, date(2024, 3, 11, 5, time.UTC), loc)
	assert.Equal(t, 2, s.CurrentStreak)
}

func TestStreakInvariantsOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		s := &db.ReadingStreak{}
		now := date(2024, 1, 1, 8, time.UTC)
		prevLongest := 0
		for step := 0; step < 60; step++ {
			gap := rng.Intn(4) // 0 same day, 1 next day, 2-3 gap
			now = now.AddDate(0, 0, gap)
			before := s.CurrentStreak
			hadDate := s.LastReadingDate != nil

			AdvanceStreak(s, now, time.UTC)

			assert.GreaterOrEqual(t, s.LongestStreak, s.CurrentStreak)
			assert.GreaterOrEqual(t, s.LongestStreak, prevLongest)
			switch {
			case !hadDate:
				assert.Equal(t, 1, s.CurrentStreak)
			case gap == 0:
				assert.Equal(t, before, s.CurrentStreak)
			case gap == 1:
				assert.Equal(t, before+1, s.CurrentStreak)
			default:
				assert.Equal(t, 1, s.CurrentStreak)
			}
			prevLongest = s.LongestStreak
		}
	}
}
