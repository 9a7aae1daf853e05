package progress

import (
	"time"

	"berean-backend/internal/db"
)

// CivilDate is midnight of t's calendar day in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from a to b in loc, ignoring DST.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// AdvanceStreak records a reading on now's calendar day. A reading the
// day after the last one extends the streak, one on the same day leaves it
// alone, and a longer gap restarts it at 1. A last reading date in the
// future counts as the same day and is kept.
func AdvanceStreak(s *db.ReadingStreak, now time.Time, loc *time.Location) {
	today := CivilDate(now, loc)
	next := 1
	if s.LastReadingDate != nil {
		diff := DaysBetween(*s.LastReadingDate, today, loc)
		switch {
		case diff == 1:
			next = s.CurrentStreak + 1
		case diff == 0:
			next = s.CurrentStreak
		case diff < 0:
			next = s.CurrentStreak
			today = CivilDate(*s.LastReadingDate, loc)
		}
	}
	s.CurrentStreak = next
	if next > s.LongestStreak {
		s.LongestStreak = next
	}
	s.LastReadingDate = &today
}
