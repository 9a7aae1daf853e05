package progress

import (
	"time"

	"berean-backend/internal/db"
)

// Section selects which track a completion event covers.
type Section string

const (
	SectionNT  Section = "nt"
	SectionOT  Section = "ot"
	SectionAll Section = ""
)

func ParseSection(s string) (Section, bool) {
	switch Section(s) {
	case SectionNT, SectionOT:
		return Section(s), true
	case "", "both", "all":
		return SectionAll, true
	}
	return "", false
}

// Timings are the optional reading durations in seconds sent with a
// completion. Zero values are treated as not recorded.
type Timings struct {
	NT     *int
	OT     *int
	Total  *int
	Legacy *int // readingTimeSeconds from older clients
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

func firstPositive(vs ...*int) *int {
	for _, v := range vs {
		if p := positive(v); p != nil {
			return p
		}
	}
	return nil
}

// ApplyCompletion marks section done on p. The day is complete once every
// track that has passages is done; completing both tracks at once always
// completes it.
func ApplyCompletion(p *db.ReadingProgress, r *db.DailyReading, section Section, t Timings, now time.Time) {
	switch section {
	case SectionNT:
		p.NTCompleted = true
		p.NTCompletedAt = &now
		p.NTReadingTimeSeconds = positive(t.NT)
		p.TotalReadingTimeSeconds = positive(t.Total)
		if p.OTCompleted || len(r.OTPassages) == 0 {
			p.IsCompleted = true
			p.CompletedAt = &now
		}
	case SectionOT:
		p.OTCompleted = true
		p.OTCompletedAt = &now
		p.OTReadingTimeSeconds = positive(t.OT)
		p.TotalReadingTimeSeconds = positive(t.Total)
		if p.NTCompleted || len(r.NTPassages) == 0 {
			p.IsCompleted = true
			p.CompletedAt = &now
		}
	default:
		p.NTCompleted = true
		p.NTCompletedAt = &now
		p.NTReadingTimeSeconds = positive(t.NT)
		p.OTCompleted = true
		p.OTCompletedAt = &now
		p.OTReadingTimeSeconds = positive(t.OT)
		p.IsCompleted = true
		p.CompletedAt = &now
		p.TotalReadingTimeSeconds = firstPositive(t.Total, t.Legacy)
	}
}

// Closed reports whether p's isCompleted flag agrees with its track flags.
func Closed(p *db.ReadingProgress, r *db.DailyReading) bool {
	nt := p.NTCompleted || len(r.NTPassages) == 0
	ot := p.OTCompleted || len(r.OTPassages) == 0
	return p.IsCompleted == (nt && ot)
}
