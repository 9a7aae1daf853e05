package progress

import "berean-backend/internal/db"

// Eligible returns the milestone achievements reached by completed and the
// streak achievements reached by streak. Completion achievements are not
// evaluated here.
func Eligible(catalog []db.Achievement, completed int64, streak int) []db.Achievement {
	var out []db.Achievement
	for _, a := range catalog {
		if a.Category == db.CategoryMilestone && completed >= int64(a.RequiredCount) {
			out = append(out, a)
		}
	}
	for _, a := range catalog {
		if a.Category == db.CategoryStreak && streak >= a.RequiredCount {
			out = append(out, a)
		}
	}
	return out
}
