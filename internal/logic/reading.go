package logic

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/common"
	"berean-backend/internal/db"
	"berean-backend/internal/progress"
)

// planProgress is the per-user summary shared by the plan overview and the
// dashboard.
type planProgress struct {
	CompletedDays      int `json:"completedDays"`
	TotalDays          int `json:"totalDays"`
	ProgressPercentage int `json:"progressPercentage"`
	CurrentDay         int `json:"currentDay"`
	NextDay            int `json:"nextDay"`
}

// loadUserProgress returns the user's progress rows for plan ordered by day.
func loadUserProgress(conn *gorm.DB, userID, planID string) ([]db.ReadingProgress, error) {
	var rows []db.ReadingProgress
	if err := conn.Preload("DailyReading").
		Where("user_id = ? AND plan_id = ?", userID, planID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return readingDay(rows[i]) < readingDay(rows[j]) })
	return rows, nil
}

func readingDay(p db.ReadingProgress) int {
	if p.DailyReading == nil {
		return 0
	}
	return p.DailyReading.Day
}

// summarize counts completed days. The current day is the first visited
// day not yet completed, or 1; the next day wraps after the last.
func summarize(plan *db.ReadingPlan, rows []db.ReadingProgress) planProgress {
	out := planProgress{TotalDays: plan.TotalDays, CurrentDay: 1}
	found := false
	for _, p := range rows {
		if p.IsCompleted {
			out.CompletedDays++
		} else if !found && p.DailyReading != nil {
			out.CurrentDay = p.DailyReading.Day
			found = true
		}
	}
	if plan.TotalDays > 0 {
		out.ProgressPercentage = int(math.Round(float64(out.CompletedDays) / float64(plan.TotalDays) * 100))
	}
	out.NextDay = adjacentDay(out.CurrentDay, plan.TotalDays, 1)
	return out
}

// adjacentDay steps from day by delta, wrapping within 1..total.
func adjacentDay(day, total, delta int) int {
	if total <= 0 {
		return 1
	}
	return ((day-1+delta)%total+total)%total + 1
}

func planJSON(plan *db.ReadingPlan) gin.H {
	return gin.H{
		"id":           plan.ID,
		"name":         plan.Name,
		"description":  plan.Description,
		"totalDays":    plan.TotalDays,
		"isActive":     plan.IsActive,
		"phase1EndDay": plan.Phase1EndDay,
		"phase2EndDay": plan.Phase2EndDay,
		"phase3EndDay": plan.Phase3EndDay,
	}
}

func readingJSON(r *db.DailyReading) gin.H {
	return gin.H{
		"id":                    r.ID,
		"day":                   r.Day,
		"phase":                 r.Phase,
		"passages":              r.Passages(),
		"ntPassages":            r.NTPassages,
		"ntEstimatedMinutes":    r.NTEstimatedMinutes,
		"ntRepetitionType":      r.NTRepetitionType,
		"ntRepetitionCount":     r.NTRepetitionCount,
		"otPassages":            r.OTPassages,
		"otEstimatedMinutes":    r.OTEstimatedMinutes,
		"otCycle":               r.OTCycle,
		"totalEstimatedMinutes": r.TotalEstimatedMinutes,
	}
}

// ReadingDayHandler opens one day of the active plan, creating the caller's
// progress row on first visit.
func (s *Server) ReadingDayHandler(c *gin.Context) {
	userID := auth.UserID(c)
	conn := db.GetDB().WithContext(c.Request.Context())

	plan, err := db.ActivePlan(conn)
	if err != nil {
		failFor(c, "reading day plan", err)
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > plan.TotalDays {
		badRequest(c, "day must be between 1 and "+strconv.Itoa(plan.TotalDays))
		return
	}
	reading, err := progress.GetDailyReading(conn, plan.ID, day)
	if err != nil {
		failFor(c, "reading day", err)
		return
	}
	p, err := progress.GetOrCreateProgress(conn, userID, reading)
	if err != nil {
		internalError(c, "reading day progress", err)
		return
	}
	var notes []db.Note
	if err := conn.Where("user_id = ? AND reading_id = ?", userID, reading.ID).
		Order("created_at desc").Find(&notes).Error; err != nil {
		internalError(c, "reading day notes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":      planJSON(plan),
		"reading":   readingJSON(reading),
		"phaseName": db.PhaseNames[db.PhaseForDay(plan, day)],
		"progress":  p,
		"notes":     notes,
		"navigation": gin.H{
			"previousDay": adjacentDay(day, plan.TotalDays, -1),
			"nextDay":     adjacentDay(day, plan.TotalDays, 1),
		},
	})
}

// ReadingPlanHandler returns a plan (the active one unless planId is given)
// with all its readings and the caller's progress through it.
func ReadingPlanHandler(c *gin.Context) {
	userID := auth.UserID(c)
	conn := db.GetDB().WithContext(c.Request.Context())

	var plan *db.ReadingPlan
	var err error
	if id := c.Query("planId"); id != "" {
		plan, err = db.GetPlan(conn, id)
	} else {
		plan, err = db.ActivePlan(conn)
	}
	if err != nil {
		failFor(c, "reading plan", err)
		return
	}
	var readings []db.DailyReading
	if err := conn.Where("plan_id = ?", plan.ID).Order("day asc").Find(&readings).Error; err != nil {
		internalError(c, "reading plan readings", err)
		return
	}
	rows, err := loadUserProgress(conn, userID, plan.ID)
	if err != nil {
		internalError(c, "reading plan progress", err)
		return
	}

	userProgress := make([]gin.H, 0, len(rows))
	for _, p := range rows {
		userProgress = append(userProgress, gin.H{
			"id":                 p.ID,
			"readingId":          p.ReadingID,
			"day":                readingDay(p),
			"isCompleted":        p.IsCompleted,
			"ntCompleted":        p.NTCompleted,
			"otCompleted":        p.OTCompleted,
			"completedAt":        p.CompletedAt,
			"readingTimeSeconds": p.TotalReadingTimeSeconds,
			"otCycle":            p.OTCycle,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":          planJSON(plan),
		"dailyReadings": readings,
		"progress":      summarize(plan, rows),
		"userProgress":  userProgress,
	})
}

// CompleteHandler records a completion event for the caller's progress row.
func (s *Server) CompleteHandler(c *gin.Context) {
	var req struct {
		ProgressID              string `json:"progressId"`
		Section                 string `json:"section"`
		NTReadingTimeSeconds    *int   `json:"ntReadingTimeSeconds"`
		OTReadingTimeSeconds    *int   `json:"otReadingTimeSeconds"`
		TotalReadingTimeSeconds *int   `json:"totalReadingTimeSeconds"`
		ReadingTimeSeconds      *int   `json:"readingTimeSeconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ProgressID) == "" {
		badRequest(c, "Progress ID is required")
		return
	}
	section, ok := progress.ParseSection(strings.ToLower(req.Section))
	if !ok {
		badRequest(c, "section must be nt, ot or omitted")
		return
	}

	res, err := s.progress.Complete(c.Request.Context(), auth.UserID(c), progress.CompleteRequest{
		ProgressID: req.ProgressID,
		Section:    section,
		Timings: progress.Timings{
			NT:     req.NTReadingTimeSeconds,
			OT:     req.OTReadingTimeSeconds,
			Total:  req.TotalReadingTimeSeconds,
			Legacy: req.ReadingTimeSeconds,
		},
	})
	if err != nil {
		failFor(c, "complete reading", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Reading marked as complete",
		"progress":        res.Progress,
		"streak":          res.Streak,
		"newAchievements": res.NewAchievements,
		"awarded":         res.Awarded,
	})
}

// CalendarHandler maps each civil date to the number of readings completed
// on it.
func (s *Server) CalendarHandler(c *gin.Context) {
	userID := auth.UserID(c)
	conn := db.GetDB().WithContext(c.Request.Context())
	loc := s.progress.Location()

	var rows []db.ReadingProgress
	if err := conn.Where("user_id = ? AND is_completed = ?", userID, true).
		Order("completed_at asc").Find(&rows).Error; err != nil {
		internalError(c, "calendar progress", err)
		return
	}
	days := map[string]int{}
	for _, p := range rows {
		if p.CompletedAt == nil {
			continue
		}
		days[p.CompletedAt.In(loc).Format(time.DateOnly)]++
	}

	var streak db.ReadingStreak
	if err := conn.Where("user_id = ?", userID).Limit(1).Find(&streak).Error; err != nil {
		internalError(c, "calendar streak", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":            days,
		"totalCompleted":  len(rows),
		"activeDays":      len(days),
		"currentStreak":   streak.CurrentStreak,
		"longestStreak":   streak.LongestStreak,
		"lastReadingDate": streak.LastReadingDate,
	})
}

// DashboardHandler summarises the caller's standing in the active plan.
func (s *Server) DashboardHandler(c *gin.Context) {
	userID := auth.UserID(c)
	conn := db.GetDB().WithContext(c.Request.Context())

	plan, err := db.ActivePlan(conn)
	if err != nil {
		failFor(c, "dashboard plan", err)
		return
	}
	rows, err := loadUserProgress(conn, userID, plan.ID)
	if err != nil {
		internalError(c, "dashboard progress", err)
		return
	}
	summary := summarize(plan, rows)

	var current gin.H
	if r, err := progress.GetDailyReading(conn, plan.ID, summary.CurrentDay); err == nil {
		current = readingJSON(r)
	}

	var streak db.ReadingStreak
	if err := conn.Where("user_id = ?", userID).Limit(1).Find(&streak).Error; err != nil {
		internalError(c, "dashboard streak", err)
		return
	}
	var earned []db.UserAchievement
	if err := conn.Preload("Achievement").Where("user_id = ?", userID).
		Order("earned_at desc").Find(&earned).Error; err != nil {
		internalError(c, "dashboard achievements", err)
		return
	}
	achievements := make([]gin.H, 0, len(earned))
	for _, ua := range earned {
		if ua.Achievement == nil {
			continue
		}
		achievements = append(achievements, gin.H{
			"id":          ua.ID,
			"name":        ua.Achievement.Name,
			"description": ua.Achievement.Description,
			"icon":        ua.Achievement.Icon,
			"category":    ua.Achievement.Category,
			"earnedAt":    ua.EarnedAt,
		})
	}

	var recentRows []db.ReadingProgress
	if err := conn.Preload("DailyReading").
		Where("user_id = ? AND plan_id = ? AND is_completed = ?", userID, plan.ID, true).
		Order("completed_at desc").Limit(common.MaxRecentReadings).
		Find(&recentRows).Error; err != nil {
		internalError(c, "dashboard recent", err)
		return
	}
	recent := make([]gin.H, 0, len(recentRows))
	for _, p := range recentRows {
		item := gin.H{
			"id":                 p.ID,
			"day":                readingDay(p),
			"completedAt":        p.CompletedAt,
			"readingTimeSeconds": p.TotalReadingTimeSeconds,
		}
		if p.DailyReading != nil {
			item["passages"] = p.DailyReading.Passages()
		}
		recent = append(recent, item)
	}

	phase := db.PhaseForDay(plan, summary.CurrentDay)
	c.JSON(http.StatusOK, gin.H{
		"plan": planJSON(plan),
		"progress": gin.H{
			"completedDays":      summary.CompletedDays,
			"totalDays":          summary.TotalDays,
			"progressPercentage": summary.ProgressPercentage,
			"currentDay":         summary.CurrentDay,
			"currentReading":     current,
			"currentPhase":       phase,
			"currentPhaseName":   db.PhaseNames[phase],
		},
		"streak": gin.H{
			"currentStreak":   streak.CurrentStreak,
			"longestStreak":   streak.LongestStreak,
			"lastReadingDate": streak.LastReadingDate,
		},
		"achievements":   achievements,
		"recentReadings": recent,
	})
}

// StatsHandler is the public community summary.
func StatsHandler(c *gin.Context) {
	conn := db.GetDB().WithContext(c.Request.Context())
	var userCount, completed, notes int64
	if err := conn.Model(&db.User{}).Count(&userCount).Error; err != nil {
		internalError(c, "stats users", err)
		return
	}
	if err := conn.Model(&db.ReadingProgress{}).Where("is_completed = ?", true).Count(&completed).Error; err != nil {
		internalError(c, "stats readings", err)
		return
	}
	if err := conn.Model(&db.Note{}).Count(&notes).Error; err != nil {
		internalError(c, "stats notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalUsers":             userCount,
		"totalCompletedReadings": completed,
		"totalNotes":             notes,
	})
}
