package logic

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/db"
)

type exportProgress struct {
	Day                int        `json:"day"`
	Passages           []string   `json:"passages"`
	EstimatedMinutes   int        `json:"estimatedMinutes"`
	IsCompleted        bool       `json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt"`
	ReadingTimeSeconds *int       `json:"readingTimeSeconds"`
	OTCycle            int        `json:"otCycle"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type exportNote struct {
	Day       int       `json:"day"`
	Passages  []string  `json:"passages"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type exportAchievement struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	EarnedAt    time.Time `json:"earnedAt"`
}

type exportStatistics struct {
	TotalDaysCompleted int `json:"totalDaysCompleted"`
	TotalNotes         int `json:"totalNotes"`
	TotalAchievements  int `json:"totalAchievements"`
	AverageReadingTime int `json:"averageReadingTime"`
}

// UserExport is the full data dump of one account.
type UserExport struct {
	ExportDate      time.Time           `json:"exportDate"`
	User            gin.H               `json:"user"`
	ReadingProgress []exportProgress    `json:"readingProgress"`
	Notes           []exportNote        `json:"notes"`
	Achievements    []exportAchievement `json:"achievements"`
	Streak          gin.H               `json:"streak"`
	Statistics      exportStatistics    `json:"statistics"`
}

// BuildUserExport collects everything stored for userID.
func BuildUserExport(conn *gorm.DB, userID string, now time.Time) (*UserExport, error) {
	user, err := db.GetUser(conn, userID)
	if err != nil {
		return nil, err
	}
	var progress []db.ReadingProgress
	if err := conn.Preload("DailyReading").Where("user_id = ?", userID).
		Order("created_at asc").Find(&progress).Error; err != nil {
		return nil, errors.Wrap(err, "export progress")
	}
	var notes []db.Note
	if err := conn.Preload("DailyReading").Where("user_id = ?", userID).
		Order("created_at asc").Find(&notes).Error; err != nil {
		return nil, errors.Wrap(err, "export notes")
	}
	var earned []db.UserAchievement
	if err := conn.Preload("Achievement").Where("user_id = ?", userID).
		Order("earned_at asc").Find(&earned).Error; err != nil {
		return nil, errors.Wrap(err, "export achievements")
	}
	var streak db.ReadingStreak
	if err := conn.Where("user_id = ?", userID).Limit(1).Find(&streak).Error; err != nil {
		return nil, errors.Wrap(err, "export streak")
	}

	out := &UserExport{
		ExportDate: now.UTC(),
		User: gin.H{
			"name":     user.Name,
			"email":    user.Email,
			"joinDate": user.CreatedAt,
			"preferences": gin.H{
				"timezone":             user.Timezone,
				"preferredReadingTime": user.PreferredReadingTime,
				"notificationsEnabled": user.NotificationsEnabled,
				"theme":                user.Theme,
				"fontSize":             user.FontSize,
			},
		},
		ReadingProgress: make([]exportProgress, 0, len(progress)),
		Notes:           make([]exportNote, 0, len(notes)),
		Achievements:    make([]exportAchievement, 0, len(earned)),
		Streak: gin.H{
			"currentStreak":   streak.CurrentStreak,
			"longestStreak":   streak.LongestStreak,
			"lastReadingDate": streak.LastReadingDate,
		},
	}

	timed, timeSum := 0, 0
	for _, p := range progress {
		row := exportProgress{
			IsCompleted:        p.IsCompleted,
			CompletedAt:        p.CompletedAt,
			ReadingTimeSeconds: p.TotalReadingTimeSeconds,
			OTCycle:            p.OTCycle,
			CreatedAt:          p.CreatedAt,
		}
		if r := p.DailyReading; r != nil {
			row.Day = r.Day
			row.Passages = r.Passages()
			row.EstimatedMinutes = r.TotalEstimatedMinutes
		}
		out.ReadingProgress = append(out.ReadingProgress, row)
		if p.IsCompleted {
			out.Statistics.TotalDaysCompleted++
		}
		if t := p.TotalReadingTimeSeconds; t != nil && *t > 0 {
			timed++
			timeSum += *t
		}
	}
	if timed > 0 {
		out.Statistics.AverageReadingTime = int(math.Round(float64(timeSum) / float64(timed)))
	}
	for _, n := range notes {
		row := exportNote{Content: n.Content, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
		if r := n.DailyReading; r != nil {
			row.Day = r.Day
			row.Passages = r.Passages()
		}
		out.Notes = append(out.Notes, row)
	}
	for _, ua := range earned {
		if ua.Achievement == nil {
			continue
		}
		out.Achievements = append(out.Achievements, exportAchievement{
			Name:        ua.Achievement.Name,
			Description: ua.Achievement.Description,
			Category:    ua.Achievement.Category,
			EarnedAt:    ua.EarnedAt,
		})
	}
	out.Statistics.TotalNotes = len(out.Notes)
	out.Statistics.TotalAchievements = len(out.Achievements)
	return out, nil
}

// Workbook renders the export as a spreadsheet with one sheet per section.
func (e *UserExport) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Profile"); err != nil {
		f.Close()
		return nil, err
	}
	prefs, _ := e.User["preferences"].(gin.H)
	profile := [][]any{
		{"Name", e.User["name"]},
		{"Email", e.User["email"]},
		{"Joined", e.User["joinDate"]},
		{"Timezone", prefs["timezone"]},
		{"Current streak", e.Streak["currentStreak"]},
		{"Longest streak", e.Streak["longestStreak"]},
		{"Days completed", e.Statistics.TotalDaysCompleted},
		{"Notes", e.Statistics.TotalNotes},
		{"Achievements", e.Statistics.TotalAchievements},
		{"Average reading time (s)", e.Statistics.AverageReadingTime},
		{"Exported", e.ExportDate.Format(time.RFC3339)},
	}

	progress := [][]any{{"Day", "Passages", "Estimated minutes", "Completed", "Completed at", "Reading time (s)", "OT cycle"}}
	for _, p := range e.ReadingProgress {
		progress = append(progress, []any{
			p.Day, strings.Join(p.Passages, "; "), p.EstimatedMinutes, p.IsCompleted,
			formatTime(p.CompletedAt), intOrEmpty(p.ReadingTimeSeconds), p.OTCycle,
		})
	}
	notes := [][]any{{"Day", "Passages", "Note", "Created"}}
	for _, n := range e.Notes {
		notes = append(notes, []any{n.Day, strings.Join(n.Passages, "; "), n.Content, n.CreatedAt.Format(time.RFC3339)})
	}
	achievements := [][]any{{"Name", "Description", "Category", "Earned"}}
	for _, a := range e.Achievements {
		achievements = append(achievements, []any{a.Name, a.Description, a.Category, a.EarnedAt.Format(time.RFC3339)})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"Profile", profile},
		{"Progress", progress},
		{"Notes", notes},
		{"Achievements", achievements},
	}
	for i, sh := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sh.name); err != nil {
				f.Close()
				return nil, err
			}
		}
		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				f.Close()
				return nil, errors.Wrapf(err, "write %s row %d", sh.name, r+1)
			}
		}
	}
	return f, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func intOrEmpty(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

// ExportHandler downloads the caller's data as JSON, or as a workbook with
// format=xlsx.
func (s *Server) ExportHandler(c *gin.Context) {
	now := s.now()
	data, err := BuildUserExport(db.GetDB().WithContext(c.Request.Context()), auth.UserID(c), now)
	if err != nil {
		failFor(c, "export", err)
		return
	}
	base := fmt.Sprintf("berean-data-%s", now.Format(time.DateOnly))

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.Header("Content-Disposition", `attachment; filename="`+base+`.json"`)
		c.IndentedJSON(http.StatusOK, data)
	case "xlsx":
		f, err := data.Workbook()
		if err != nil {
			internalError(c, "export workbook", err)
			return
		}
		defer f.Close()
		buf, err := f.WriteToBuffer()
		if err != nil {
			internalError(c, "export workbook", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+base+`.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	default:
		badRequest(c, "format must be json or xlsx")
	}
}
