package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base gives every table a string uuid primary key and timestamps.
type Base struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	Base
	Name         string `gorm:"size:128" json:"name"`
	Email        string `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:72" json:"-"`

	Theme                string  `gorm:"size:16;default:light" json:"theme"`
	FontSize             string  `gorm:"size:16;default:medium" json:"fontSize"`
	NotificationsEnabled bool    `gorm:"default:true" json:"notificationsEnabled"`
	Timezone             string  `gorm:"size:64;default:UTC" json:"timezone"`
	PreferredReadingTime *int    `json:"preferredReadingTime"` // minutes per day
	PreferredTimeOfDay   *string `gorm:"size:16" json:"preferredTimeOfDay"`
	PreferredStartTime   *string `gorm:"size:5" json:"preferredStartTime"` // HH:MM

	PreferredLanguage    string                      `gorm:"size:16;default:eng" json:"preferredLanguage"`
	PreferredTranslation string                      `gorm:"size:64;default:ESV" json:"preferredTranslation"`
	SecondaryTranslation *string                     `gorm:"size:64" json:"secondaryTranslation"`
	TranslationHistory   datatypes.JSONSlice[string] `json:"translationHistory"`
	FavoriteTranslations datatypes.JSONSlice[string] `json:"favoriteTranslations"`
}

type ReadingPlan struct {
	Base
	Name         string `gorm:"size:128;uniqueIndex" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	TotalDays    int    `json:"totalDays"`
	Phase1EndDay *int   `json:"phase1EndDay"`
	Phase2EndDay *int   `json:"phase2EndDay"`
	Phase3EndDay *int   `json:"phase3EndDay"`
	IsActive     bool   `json:"isActive"`
	// ActiveSlot is 1 on the active plan and NULL elsewhere; the unique
	// index allows at most one active plan.
	ActiveSlot *int `gorm:"uniqueIndex" json:"-"`

	DailyReadings []DailyReading `gorm:"foreignKey:PlanID" json:"dailyReadings,omitempty"`
}

// Repetition types for the New Testament track.
const (
	RepetitionEntireBook = "entire_book"
	RepetitionChapters   = "chapters"
	RepetitionReview     = "review"
)

type DailyReading struct {
	Base
	PlanID string `gorm:"type:varchar(36);uniqueIndex:idx_plan_day;not null" json:"planId"`
	Day    int    `gorm:"uniqueIndex:idx_plan_day;not null" json:"day"`
	Phase  int    `json:"phase"`

	NTPassages         datatypes.JSONSlice[string] `gorm:"column:nt_passages" json:"ntPassages"`
	NTEstimatedMinutes int                         `gorm:"column:nt_estimated_minutes" json:"ntEstimatedMinutes"`
	NTRepetitionType   string                      `gorm:"column:nt_repetition_type;size:16" json:"ntRepetitionType"`
	NTRepetitionCount  int                         `gorm:"column:nt_repetition_count" json:"ntRepetitionCount"`

	OTPassages         datatypes.JSONSlice[string] `gorm:"column:ot_passages" json:"otPassages"`
	OTEstimatedMinutes int                         `gorm:"column:ot_estimated_minutes" json:"otEstimatedMinutes"`
	OTCycle            int                         `gorm:"column:ot_cycle" json:"otCycle"`

	TotalEstimatedMinutes int `json:"totalEstimatedMinutes"`
}

// Passages returns the NT passages followed by the OT passages.
func (r DailyReading) Passages() []string {
	out := make([]string, 0, len(r.NTPassages)+len(r.OTPassages))
	out = append(out, r.NTPassages...)
	return append(out, r.OTPassages...)
}

type ReadingProgress struct {
	Base
	UserID    string `gorm:"type:varchar(36);uniqueIndex:idx_user_plan_reading;not null" json:"userId"`
	PlanID    string `gorm:"type:varchar(36);uniqueIndex:idx_user_plan_reading;not null" json:"planId"`
	ReadingID string `gorm:"type:varchar(36);uniqueIndex:idx_user_plan_reading;not null" json:"readingId"`

	CurrentPhase int `json:"currentPhase"`
	OTCycle      int `gorm:"column:ot_cycle" json:"otCycle"`

	NTCompleted          bool       `gorm:"column:nt_completed" json:"ntCompleted"`
	NTCompletedAt        *time.Time `gorm:"column:nt_completed_at" json:"ntCompletedAt"`
	NTReadingTimeSeconds *int       `gorm:"column:nt_reading_time_seconds" json:"ntReadingTimeSeconds"`

	OTCompleted          bool       `gorm:"column:ot_completed" json:"otCompleted"`
	OTCompletedAt        *time.Time `gorm:"column:ot_completed_at" json:"otCompletedAt"`
	OTReadingTimeSeconds *int       `gorm:"column:ot_reading_time_seconds" json:"otReadingTimeSeconds"`

	IsCompleted             bool       `gorm:"index" json:"isCompleted"`
	CompletedAt             *time.Time `json:"completedAt"`
	TotalReadingTimeSeconds *int       `json:"totalReadingTimeSeconds"`

	DailyReading *DailyReading `gorm:"foreignKey:ReadingID" json:"dailyReading,omitempty"`
}

type ReadingStreak struct {
	Base
	UserID          string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`
	CurrentStreak   int        `json:"currentStreak"`
	LongestStreak   int        `json:"longestStreak"`
	LastReadingDate *time.Time `json:"lastReadingDate"`
}

type Note struct {
	Base
	UserID    string `gorm:"type:varchar(36);index;not null" json:"userId"`
	ReadingID string `gorm:"type:varchar(36);index;not null" json:"readingId"`
	Content   string `gorm:"type:text" json:"content"`
	IsPrivate bool   `gorm:"default:true" json:"isPrivate"`

	DailyReading *DailyReading `gorm:"foreignKey:ReadingID" json:"dailyReading,omitempty"`
}

// Achievement categories.
const (
	CategoryMilestone  = "milestone"
	CategoryStreak     = "streak"
	CategoryCompletion = "completion"
)

type Achievement struct {
	Base
	Name          string `gorm:"size:64;uniqueIndex" json:"name"`
	Description   string `gorm:"size:255" json:"description"`
	Icon          string `gorm:"size:32" json:"icon"`
	Category      string `gorm:"size:16;index" json:"category"`
	RequiredCount int    `json:"requiredCount"`
}

type UserAchievement struct {
	Base
	UserID        string    `gorm:"type:varchar(36);uniqueIndex:idx_user_achievement;not null" json:"userId"`
	AchievementID string    `gorm:"type:varchar(36);uniqueIndex:idx_user_achievement;not null" json:"achievementId"`
	EarnedAt      time.Time `json:"earnedAt"`

	Achievement *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

// ReflectionRecord is one message of the reflection assistant conversation.
// IsUser distinguishes the reader's messages from generated replies.
type ReflectionRecord struct {
	Base
	UserID    string `gorm:"type:varchar(36);index;not null" json:"userId"`
	ReadingID string `gorm:"type:varchar(36);index;not null" json:"readingId"`
	Content   string `gorm:"type:text" json:"content"`
	IsUser    bool   `json:"isUser"`
}

// SchemaMigration records an applied schema version.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"size:128" json:"name"`
	AppliedAt time.Time `json:"appliedAt"`
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&User{}, &ReadingPlan{}, &DailyReading{}, &ReadingProgress{}, &ReadingStreak{},
		&Note{}, &Achievement{}, &UserAchievement{}, &ReflectionRecord{},
	}
}
