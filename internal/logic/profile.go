package logic

import (
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"berean-backend/internal/auth"
	"berean-backend/internal/db"
)

func profileJSON(u *db.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"createdAt": u.CreatedAt,
		"preferences": gin.H{
			"theme":                u.Theme,
			"fontSize":             u.FontSize,
			"notificationsEnabled": u.NotificationsEnabled,
			"timezone":             u.Timezone,
			"preferredReadingTime": u.PreferredReadingTime,
			"preferredTimeOfDay":   u.PreferredTimeOfDay,
			"preferredStartTime":   u.PreferredStartTime,
			"preferredTranslation": u.PreferredTranslation,
		},
	}
}

func ProfileHandler(c *gin.Context) {
	user, err := db.GetUser(db.GetDB().WithContext(c.Request.Context()), auth.UserID(c))
	if err != nil {
		failFor(c, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileJSON(user)})
}

type profileUpdate struct {
	Name                 *string `json:"name" binding:"omitempty,max=128"`
	Theme                *string `json:"theme" binding:"omitempty,oneof=light dark sepia"`
	FontSize             *string `json:"fontSize" binding:"omitempty,oneof=small medium large extra-large"`
	NotificationsEnabled *bool   `json:"notificationsEnabled"`
	PreferredReadingTime *int    `json:"preferredReadingTime" binding:"omitempty,min=1,max=240"`
	PreferredTimeOfDay   *string `json:"preferredTimeOfDay" binding:"omitempty,oneof=morning afternoon evening night"`
	PreferredStartTime   *string `json:"preferredStartTime"`
	Timezone             *string `json:"timezone" binding:"omitempty,timezone"`
}

// fieldName turns a validator field name into its JSON key.
func fieldName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// bindError names the first offending field when err came from validation.
func bindError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return "Invalid value for " + fieldName(ve[0].Field())
	}
	return "Invalid request body"
}

// columns validates the fields that need more than tag rules and returns
// the columns to update.
func (u profileUpdate) columns() (map[string]any, string) {
	cols := map[string]any{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, "Invalid value for name"
		}
		cols["name"] = name
	}
	if u.PreferredStartTime != nil {
		if _, err := time.Parse("15:04", *u.PreferredStartTime); err != nil {
			return nil, "Invalid value for preferredStartTime"
		}
		cols["preferred_start_time"] = *u.PreferredStartTime
	}
	if u.Theme != nil {
		cols["theme"] = *u.Theme
	}
	if u.FontSize != nil {
		cols["font_size"] = *u.FontSize
	}
	if u.NotificationsEnabled != nil {
		cols["notifications_enabled"] = *u.NotificationsEnabled
	}
	if u.PreferredReadingTime != nil {
		cols["preferred_reading_time"] = *u.PreferredReadingTime
	}
	if u.PreferredTimeOfDay != nil {
		cols["preferred_time_of_day"] = *u.PreferredTimeOfDay
	}
	if u.Timezone != nil {
		cols["timezone"] = *u.Timezone
	}
	return cols, ""
}

// UpdateProfileHandler applies any subset of the profile fields.
func UpdateProfileHandler(c *gin.Context) {
	var req profileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	cols, msg := req.columns()
	if msg != "" {
		badRequest(c, msg)
		return
	}

	conn := db.GetDB().WithContext(c.Request.Context())
	user, err := db.GetUser(conn, auth.UserID(c))
	if err != nil {
		failFor(c, "update profile", err)
		return
	}
	if len(cols) > 0 {
		if err := conn.Model(user).Updates(cols).Error; err != nil {
			internalError(c, "update profile", err)
			return
		}
		if user, err = db.GetUser(conn, user.ID); err != nil {
			internalError(c, "reload profile", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    profileJSON(user),
	})
}
