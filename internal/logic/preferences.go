package logic

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"berean-backend/internal/auth"
	"berean-backend/internal/common"
	"berean-backend/internal/db"
)

// PushTranslationHistory puts id at the front of history, drops any older
// occurrence and keeps at most common.MaxTranslationHistory entries.
func PushTranslationHistory(history []string, id string) []string {
	out := make([]string, 0, common.MaxTranslationHistory)
	out = append(out, id)
	for _, h := range history {
		if len(out) == common.MaxTranslationHistory {
			break
		}
		if h != id {
			out = append(out, h)
		}
	}
	return out
}

func preferencesJSON(u *db.User) gin.H {
	history := u.TranslationHistory
	if history == nil {
		history = datatypes.JSONSlice[string]{}
	}
	favorites := u.FavoriteTranslations
	if favorites == nil {
		favorites = datatypes.JSONSlice[string]{}
	}
	return gin.H{
		"preferredLanguage":    u.PreferredLanguage,
		"preferredTranslation": u.PreferredTranslation,
		"secondaryTranslation": u.SecondaryTranslation,
		"translationHistory":   history,
		"favoriteTranslations": favorites,
	}
}

// targetUser resolves an optional userId parameter. Only the caller's own
// id is allowed.
func targetUser(c *gin.Context, requested string) (string, bool) {
	self := auth.UserID(c)
	if requested != "" && requested != self {
		fail(c, http.StatusForbidden, "Forbidden")
		return "", false
	}
	return self, true
}

func TranslationPreferencesHandler(c *gin.Context) {
	userID, ok := targetUser(c, c.Query("userId"))
	if !ok {
		return
	}
	user, err := db.GetUser(db.GetDB().WithContext(c.Request.Context()), userID)
	if err != nil {
		failFor(c, "get translation preferences", err)
		return
	}
	body := preferencesJSON(user)
	body["message"] = "Translation preferences fetched successfully"
	c.JSON(http.StatusOK, body)
}

// UpdateTranslationPreferencesHandler updates the non-empty fields given.
// secondaryTranslation may be cleared with an empty string.
func UpdateTranslationPreferencesHandler(c *gin.Context) {
	var req struct {
		PreferredLanguage    string    `json:"preferredLanguage"`
		PreferredTranslation string    `json:"preferredTranslation"`
		SecondaryTranslation *string   `json:"secondaryTranslation"`
		FavoriteTranslations *[]string `json:"favoriteTranslations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	cols := map[string]any{}
	if v := strings.TrimSpace(req.PreferredLanguage); v != "" {
		cols["preferred_language"] = v
	}
	if v := strings.TrimSpace(req.PreferredTranslation); v != "" {
		cols["preferred_translation"] = v
	}
	if req.SecondaryTranslation != nil {
		if *req.SecondaryTranslation == "" {
			cols["secondary_translation"] = nil
		} else {
			cols["secondary_translation"] = *req.SecondaryTranslation
		}
	}
	if req.FavoriteTranslations != nil {
		cols["favorite_translations"] = datatypes.JSONSlice[string](*req.FavoriteTranslations)
	}

	conn := db.GetDB().WithContext(c.Request.Context())
	user, err := db.GetUser(conn, auth.UserID(c))
	if err != nil {
		failFor(c, "update translation preferences", err)
		return
	}
	if len(cols) > 0 {
		if err := conn.Model(user).Updates(cols).Error; err != nil {
			fail(c, http.StatusInternalServerError, "Failed to update translation preferences", err)
			return
		}
		if user, err = db.GetUser(conn, user.ID); err != nil {
			internalError(c, "reload translation preferences", err)
			return
		}
	}
	body := preferencesJSON(user)
	body["message"] = "Translation preferences updated successfully"
	c.JSON(http.StatusOK, body)
}

// UpdateTranslationHistoryHandler records a translation switch and makes it
// the preferred translation.
func UpdateTranslationHistoryHandler(c *gin.Context) {
	var req struct {
		UserID        string `json:"userId"`
		TranslationID string `json:"translationId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	userID, ok := targetUser(c, req.UserID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.TranslationID) == "" {
		badRequest(c, "Translation ID is required")
		return
	}

	conn := db.GetDB().WithContext(c.Request.Context())
	user, err := db.GetUser(conn, userID)
	if err != nil {
		failFor(c, "update translation history", err)
		return
	}
	history := datatypes.JSONSlice[string](PushTranslationHistory(user.TranslationHistory, req.TranslationID))
	if err := conn.Model(user).Updates(map[string]any{
		"translation_history":   history,
		"preferred_translation": req.TranslationID,
	}).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update translation history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"translationHistory":   history,
		"preferredTranslation": req.TranslationID,
		"message":              "Translation history updated successfully",
	})
}
