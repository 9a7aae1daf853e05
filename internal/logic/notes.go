package logic

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/db"
)

// CreateNoteHandler saves a private note against a daily reading.
func CreateNoteHandler(c *gin.Context) {
	var req struct {
		ReadingID string `json:"readingId"`
		Content   string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if req.ReadingID == "" || content == "" {
		badRequest(c, "Reading ID and content are required")
		return
	}
	conn := db.GetDB().WithContext(c.Request.Context())
	var reading db.DailyReading
	err := conn.Select("id").First(&reading, "id = ?", req.ReadingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Reading not found")
		return
	}
	if err != nil {
		internalError(c, "note reading", err)
		return
	}

	note := db.Note{UserID: auth.UserID(c), ReadingID: req.ReadingID, Content: content, IsPrivate: true}
	if err := conn.Create(&note).Error; err != nil {
		internalError(c, "create note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Note saved successfully",
		"note": gin.H{
			"id":        note.ID,
			"content":   note.Content,
			"createdAt": note.CreatedAt,
			"updatedAt": note.UpdatedAt,
		},
	})
}

// ListNotesHandler lists the caller's notes, newest first, optionally for
// one reading.
func ListNotesHandler(c *gin.Context) {
	q := db.GetDB().WithContext(c.Request.Context()).
		Preload("DailyReading").
		Where("user_id = ?", auth.UserID(c))
	if readingID := c.Query("readingId"); readingID != "" {
		q = q.Where("reading_id = ?", readingID)
	}
	var notes []db.Note
	if err := q.Order("created_at desc").Find(&notes).Error; err != nil {
		internalError(c, "list notes", err)
		return
	}
	out := make([]gin.H, 0, len(notes))
	for _, n := range notes {
		item := gin.H{
			"id":        n.ID,
			"content":   n.Content,
			"createdAt": n.CreatedAt,
			"updatedAt": n.UpdatedAt,
		}
		if n.DailyReading != nil {
			item["reading"] = gin.H{"day": n.DailyReading.Day, "passages": n.DailyReading.Passages()}
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}
