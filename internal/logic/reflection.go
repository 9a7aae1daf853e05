package logic

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/chains"
	langopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/memory"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/common"
	"berean-backend/internal/db"
	"berean-backend/internal/progress"
)

const maxReplyTokens = 300

// Reflector produces the assistant's next message for a reading, given the
// earlier exchanges (oldest first) and the reader's new message.
type Reflector interface {
	Reflect(ctx context.Context, passages []string, history []db.ReflectionRecord, message string) (string, error)
}

// NewReflector picks the Tencent Cloud SDK when cloud credentials are set,
// the OpenAI-compatible endpoint when a token is set, and nil otherwise.
func NewReflector(cfg *common.Config) Reflector {
	switch {
	case cfg.TencentSecretID != "" && cfg.TencentSecretKey != "":
		return &HunyuanReflector{
			SecretID:  cfg.TencentSecretID,
			SecretKey: cfg.TencentSecretKey,
			Endpoint:  common.DefaultHunyuanEndpoint,
			Model:     cfg.HunyuanModel,
		}
	case cfg.HunyuanToken != "":
		return &ChainReflector{Token: cfg.HunyuanToken, Model: cfg.HunyuanModel, BaseURL: cfg.HunyuanBaseURL}
	}
	return nil
}

// readingContext is the first message of every conversation.
func readingContext(passages []string) string {
	return common.ReflectionPrompt + "\n\nToday's passages: " + strings.Join(passages, "; ")
}

// openingMessage stands in for the reader when they ask for a question
// without writing anything.
func openingMessage(passages []string) string {
	return "I have just read " + strings.Join(passages, "; ") + ". Please ask me one reflection question."
}

// ChainReflector talks to an OpenAI-compatible endpoint through a
// langchaingo conversation chain with windowed memory.
type ChainReflector struct {
	Token   string
	Model   string
	BaseURL string
}

func (r *ChainReflector) Reflect(ctx context.Context, passages []string, history []db.ReflectionRecord, message string) (string, error) {
	chatMemory := memory.NewConversationWindowBuffer(common.ReflectionMemoryWindow)
	if err := chatMemory.ChatHistory.AddUserMessage(ctx, readingContext(passages)); err != nil {
		return "", err
	}
	for _, h := range history {
		var err error
		if h.IsUser {
			err = chatMemory.ChatHistory.AddUserMessage(ctx, h.Content)
		} else {
			err = chatMemory.ChatHistory.AddAIMessage(ctx, h.Content)
		}
		if err != nil {
			return "", err
		}
	}
	llm, err := langopenai.New(
		langopenai.WithToken(r.Token),
		langopenai.WithModel(r.Model),
		langopenai.WithBaseURL(r.BaseURL))
	if err != nil {
		return "", errors.Wrap(err, "create llm client")
	}
	chain := chains.NewConversation(llm, chatMemory)
	reply, err := chains.Run(ctx, chain, message, chains.WithMaxTokens(maxReplyTokens))
	if err != nil {
		return "", errors.Wrap(err, "run conversation")
	}
	return strings.TrimSpace(reply), nil
}

// ReflectionHandler asks the assistant for a reflection question on a
// reading, or for a reply to the reader's own reflection.
func (s *Server) ReflectionHandler(c *gin.Context) {
	if s.reflector == nil {
		fail(c, http.StatusServiceUnavailable, "Reflection assistant is not configured")
		return
	}
	var req struct {
		ReadingID string `json:"readingId"`
		Content   string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ReadingID == "" {
		badRequest(c, "Reading ID is required")
		return
	}
	content := strings.TrimSpace(req.Content)
	if utf8.RuneCountInString(content) > common.MaxReflectionRunes {
		badRequest(c, "content is too long")
		return
	}

	userID := auth.UserID(c)
	ctx := c.Request.Context()
	conn := db.GetDB().WithContext(ctx)

	var reading db.DailyReading
	err := conn.First(&reading, "id = ?", req.ReadingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Reading not found")
		return
	}
	if err != nil {
		internalError(c, "reflection reading", err)
		return
	}

	now := s.now()
	start := progress.CivilDate(now, s.progress.Location())
	var today int64
	if err := conn.Model(&db.ReflectionRecord{}).
		Where("user_id = ? AND is_user = ? AND created_at >= ? AND created_at < ?",
			userID, true, start.UTC(), start.AddDate(0, 0, 1).UTC()).
		Count(&today).Error; err != nil {
		internalError(c, "reflection count", err)
		return
	}
	if today >= int64(s.cfg.MaxReflectionsPerDay) {
		fail(c, http.StatusTooManyRequests, "Daily reflection limit reached")
		return
	}

	var history []db.ReflectionRecord
	if err := conn.Where("user_id = ? AND reading_id = ?", userID, reading.ID).
		Order("created_at desc").Limit(2 * common.ReflectionMemoryWindow).
		Find(&history).Error; err != nil {
		internalError(c, "reflection history", err)
		return
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	message := content
	if message == "" {
		message = openingMessage(reading.Passages())
	}
	reply, err := s.reflector.Reflect(ctx, reading.Passages(), history, message)
	if err != nil {
		log.WithError(err).WithField("user", userID).Warn("reflection failed")
		fail(c, http.StatusServiceUnavailable, "Reflection assistant is unavailable")
		return
	}

	asked := db.ReflectionRecord{UserID: userID, ReadingID: reading.ID, Content: message, IsUser: true}
	asked.CreatedAt = now.UTC()
	answer := db.ReflectionRecord{UserID: userID, ReadingID: reading.ID, Content: reply, IsUser: false}
	answer.CreatedAt = now.UTC().Add(time.Millisecond)
	if err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&asked).Error; err != nil {
			return err
		}
		return tx.Create(&answer).Error
	}); err != nil {
		internalError(c, "reflection save", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reply":     reply,
		"prompt":    asked,
		"answer":    answer,
		"remaining": int64(s.cfg.MaxReflectionsPerDay) - today - 1,
	})
}

// ReflectionHistoryHandler lists the caller's exchanges for a reading,
// oldest first.
func ReflectionHistoryHandler(c *gin.Context) {
	readingID := c.Query("readingId")
	if readingID == "" {
		badRequest(c, "readingId is required")
		return
	}
	var records []db.ReflectionRecord
	if err := db.GetDB().WithContext(c.Request.Context()).
		Where("user_id = ? AND reading_id = ?", auth.UserID(c), readingID).
		Order("created_at asc").Find(&records).Error; err != nil {
		internalError(c, "reflection history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
