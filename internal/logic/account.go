package logic

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"berean-backend/internal/common"
	"berean-backend/internal/db"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minPasswordLength = 8
	// bcrypt only accepts this many bytes.
	maxPasswordBytes = 72
)

// SignupHandler creates an account with default preferences and an empty
// streak.
func (s *Server) SignupHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		badRequest(c, "Name is required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		badRequest(c, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		badRequest(c, "Password must be at least 8 characters long")
		return
	}
	if len(req.Password) > maxPasswordBytes {
		badRequest(c, "Password must be at most 72 bytes")
		return
	}

	conn := db.GetDB().WithContext(c.Request.Context())
	_, err := db.FindUserByEmail(conn, req.Email)
	if err == nil {
		fail(c, http.StatusConflict, "User already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, "signup lookup", err)
		return
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		internalError(c, "signup hash", err)
		return
	}
	user := db.User{
		Name:                 req.Name,
		Email:                req.Email,
		PasswordHash:         hash,
		Theme:                "light",
		FontSize:             "medium",
		NotificationsEnabled: true,
		Timezone:             "UTC",
		PreferredLanguage:    "eng",
		PreferredTranslation: common.DefaultTranslationID,
	}
	if err := db.CreateUserWithStreak(conn, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, http.StatusConflict, "User already exists")
			return
		}
		internalError(c, "signup create", err)
		return
	}
	log.WithField("user", user.ID).Info("user signed up")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

// LoginHandler checks credentials and issues the session cookie. The token
// is also returned for bearer use.
func (s *Server) LoginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}
	user, err := db.FindUserByEmail(db.GetDB().WithContext(c.Request.Context()), strings.TrimSpace(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		internalError(c, "login lookup", err)
		return
	}
	if err := s.auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := s.auth.GenerateToken(user.ID)
	if err != nil {
		internalError(c, "login token", err)
		return
	}
	s.setSessionCookie(c, token, int(s.auth.TTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in",
		"token":   token,
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}

func (s *Server) LogoutHandler(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.SessionCookieName, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
