package logic

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/db"
	"berean-backend/internal/progress"
)

// fail answers with the uniform error envelope {message, error?}.
func fail(c *gin.Context, status int, message string, err ...error) {
	body := gin.H{"message": message}
	if len(err) > 0 && err[0] != nil {
		body["error"] = err[0].Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// internalError logs err with the failing operation and hides it from the
// client.
func internalError(c *gin.Context, op string, err error) {
	log.WithError(err).WithFields(log.Fields{
		"op":   op,
		"user": auth.UserID(c),
	}).Error("request failed")
	fail(c, http.StatusInternalServerError, "Internal server error")
}

// failFor maps a domain sentinel to its status, or reports a 500.
func failFor(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, progress.ErrProgressNotFound):
		fail(c, http.StatusNotFound, "Progress not found")
	case errors.Is(err, progress.ErrReadingNotFound):
		fail(c, http.StatusNotFound, "Reading not found")
	case errors.Is(err, progress.ErrForbidden):
		fail(c, http.StatusForbidden, "Forbidden")
	case errors.Is(err, db.ErrNoActivePlan), errors.Is(err, db.ErrPlanNotFound):
		fail(c, http.StatusNotFound, "Reading plan not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, "Not found")
	default:
		internalError(c, op, err)
	}
}
