package logic

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"berean-backend/internal/bible"
)

// splitPassages turns "John 3:16, Romans 8" into trimmed, non-empty entries.
func splitPassages(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PassageHandler serves scripture text. Provider failures degrade to
// placeholder text, so this never answers 5xx because of an upstream.
func (s *Server) PassageHandler(c *gin.Context) {
	passages := splitPassages(c.Query("passages"))
	if len(passages) == 0 {
		badRequest(c, "Passages parameter is required")
		return
	}
	format := c.DefaultQuery("format", "text")
	if format != "text" && format != "html" {
		badRequest(c, "format must be text or html")
		return
	}
	p := s.resolver.Resolve(c.Request.Context(), passages, c.Query("translation"), format)
	c.JSON(http.StatusOK, gin.H{
		"passages":    p.Passages,
		"content":     p.Content,
		"reference":   p.Reference,
		"translation": p.Translation,
		"bibleId":     p.BibleID,
		"source":      p.Source,
		"skipped":     p.Skipped,
	})
}

func (s *Server) TranslationsHandler(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	list, err := s.catalog.Get(c.Request.Context(), refresh)
	if err != nil {
		log.WithError(err).Warn("translation catalog fetch failed")
		fail(c, http.StatusInternalServerError, "Failed to fetch translations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"translations": list,
		"count":        len(list),
		"message":      "Translations fetched successfully",
	})
}

func (s *Server) TranslationGroupsHandler(c *gin.Context) {
	list, err := s.catalog.Get(c.Request.Context(), false)
	if err != nil {
		log.WithError(err).Warn("translation catalog fetch failed")
		fail(c, http.StatusInternalServerError, "Failed to fetch translation groups", err)
		return
	}
	groups := bible.GroupTranslations(list)
	if groups == nil {
		groups = []bible.TranslationGroup{}
	}
	c.JSON(http.StatusOK, gin.H{
		"groups":  groups,
		"count":   len(groups),
		"message": "Translation groups fetched successfully",
	})
}

func (s *Server) SearchTranslationsHandler(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	list, err := s.catalog.Get(c.Request.Context(), false)
	if err != nil {
		log.WithError(err).Warn("translation catalog fetch failed")
		fail(c, http.StatusInternalServerError, "Failed to search translations", err)
		return
	}
	found := bible.SearchTranslations(list, q)
	c.JSON(http.StatusOK, gin.H{"translations": found, "count": len(found)})
}
