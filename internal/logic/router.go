package logic

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/bible"
	"berean-backend/internal/common"
	"berean-backend/internal/progress"
)

// Server carries the collaborators shared by the HTTP handlers. Data access
// goes through db.GetDB().
type Server struct {
	cfg       *common.Config
	auth      *auth.Manager
	catalog   *bible.TranslationCache
	resolver  *bible.Resolver
	progress  *progress.Service
	reflector Reflector
	metrics   *Metrics
	now       func() time.Time
}

// NewServer wires the provider clients, the translation cache and the
// completion service from cfg.
func NewServer(cfg *common.Config, conn *gorm.DB, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	esv := bible.NewESVClient(cfg.ESVAPIURL, cfg.ESVAPIKey, cfg.ProviderRPS, metrics.ProviderRequest)
	apiBible := bible.NewAPIBibleClient(cfg.BibleAPIURL, cfg.BibleAPIKey, cfg.ProviderRPS, metrics.ProviderRequest)
	catalog := bible.NewTranslationCache(apiBible, cfg.TranslationTTL, bible.WithObserver(metrics.CacheResult))

	return &Server{
		cfg:       cfg,
		auth:      auth.NewManager(cfg.JWTSecret, cfg.SessionTTL),
		catalog:   catalog,
		resolver:  bible.NewResolver(esv, apiBible, catalog, metrics.PassageFallback),
		progress:  progress.NewService(conn, cfg.Location, progress.WithObserver(metrics)),
		reflector: NewReflector(cfg),
		metrics:   metrics,
		now:       time.Now,
	}
}

func (s *Server) Catalog() *bible.TranslationCache { return s.catalog }
func (s *Server) Metrics() *Metrics                { return s.metrics }

// SetupRouter registers every route. Everything under /api except signup,
// login, logout and the community stats needs a session.
func SetupRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), s.metrics.Middleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.POST("/auth/signup", s.SignupHandler)
	api.POST("/signup", s.SignupHandler)
	api.POST("/auth/login", s.LoginHandler)
	api.POST("/auth/logout", s.LogoutHandler)
	api.GET("/stats", StatsHandler)

	authed := api.Group("", s.auth.Middleware(common.SessionCookieName))
	authed.GET("/bible/passage", s.PassageHandler)
	authed.GET("/bible/translations", s.TranslationsHandler)
	authed.GET("/bible/translations/search", s.SearchTranslationsHandler)
	authed.GET("/bible/translation-groups", s.TranslationGroupsHandler)

	authed.GET("/reading/:day", s.ReadingDayHandler)
	authed.GET("/reading-plan", ReadingPlanHandler)
	authed.POST("/progress/complete", s.CompleteHandler)
	authed.GET("/progress/calendar", s.CalendarHandler)
	authed.GET("/dashboard", s.DashboardHandler)

	authed.POST("/notes", CreateNoteHandler)
	authed.GET("/notes", ListNotesHandler)

	authed.GET("/profile", ProfileHandler)
	authed.PATCH("/profile", UpdateProfileHandler)
	authed.GET("/profile/export", s.ExportHandler)

	authed.GET("/user/translation-preferences", TranslationPreferencesHandler)
	authed.PUT("/user/translation-preferences", UpdateTranslationPreferencesHandler)
	authed.POST("/user/update-translation-history", UpdateTranslationHistoryHandler)

	authed.POST("/reflection", s.ReflectionHandler)
	authed.GET("/reflection/history", ReflectionHistoryHandler)

	return r
}
