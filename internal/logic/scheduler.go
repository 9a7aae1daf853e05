package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"berean-backend/internal/bible"
	"berean-backend/internal/common"
	"berean-backend/internal/db"
	"berean-backend/internal/progress"
)

// Scheduler runs the hourly reminder check and the nightly catalog refresh.
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	catalog   *bible.TranslationCache
	metrics   *Metrics
	now       func() time.Time
}

func NewScheduler(notifier Notifier, catalog *bible.TranslationCache, metrics *Metrics, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		notifier:  notifier,
		catalog:   catalog,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron("0 * * * *").Do(s.CheckAndSendReminders); err != nil {
		return errors.Wrap(err, "schedule reminders")
	}
	if s.catalog != nil {
		if _, err := s.scheduler.Every(1).Day().At("03:00").Do(s.RefreshCatalog); err != nil {
			return errors.Wrap(err, "schedule catalog refresh")
		}
	}
	s.scheduler.StartAsync()
	log.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RefreshCatalog forces a translation catalog fetch.
func (s *Scheduler) RefreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	list, err := s.catalog.Get(ctx, true)
	if err != nil {
		log.WithError(err).Warn("nightly translation refresh failed")
		return
	}
	log.WithField("count", len(list)).Info("translation catalog refreshed")
}

// reminderHour is the hour of HH:MM, falling back to the default start time.
func reminderHour(start *string) int {
	v := common.DefaultReminderStartsAt
	if start != nil && *start != "" {
		v = *start
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		t, _ = time.Parse("15:04", common.DefaultReminderStartsAt)
	}
	return t.Hour()
}

func userLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil && name != "" {
		return loc
	}
	return time.UTC
}

// CheckAndSendReminders reminds every user whose local hour matches their
// preferred start time and who has not completed a reading today.
func (s *Scheduler) CheckAndSendReminders() {
	sent, failed := s.sendDueReminders(context.Background(), s.now())
	log.WithFields(log.Fields{"sent": sent, "failed": failed}).Info("reminder check finished")
}

func (s *Scheduler) sendDueReminders(ctx context.Context, now time.Time) (sent, failed int) {
	conn := db.GetDB()
	if conn == nil {
		log.Warn("database not initialised, skipping reminders")
		return 0, 0
	}
	conn = conn.WithContext(ctx)

	var users []db.User
	if err := conn.Where("notifications_enabled = ?", true).Find(&users).Error; err != nil {
		log.WithError(err).Error("load users for reminders")
		return 0, 0
	}
	plan, err := db.ActivePlan(conn)
	if err != nil && !errors.Is(err, db.ErrNoActivePlan) {
		log.WithError(err).Error("load active plan for reminders")
		return 0, 0
	}

	for _, u := range users {
		loc := userLocation(u.Timezone)
		if now.In(loc).Hour() != reminderHour(u.PreferredStartTime) {
			continue
		}
		start := progress.CivilDate(now, loc)
		var done int64
		if err := conn.Model(&db.ReadingProgress{}).
			Where("user_id = ? AND is_completed = ? AND completed_at >= ? AND completed_at < ?",
				u.ID, true, start.UTC(), start.AddDate(0, 0, 1).UTC()).
			Count(&done).Error; err != nil {
			log.WithError(err).WithField("user", u.ID).Error("check today's reading")
			continue
		}
		if done > 0 {
			continue
		}

		r := Reminder{UserID: u.ID, Name: u.Name, Email: u.Email}
		r.Day, r.Message = s.reminderText(conn, plan, u.ID)
		if err := s.notifier.SendReminder(ctx, r); err != nil {
			failed++
			s.count("error")
			log.WithError(err).WithField("user", u.ID).Warn("send reminder")
			continue
		}
		sent++
		s.count("ok")
	}
	return sent, failed
}

func (s *Scheduler) reminderText(conn *gorm.DB, plan *db.ReadingPlan, userID string) (int, string) {
	if plan == nil {
		return 0, "Time for today's Bible reading."
	}
	rows, err := loadUserProgress(conn, userID, plan.ID)
	if err != nil {
		return 0, "Time for today's Bible reading."
	}
	day := summarize(plan, rows).CurrentDay
	r, err := progress.GetDailyReading(conn, plan.ID, day)
	if err != nil {
		return day, fmt.Sprintf("Day %d of %s is waiting for you.", day, plan.Name)
	}
	return day, fmt.Sprintf("Day %d of %s is waiting for you: %s.", day, plan.Name, strings.Join(r.Passages(), "; "))
}

func (s *Scheduler) count(status string) {
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(status).Inc()
	}
}
