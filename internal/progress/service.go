package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"berean-backend/internal/db"
)

var (
	ErrProgressNotFound = errors.New("progress not found")
	ErrReadingNotFound  = errors.New("daily reading not found")
	ErrForbidden        = errors.New("progress belongs to another user")
)

// Observer is notified after a completion commits.
type Observer interface {
	ReadingCompleted(section Section)
	AchievementsAwarded(n int)
}

type nopObserver struct{}

func (nopObserver) ReadingCompleted(Section) {}
func (nopObserver) AchievementsAwarded(int)  {}

// Service applies completion events. Progress, streak and achievements are
// written in one transaction.
type Service struct {
	db       *gorm.DB
	loc      *time.Location
	now      func() time.Time
	observer Observer
}

type Option func(*Service)

func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(conn *gorm.DB, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{db: conn, loc: loc, now: time.Now, observer: nopObserver{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

type CompleteRequest struct {
	ProgressID string
	Section    Section
	Timings    Timings
}

type CompleteResult struct {
	Progress *db.ReadingProgress
	Streak   *db.ReadingStreak
	// NewAchievements counts every achievement the user qualifies for after
	// this completion, including ones already held.
	NewAchievements int
	// Awarded names the achievements first earned by this completion.
	Awarded []string
}

func (s *Service) Complete(ctx context.Context, userID string, req CompleteRequest) (*CompleteResult, error) {
	now := s.now()
	res := &CompleteResult{Awarded: []string{}}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p db.ReadingProgress
		err := tx.Preload("DailyReading").First(&p, "id = ?", req.ProgressID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgressNotFound
		}
		if err != nil {
			return errors.Wrap(err, "load progress")
		}
		if p.UserID != userID {
			return ErrForbidden
		}
		if p.DailyReading == nil {
			return ErrReadingNotFound
		}

		ApplyCompletion(&p, p.DailyReading, req.Section, req.Timings, now)
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return errors.Wrap(err, "save progress")
		}

		streak, err := s.advanceStreak(tx, userID, now)
		if err != nil {
			return err
		}

		var completed int64
		if err := tx.Model(&db.ReadingProgress{}).
			Where("user_id = ? AND is_completed = ?", userID, true).
			Count(&completed).Error; err != nil {
			return errors.Wrap(err, "count completed")
		}
		var catalog []db.Achievement
		if err := tx.Order("required_count").Find(&catalog).Error; err != nil {
			return errors.Wrap(err, "load achievements")
		}
		eligible := Eligible(catalog, completed, streak.CurrentStreak)
		for _, a := range eligible {
			ua := db.UserAchievement{UserID: userID, AchievementID: a.ID, EarnedAt: now}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
				DoNothing: true,
			}).Create(&ua)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "award %s", a.Name)
			}
			if result.RowsAffected > 0 {
				res.Awarded = append(res.Awarded, a.Name)
			}
		}

		res.Progress = &p
		res.Streak = streak
		res.NewAchievements = len(eligible)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.ReadingCompleted(req.Section)
	if len(res.Awarded) > 0 {
		s.observer.AchievementsAwarded(len(res.Awarded))
		log.WithFields(log.Fields{"user": userID, "awarded": res.Awarded}).Info("achievements awarded")
	}
	return res, nil
}

// advanceStreak loads the user's streak, creating it if signup did not,
// and records a reading now.
func (s *Service) advanceStreak(tx *gorm.DB, userID string, now time.Time) (*db.ReadingStreak, error) {
	var streak db.ReadingStreak
	err := tx.Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		streak = db.ReadingStreak{UserID: userID}
	} else if err != nil {
		return nil, errors.Wrap(err, "load streak")
	}
	AdvanceStreak(&streak, now, s.loc)
	if err := tx.Save(&streak).Error; err != nil {
		return nil, errors.Wrap(err, "save streak")
	}
	return &streak, nil
}

// GetDailyReading loads one day of a plan.
func GetDailyReading(tx *gorm.DB, planID string, day int) (*db.DailyReading, error) {
	var r db.DailyReading
	err := tx.Where("plan_id = ? AND day = ?", planID, day).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReadingNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load daily reading")
	}
	return &r, nil
}

// GetOrCreateProgress returns the user's progress for reading, inserting an
// incomplete row seeded with the reading's phase and OT cycle on first
// visit.
func GetOrCreateProgress(tx *gorm.DB, userID string, r *db.DailyReading) (*db.ReadingProgress, error) {
	var p db.ReadingProgress
	key := db.ReadingProgress{UserID: userID, PlanID: r.PlanID, ReadingID: r.ID}
	err := tx.Where(&key).
		Attrs(db.ReadingProgress{CurrentPhase: r.Phase, OTCycle: r.OTCycle}).
		FirstOrCreate(&p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent first visit
		err = tx.Where(&key).First(&p).Error
	}
	if err != nil {
		return nil, errors.Wrap(err, "get or create progress")
	}
	return &p, nil
}
