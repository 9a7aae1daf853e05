package db

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AchievementCatalog is the fixed set of achievements.
var AchievementCatalog = []Achievement{
	{Name: "First Steps", Description: "Complete your first daily reading", Icon: "footprints", Category: CategoryMilestone, RequiredCount: 1},
	{Name: "Week Warrior", Description: "Read for 7 days in a row", Icon: "flame", Category: CategoryStreak, RequiredCount: 7},
	{Name: "Month Master", Description: "Read for 30 days in a row", Icon: "calendar", Category: CategoryStreak, RequiredCount: 30},
	{Name: "Gospel Guardian", Description: "Complete all four Gospels", Icon: "book-open", Category: CategoryCompletion, RequiredCount: 4},
	{Name: "Apostolic Scholar", Description: "Complete 100 daily readings", Icon: "graduation-cap", Category: CategoryMilestone, RequiredCount: 100},
	{Name: "Berean Believer", Description: "Complete 365 daily readings", Icon: "award", Category: CategoryMilestone, RequiredCount: 365},
	{Name: "Scripture Sage", Description: "Complete the full 1,260 day plan", Icon: "crown", Category: CategoryCompletion, RequiredCount: 1260},
}

// SeedAchievements inserts or refreshes the catalog by name.
func SeedAchievements(conn *gorm.DB) error {
	for _, a := range AchievementCatalog {
		row := a
		err := conn.Where(Achievement{Name: a.Name}).
			Assign(Achievement{Description: a.Description, Icon: a.Icon, Category: a.Category, RequiredCount: a.RequiredCount}).
			FirstOrCreate(&row).Error
		if err != nil {
			return errors.Wrapf(err, "seed achievement %s", a.Name)
		}
	}
	return nil
}

// SeedPlan stores plan and its readings, updating rows that already exist
// for the same plan name and day, and marks it active.
func SeedPlan(conn *gorm.DB, plan *ReadingPlan) error {
	readings := plan.DailyReadings
	plan.DailyReadings = nil
	defer func() { plan.DailyReadings = readings }()

	err := conn.Transaction(func(tx *gorm.DB) error {
		var existing ReadingPlan
		err := tx.Where("name = ?", plan.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(plan).Error; err != nil {
				return errors.Wrap(err, "create plan")
			}
		case err != nil:
			return errors.Wrap(err, "load plan")
		default:
			plan.ID = existing.ID
			err := tx.Model(&existing).Updates(map[string]any{
				"description":    plan.Description,
				"total_days":     plan.TotalDays,
				"phase1_end_day": plan.Phase1EndDay,
				"phase2_end_day": plan.Phase2EndDay,
				"phase3_end_day": plan.Phase3EndDay,
			}).Error
			if err != nil {
				return errors.Wrap(err, "update plan")
			}
		}

		var stored []DailyReading
		if err := tx.Select("id", "day").Where("plan_id = ?", plan.ID).Find(&stored).Error; err != nil {
			return errors.Wrap(err, "load readings")
		}
		ids := make(map[int]string, len(stored))
		for _, r := range stored {
			ids[r.Day] = r.ID
		}

		var fresh []DailyReading
		var freshIdx []int
		for i := range readings {
			r := &readings[i]
			r.PlanID = plan.ID
			id, ok := ids[r.Day]
			if !ok {
				fresh = append(fresh, *r)
				freshIdx = append(freshIdx, i)
				continue
			}
			r.ID = id
			if err := tx.Omit("CreatedAt").Save(r).Error; err != nil {
				return errors.Wrapf(err, "update day %d", r.Day)
			}
		}
		if len(fresh) > 0 {
			if err := tx.CreateInBatches(fresh, 200).Error; err != nil {
				return errors.Wrap(err, "create readings")
			}
			for j, i := range freshIdx {
				readings[i].ID = fresh[j].ID
			}
		}
		log.WithFields(log.Fields{"plan": plan.Name, "created": len(fresh), "updated": len(readings) - len(fresh)}).
			Info("seeded reading plan")
		return nil
	})
	if err != nil {
		return err
	}
	return ActivatePlan(conn, plan.ID)
}

// Seed generates the Berean plan and the achievement catalog.
func Seed(conn *gorm.DB) error {
	plan, err := GenerateBereanPlan()
	if err != nil {
		return err
	}
	if err := SeedPlan(conn, plan); err != nil {
		return err
	}
	return SeedAchievements(conn)
}
