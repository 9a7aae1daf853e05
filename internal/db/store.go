package db

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNoActivePlan = errors.New("no active reading plan")
	ErrPlanNotFound = errors.New("reading plan not found")
)

// ActivePlan loads the plan holding the active slot.
func ActivePlan(tx *gorm.DB) (*ReadingPlan, error) {
	var plan ReadingPlan
	err := tx.Where("active_slot = ?", 1).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActivePlan
	}
	if err != nil {
		return nil, errors.Wrap(err, "load active plan")
	}
	return &plan, nil
}

func GetPlan(tx *gorm.DB, id string) (*ReadingPlan, error) {
	var plan ReadingPlan
	err := tx.First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load plan")
	}
	return &plan, nil
}

// ActivatePlan makes id the only active plan.
func ActivatePlan(conn *gorm.DB, id string) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		if _, err := GetPlan(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&ReadingPlan{}).Where("active_slot IS NOT NULL").
			Updates(map[string]any{"active_slot": nil, "is_active": false}).Error; err != nil {
			return errors.Wrap(err, "clear active slot")
		}
		slot := 1
		return errors.Wrap(tx.Model(&ReadingPlan{}).Where("id = ?", id).
			Updates(map[string]any{"active_slot": &slot, "is_active": true}).Error, "set active slot")
	})
}

// CreateUserWithStreak inserts a user and its empty streak row together.
func CreateUserWithStreak(conn *gorm.DB, user *User) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return errors.Wrap(err, "create user")
		}
		return errors.Wrap(tx.Create(&ReadingStreak{UserID: user.ID}).Error, "create streak")
	})
}

// FindUserByEmail returns gorm.ErrRecordNotFound when absent.
func FindUserByEmail(tx *gorm.DB, email string) (*User, error) {
	var u User
	if err := tx.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUser(tx *gorm.DB, id string) (*User, error) {
	var u User
	if err := tx.First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
