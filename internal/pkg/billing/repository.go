package billing

import (
	"errors"
	"time"

	"github.com/tooldashai/tooldash/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error)
	GetWebhookEvent(id int64) (*models.WebhookEvent, error)
	MarkWebhookProcessed(id int64, processingError string) error
	ListUnprocessedWebhookEvents(olderThan time.Time, limit int) ([]models.WebhookEvent, error)
	GetUser(id uint) (*models.User, error)
	CreditUserForEvent(eventID int64, userID uint, credits int) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetWebhookEvent(id int64) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// MarkWebhookProcessed sets processed and the error text once. Marking an
// already processed event leaves it untouched.
func (r *gormRepository) MarkWebhookProcessed(id int64, processingError string) error {
	marked, err := markProcessed(r.db, id, processingError)
	if err != nil {
		return err
	}
	if !marked {
		return r.ensureWebhookEvent(r.db, id)
	}
	return nil
}

func (r *gormRepository) ListUnprocessedWebhookEvents(olderThan time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	q := r.db.Where("processed = ? AND created_at < ?", false, olderThan).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreditUserForEvent marks the event processed and adds the credits in one
// transaction. It returns false without crediting when the event was already
// processed. A missing user rolls the mark back and returns ErrUserNotFound.
func (r *gormRepository) CreditUserForEvent(eventID int64, userID uint, credits int) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		marked, err := markProcessed(tx, eventID, "")
		if err != nil {
			return err
		}
		if !marked {
			return r.ensureWebhookEvent(tx, eventID)
		}

		res := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", credits))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// markProcessed flips processed from false to true. Only the caller that
// flips it gets true back.
func markProcessed(db *gorm.DB, id int64, processingError string) (bool, error) {
	res := db.Model(&models.WebhookEvent{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{
			"processed":        true,
			"processing_error": processingError,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) ensureWebhookEvent(db *gorm.DB, id int64) error {
	var count int64
	if err := db.Model(&models.WebhookEvent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrEventNotFound
	}
	return nil
}
