package repository

import (
	"gorm.io/gorm"

	"github.com/tooldashai/tooldash/app/models"
	"github.com/tooldashai/tooldash/internal/pkg/billing"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// QueueRepository exposes read-only job queue state kept in Redis
type QueueRepository interface {
	GetJobStats() (map[string]int64, error)
	GetPendingCount() (int64, error)
	GetProcessingCount() (int64, error)
}

// Repositories struct holds all database-backed repository instances
type Repositories struct {
	User    UserRepository
	Billing billing.Repository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Billing: billing.NewRepository(db),
	}
}
