package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultUserCredits is the balance a freshly registered account starts with.
	DefaultUserCredits = 10
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	EmailVerified *time.Time `gorm:"type:timestamp;default:null" json:"email_verified,omitempty"`
	Credits       int        `gorm:"not null;default:10" json:"credits" validate:"gte=0"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewUser builds a validated user with the starter credit balance.
func NewUser(email string) (*User, error) {
	u := &User{
		Email:   email,
		Credits: DefaultUserCredits,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}
