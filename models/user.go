package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the account a post belongs to. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	DateJoined   time.Time `json:"date_joined"`
}

// BeforeCreate hook ensures the join date is set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	return nil
}
