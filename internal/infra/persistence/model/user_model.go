// Package model holds the GORM persistence models, kept separate from the
// pure domain entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. The email column carries a unique
// index; the duplicate-key error it raises is what makes registration
// first-write-wins under concurrency.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Email        string    `gorm:"type:varchar(255);unique;not null"`
	FullName     string    `gorm:"type:varchar(100);not null"`
	AuthProvider string    `gorm:"type:varchar(20);not null"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	GoogleID     string    `gorm:"type:varchar(64);index"`
	BaseCVID     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
