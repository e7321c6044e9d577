package model

import "time"

// Profile is the principal record mirroring an identity provider subject.
// Exactly one exists per subject; the application never deletes it.
type Profile struct {
	ID          string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	DisplayName *string   `json:"display_name,omitempty" gorm:"size:255"`
	IsAdmin     bool      `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
