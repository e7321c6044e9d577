package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentEvent is one entry of a content item's review history.
// Creation and every status change that reaches the database are logged.
type ContentEvent struct {
	ID         uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	ContentID  uuid.UUID     `json:"content_id" gorm:"type:char(36);not null;index"`
	ActorID    string        `json:"actor_id" gorm:"type:varchar(64);not null"`
	FromStatus ContentStatus `json:"from_status,omitempty" gorm:"type:varchar(20)"`
	ToStatus   ContentStatus `json:"to_status" gorm:"type:varchar(20);not null"`
	Notes      *string       `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt  time.Time     `json:"created_at" gorm:"index"`

	// Relations
	Content ContentItem `json:"-" gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (e *ContentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
