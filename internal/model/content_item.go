package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contentflow/internal/errors"
)

// ContentType is the social format a content item is produced for.
type ContentType string

const (
	ContentTypePost   ContentType = "post"
	ContentTypeStory  ContentType = "story"
	ContentTypeReel   ContentType = "reel"
	ContentTypeTikTok ContentType = "tiktok"
)

// ContentTypes lists every accepted ContentType.
var ContentTypes = []ContentType{ContentTypePost, ContentTypeStory, ContentTypeReel, ContentTypeTikTok}

// IsValid reports whether t is one of ContentTypes.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypePost, ContentTypeStory, ContentTypeReel, ContentTypeTikTok:
		return true
	}
	return false
}

// ContentStatus represents the review state of a content item.
type ContentStatus string

const (
	ContentStatusPending  ContentStatus = "pending"
	ContentStatusApproved ContentStatus = "approved"
	ContentStatusRejected ContentStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s ContentStatus) IsValid() bool {
	switch s {
	case ContentStatusPending, ContentStatusApproved, ContentStatusRejected:
		return true
	}
	return false
}

// ContentItem is a single piece of proposed social content awaiting review.
type ContentItem struct {
	ID             uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	Title          *string       `json:"title,omitempty" gorm:"size:255"`
	Caption        string        `json:"caption" gorm:"type:text;not null"`
	ContentType    ContentType   `json:"content_type" gorm:"type:varchar(20);not null;index;check:chk_content_items_type,content_type IN ('post','story','reel','tiktok')"`
	MediaURL       string        `json:"media_url" gorm:"size:2048"`
	Status         ContentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index;check:chk_content_items_status,status IN ('pending','approved','rejected')"`
	ScheduleDate   time.Time     `json:"schedule_date" gorm:"type:date;not null;index"`
	RejectionNotes *string       `json:"rejection_notes,omitempty" gorm:"type:text"`
	RejectedAt     *time.Time    `json:"rejected_at,omitempty"`
	CreatedBy      string        `json:"created_by" gorm:"type:varchar(64);not null;index"`
	AssignedTo     string        `json:"assigned_to" gorm:"type:varchar(64);not null;index"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Relations
	Creator  Profile `json:"-" gorm:"foreignKey:CreatedBy"`
	Assignee Profile `json:"-" gorm:"foreignKey:AssignedTo"`
}

// BeforeCreate sets the UUID and forces every new item into pending,
// whatever the caller supplied.
func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = ContentStatusPending
	c.RejectionNotes = nil
	c.RejectedAt = nil
	return c.Validate()
}

// BeforeUpdate refuses to persist an inconsistent item.
func (c *ContentItem) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}

// Validate checks the enumerations and that rejection notes and timestamp
// are present exactly when the item is rejected.
func (c *ContentItem) Validate() error {
	if !c.ContentType.IsValid() {
		return errors.ErrInvalidContentType
	}
	if !c.Status.IsValid() {
		return errors.ErrInvalidStatus
	}
	hasNotes := c.RejectionNotes != nil && *c.RejectionNotes != ""
	hasTime := c.RejectedAt != nil
	if c.Status == ContentStatusRejected {
		if !hasNotes {
			return errors.ErrRejectionNotesRequired
		}
		if !hasTime {
			return errors.ErrRejectionIncomplete
		}
		return nil
	}
	if hasNotes || hasTime {
		return errors.ErrRejectionIncomplete
	}
	return nil
}
