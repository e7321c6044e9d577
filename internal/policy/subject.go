package policy

import (
	"gorm.io/gorm"

	"contentflow/internal/model"
)

// Subject is a principal with its admin flag already resolved.
type Subject struct {
	ID    string
	Email string
	Admin bool
}

// CanReadProfile: own row always, any row for admins.
func (s Subject) CanReadProfile(profileID string) bool {
	return s.Admin || s.ID == profileID
}

// CanReadContent: the assignee or an admin.
func (s Subject) CanReadContent(item *model.ContentItem) bool {
	return s.Admin || s.isAssignee(item)
}

// CanInsertContent: admins only.
func (s Subject) CanInsertContent() bool {
	return s.Admin
}

// CanUpdateContent: the assignee or an admin.
func (s Subject) CanUpdateContent(item *model.ContentItem) bool {
	return s.Admin || s.isAssignee(item)
}

// CanEditContentFields allows changing anything besides status and
// rejection data. Only admins hold the full update right.
func (s Subject) CanEditContentFields() bool {
	return s.Admin
}

// CanSetRejection is the narrower rule letting the assignee record a
// rejection even where broader update rules are tightened.
func (s Subject) CanSetRejection(item *model.ContentItem) bool {
	return s.Admin || s.isAssignee(item)
}

func (s Subject) isAssignee(item *model.ContentItem) bool {
	return item != nil && s.ID != "" && item.AssignedTo == s.ID
}

// ProfileScope restricts a profiles query to rows CanReadProfile allows.
func (s Subject) ProfileScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.Admin {
			return db
		}
		return db.Where("profiles.id = ?", s.ID)
	}
}

// ContentScope restricts a content_items query to rows CanReadContent allows.
func (s Subject) ContentScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.Admin {
			return db
		}
		return db.Where("content_items.assigned_to = ?", s.ID)
	}
}
