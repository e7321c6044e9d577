package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contentflow/internal/model"
	"contentflow/internal/policy"
)

// ContentFilter narrows a content listing. Zero values mean "any".
type ContentFilter struct {
	ContentType model.ContentType
	Status      model.ContentStatus
	AssignedTo  string
	// From and To bound the schedule date, both inclusive.
	From *time.Time
	To   *time.Time
	// Before and NotBefore split archived from current items.
	Before    *time.Time
	NotBefore *time.Time
}

// ContentRepository defines content item persistence operations.
type ContentRepository interface {
	Create(ctx context.Context, item *model.ContentItem) error
	// FindByID ignores row policy; callers check the subject themselves.
	FindByID(ctx context.Context, id uuid.UUID) (*model.ContentItem, error)
	FindVisible(ctx context.Context, subject policy.Subject, id uuid.UUID) (*model.ContentItem, error)
	ListVisible(ctx context.Context, subject policy.Subject, filter ContentFilter) ([]model.ContentItem, error)
	// UpdateColumns writes the named columns of item. When expected is not
	// empty the row is only written if its stored status still equals it;
	// the returned bool reports whether a row was written.
	UpdateColumns(ctx context.Context, item *model.ContentItem, expected model.ContentStatus, columns ...string) (bool, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// Create creates a new content item. The model hook forces status to pending.
func (r *contentRepository) Create(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID finds a content item by ID.
func (r *contentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindVisible finds a content item by ID within the subject's scope.
func (r *contentRepository) FindVisible(ctx context.Context, subject policy.Subject, id uuid.UUID) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := r.db.WithContext(ctx).Scopes(subject.ContentScope()).
		Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListVisible lists content items in the subject's scope, ordered by
// schedule date then creation time.
func (r *contentRepository) ListVisible(ctx context.Context, subject policy.Subject, filter ContentFilter) ([]model.ContentItem, error) {
	var items []model.ContentItem
	if err := r.db.WithContext(ctx).
		Scopes(subject.ContentScope(), filter.scope()).
		Order("schedule_date, created_at").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (f ContentFilter) scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.ContentType != "" {
			db = db.Where("content_type = ?", f.ContentType)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.AssignedTo != "" {
			db = db.Where("assigned_to = ?", f.AssignedTo)
		}
		if f.From != nil {
			db = db.Where("schedule_date >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("schedule_date <= ?", *f.To)
		}
		if f.Before != nil {
			db = db.Where("schedule_date < ?", *f.Before)
		}
		if f.NotBefore != nil {
			db = db.Where("schedule_date >= ?", *f.NotBefore)
		}
		return db
	}
}

// UpdateColumns performs a single-statement update. Conditioning on the
// expected status keeps two racing transitions from both succeeding.
func (r *contentRepository) UpdateColumns(ctx context.Context, item *model.ContentItem, expected model.ContentStatus, columns ...string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(item)
	if expected != "" {
		tx = tx.Where("status = ?", expected)
	}
	res := tx.Select(append(columns, "updated_at")).Updates(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ContentEventRepository defines review history persistence operations.
type ContentEventRepository interface {
	Create(ctx context.Context, event *model.ContentEvent) error
	ListByContent(ctx context.Context, contentID uuid.UUID) ([]model.ContentEvent, error)
}

type contentEventRepository struct {
	db *gorm.DB
}

// NewContentEventRepository creates a new content event repository.
func NewContentEventRepository(db *gorm.DB) ContentEventRepository {
	return &contentEventRepository{db: db}
}

// Create creates a new history entry.
func (r *contentEventRepository) Create(ctx context.Context, event *model.ContentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByContent returns the history of one item, oldest first.
func (r *contentEventRepository) ListByContent(ctx context.Context, contentID uuid.UUID) ([]model.ContentEvent, error) {
	var events []model.ContentEvent
	if err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
