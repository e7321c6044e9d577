package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contentflow/internal/model"
	"contentflow/internal/policy"
)

// ProfileRepository defines profile persistence operations. Reads other
// than AdminFlag take a resolved policy.Subject and only return rows the
// subject may see.
type ProfileRepository interface {
	policy.AdminLookup
	FindVisible(ctx context.Context, subject policy.Subject, id string) (*model.Profile, error)
	ListVisible(ctx context.Context, subject policy.Subject) ([]model.Profile, error)
	Exists(ctx context.Context, id string) (bool, error)
	// CreateIfMissing inserts profile unless a row with its ID exists and
	// returns the stored row either way.
	CreateIfMissing(ctx context.Context, profile *model.Profile) (*model.Profile, bool, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// AdminFlag is the privileged single-row read behind policy.Engine. It
// applies no row scope.
func (r *profileRepository) AdminFlag(ctx context.Context, id string) (bool, error) {
	var flags []bool
	if err := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("is_admin", &flags).Error; err != nil {
		return false, err
	}
	if len(flags) == 0 {
		return false, nil
	}
	return flags[0], nil
}

// FindVisible finds a profile by ID within the subject's scope.
func (r *profileRepository) FindVisible(ctx context.Context, subject policy.Subject, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Scopes(subject.ProfileScope()).
		Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListVisible lists the profiles the subject may see, ordered by email.
func (r *profileRepository) ListVisible(ctx context.Context, subject policy.Subject) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := r.db.WithContext(ctx).Scopes(subject.ProfileScope()).
		Order("email").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Exists reports whether a profile with id exists, regardless of scope.
func (r *profileRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateIfMissing is idempotent on the profile ID. The admin flag of an
// existing row is never touched.
func (r *profileRepository) CreateIfMissing(ctx context.Context, profile *model.Profile) (*model.Profile, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(profile)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	var stored model.Profile
	err := r.db.WithContext(ctx).Where("id = ?", profile.ID).First(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// the conflict was on email, owned by another subject
		return nil, false, gorm.ErrDuplicatedKey
	}
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}
