package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"contentflow/internal/auth"
	"contentflow/internal/errors"
	"contentflow/internal/model"
	"contentflow/internal/policy"
	"contentflow/internal/repository"
)

// ProfileService handles principal records.
type ProfileService interface {
	// Provision is the user-created hook: it creates the profile for a
	// subject on first sight and is a no-op afterwards.
	Provision(ctx context.Context, p auth.Principal) (*model.Profile, error)
	Me(ctx context.Context, subject policy.Subject) (*model.Profile, error)
	Get(ctx context.Context, subject policy.Subject, id string) (*model.Profile, error)
	List(ctx context.Context, subject policy.Subject) ([]model.Profile, error)
}

type profileService struct {
	repo       repository.ProfileRepository
	engine     *policy.Engine
	adminEmail string
	logger     *slog.Logger
}

// NewProfileService creates a profile service. adminEmail is the bootstrap
// admin address; an empty value means no profile is ever made admin.
func NewProfileService(repo repository.ProfileRepository, engine *policy.Engine, adminEmail string, logger *slog.Logger) ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &profileService{
		repo:       repo,
		engine:     engine,
		adminEmail: strings.TrimSpace(adminEmail),
		logger:     logger,
	}
}

func (s *profileService) isBootstrapAdmin(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.adminEmail)
}

// Provision creates the profile for p if it does not exist yet. The admin
// flag is decided here, once, from the bootstrap email.
func (s *profileService) Provision(ctx context.Context, p auth.Principal) (*model.Profile, error) {
	if p.Subject == "" {
		return nil, errors.ErrUnauthenticated
	}
	self := policy.Subject{ID: p.Subject}
	if existing, err := s.repo.FindVisible(ctx, self, p.Subject); err == nil {
		return existing, nil
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("provision profile %s: %w", p.Subject, err)
	}

	profile := &model.Profile{
		ID:      p.Subject,
		Email:   strings.ToLower(strings.TrimSpace(p.Email)),
		IsAdmin: s.isBootstrapAdmin(p.Email),
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		profile.DisplayName = &name
	}

	stored, created, err := s.repo.CreateIfMissing(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("provision profile %s: %w", p.Subject, err)
	}
	if created {
		s.engine.Forget(ctx, stored.ID)
		s.logger.InfoContext(ctx, "profile provisioned", "profile_id", stored.ID, "is_admin", stored.IsAdmin)
	}
	return stored, nil
}

// Me returns the subject's own profile.
func (s *profileService) Me(ctx context.Context, subject policy.Subject) (*model.Profile, error) {
	return s.Get(ctx, subject, subject.ID)
}

// Get returns a profile the subject may read.
func (s *profileService) Get(ctx context.Context, subject policy.Subject, id string) (*model.Profile, error) {
	profile, err := s.repo.FindVisible(ctx, subject, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// List returns every profile for admins and only the own one otherwise.
func (s *profileService) List(ctx context.Context, subject policy.Subject) ([]model.Profile, error) {
	profiles, err := s.repo.ListVisible(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
