package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contentflow/internal/errors"
	"contentflow/internal/lifecycle"
	"contentflow/internal/model"
	"contentflow/internal/policy"
	"contentflow/internal/repository"
)

// View selects which side of the archive partition a listing shows.
type View string

const (
	ViewCurrent  View = "current"
	ViewArchived View = "archived"
	ViewAll      View = "all"
)

// ListOptions narrows a content listing.
type ListOptions struct {
	View        View
	ContentType model.ContentType
	Status      model.ContentStatus
	AssignedTo  string
	From        *time.Time
	To          *time.Time
}

// ContentView is a content item with its archive classification as of
// the read.
type ContentView struct {
	model.ContentItem
	Archived bool `json:"archived"`
}

// CreateContentInput carries the fields of a new content item. Status is
// accepted for compatibility and ignored.
type CreateContentInput struct {
	Title        *string
	Caption      string
	ContentType  model.ContentType
	MediaURL     string
	ScheduleDate time.Time
	AssignedTo   string
	Status       model.ContentStatus
}

// UpdateContentInput is a partial update; nil fields are left alone.
type UpdateContentInput struct {
	Title          *string
	Caption        *string
	ContentType    *model.ContentType
	MediaURL       *string
	ScheduleDate   *time.Time
	AssignedTo     *string
	Status         *model.ContentStatus
	RejectionNotes *string
}

func (in UpdateContentInput) editsFields() bool {
	return in.Title != nil || in.Caption != nil || in.ContentType != nil ||
		in.MediaURL != nil || in.ScheduleDate != nil || in.AssignedTo != nil
}

// ContentService handles the content item lifecycle.
type ContentService interface {
	List(ctx context.Context, subject policy.Subject, opts ListOptions) ([]ContentView, error)
	Get(ctx context.Context, subject policy.Subject, id uuid.UUID) (*ContentView, error)
	Create(ctx context.Context, subject policy.Subject, in CreateContentInput) (*ContentView, error)
	Update(ctx context.Context, subject policy.Subject, id uuid.UUID, in UpdateContentInput) (*ContentView, error)
	Approve(ctx context.Context, subject policy.Subject, id uuid.UUID) (*ContentView, error)
	Reject(ctx context.Context, subject policy.Subject, id uuid.UUID, notes string) (*ContentView, error)
	History(ctx context.Context, subject policy.Subject, id uuid.UUID) ([]model.ContentEvent, error)
}

type contentService struct {
	repo     repository.ContentRepository
	events   repository.ContentEventRepository
	profiles repository.ProfileRepository
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewContentService creates a content service. loc decides where a
// calendar day starts for archive classification.
func NewContentService(repo repository.ContentRepository, events repository.ContentEventRepository, profiles repository.ProfileRepository, loc *time.Location, logger *slog.Logger) ContentService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &contentService{
		repo:     repo,
		events:   events,
		profiles: profiles,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *contentService) view(item *model.ContentItem) *ContentView {
	return &ContentView{
		ContentItem: *item,
		Archived:    lifecycle.IsArchived(item.ScheduleDate, s.now(), s.loc),
	}
}

// List returns the items visible to subject, classified as of now.
func (s *contentService) List(ctx context.Context, subject policy.Subject, opts ListOptions) ([]ContentView, error) {
	if opts.ContentType != "" && !opts.ContentType.IsValid() {
		return nil, errors.ErrInvalidContentType
	}
	if opts.Status != "" && !opts.Status.IsValid() {
		return nil, errors.ErrInvalidStatus
	}

	filter := repository.ContentFilter{
		ContentType: opts.ContentType,
		Status:      opts.Status,
		AssignedTo:  opts.AssignedTo,
	}
	if opts.From != nil {
		from := lifecycle.DateOnly(*opts.From)
		filter.From = &from
	}
	if opts.To != nil {
		to := lifecycle.DateOnly(*opts.To)
		filter.To = &to
	}
	today := lifecycle.StartOfDay(s.now(), s.loc)
	switch opts.View {
	case ViewAll:
	case ViewArchived:
		filter.Before = &today
	default:
		filter.NotBefore = &today
	}

	items, err := s.repo.ListVisible(ctx, subject, filter)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	views := make([]ContentView, 0, len(items))
	for i := range items {
		views = append(views, *s.view(&items[i]))
	}
	return views, nil
}

// Get returns an item the subject may read. Items outside the subject's
// scope read as not found.
func (s *contentService) Get(ctx context.Context, subject policy.Subject, id uuid.UUID) (*ContentView, error) {
	item, err := s.repo.FindVisible(ctx, subject, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrContentNotFound
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	return s.view(item), nil
}

// Create stores a new pending item. Only admins may create.
func (s *contentService) Create(ctx context.Context, subject policy.Subject, in CreateContentInput) (*ContentView, error) {
	if !subject.CanInsertContent() {
		return nil, errors.ErrForbidden
	}
	if !in.ContentType.IsValid() {
		return nil, errors.ErrInvalidContentType
	}
	if err := s.checkAssignee(ctx, in.AssignedTo); err != nil {
		return nil, err
	}

	item := &model.ContentItem{
		Title:        trimmedOrNil(in.Title),
		Caption:      in.Caption,
		ContentType:  in.ContentType,
		MediaURL:     strings.TrimSpace(in.MediaURL),
		ScheduleDate: lifecycle.DateOnly(in.ScheduleDate),
		CreatedBy:    subject.ID,
		AssignedTo:   in.AssignedTo,
		// overwritten by the create hook whatever the caller sent
		Status: in.Status,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	s.record(ctx, item, subject, "")
	s.logger.InfoContext(ctx, "content created", "content_id", item.ID, "created_by", subject.ID, "assigned_to", item.AssignedTo)
	return s.view(item), nil
}

// Update applies a partial update. Admins may change every field; the
// assignee may only move the status and record rejection notes.
func (s *contentService) Update(ctx context.Context, subject policy.Subject, id uuid.UUID, in UpdateContentInput) (*ContentView, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !subject.CanUpdateContent(item) {
		return nil, errors.ErrForbidden
	}
	if in.editsFields() && !subject.CanEditContentFields() {
		return nil, errors.ErrForbidden
	}

	var columns []string
	if in.editsFields() {
		if columns, err = s.applyFields(ctx, item, in); err != nil {
			return nil, err
		}
	}

	expected := model.ContentStatus("")
	switch {
	case in.Status != nil && *in.Status != item.Status:
		if *in.Status == model.ContentStatusRejected && !subject.CanSetRejection(item) {
			return nil, errors.ErrForbidden
		}
		expected = item.Status
		notes := ""
		if in.RejectionNotes != nil {
			notes = *in.RejectionNotes
		}
		if err := lifecycle.Apply(item, *in.Status, notes, s.now()); err != nil {
			return nil, err
		}
		columns = append(columns, "status", "rejection_notes", "rejected_at")
	case in.RejectionNotes != nil:
		// Amending the notes of an item that is already rejected.
		if item.Status != model.ContentStatusRejected {
			return nil, errors.ErrRejectionIncomplete
		}
		if !subject.CanSetRejection(item) {
			return nil, errors.ErrForbidden
		}
		notes := *in.RejectionNotes
		if strings.TrimSpace(notes) == "" {
			return nil, errors.ErrRejectionNotesRequired
		}
		item.RejectionNotes = &notes
		columns = append(columns, "rejection_notes")
	}

	if len(columns) == 0 {
		return s.view(item), nil
	}
	if err := s.save(ctx, item, expected, columns...); err != nil {
		return nil, err
	}
	if expected != "" {
		s.record(ctx, item, subject, expected)
	}

	s.logger.InfoContext(ctx, "content updated", "content_id", item.ID, "by", subject.ID, "columns", columns)
	return s.view(item), nil
}

// Approve moves a pending item to approved.
func (s *contentService) Approve(ctx context.Context, subject policy.Subject, id uuid.UUID) (*ContentView, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !subject.CanUpdateContent(item) {
		return nil, errors.ErrForbidden
	}
	if err := lifecycle.Approve(item); err != nil {
		return nil, err
	}
	if err := s.save(ctx, item, model.ContentStatusPending, "status"); err != nil {
		return nil, err
	}
	s.record(ctx, item, subject, model.ContentStatusPending)

	s.logger.InfoContext(ctx, "content approved", "content_id", item.ID, "by", subject.ID)
	return s.view(item), nil
}

// Reject moves a pending item to rejected. Notes are required and the
// rejection time is recorded with the status.
func (s *contentService) Reject(ctx context.Context, subject policy.Subject, id uuid.UUID, notes string) (*ContentView, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !subject.CanSetRejection(item) {
		return nil, errors.ErrForbidden
	}
	if err := lifecycle.Reject(item, notes, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, item, model.ContentStatusPending, "status", "rejection_notes", "rejected_at"); err != nil {
		return nil, err
	}
	s.record(ctx, item, subject, model.ContentStatusPending)

	s.logger.InfoContext(ctx, "content rejected", "content_id", item.ID, "by", subject.ID)
	return s.view(item), nil
}

// History returns the review history of an item the subject may read.
func (s *contentService) History(ctx context.Context, subject policy.Subject, id uuid.UUID) ([]model.ContentEvent, error) {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return nil, err
	}
	events, err := s.events.ListByContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return events, nil
}

// record appends a history entry for a write that already succeeded. A
// failed insert is logged and does not fail the request.
func (s *contentService) record(ctx context.Context, item *model.ContentItem, actor policy.Subject, from model.ContentStatus) {
	event := &model.ContentEvent{
		ContentID:  item.ID,
		ActorID:    actor.ID,
		FromStatus: from,
		ToStatus:   item.Status,
		Notes:      item.RejectionNotes,
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to record content event", "content_id", item.ID, "error", err)
	}
}

func (s *contentService) load(ctx context.Context, id uuid.UUID) (*model.ContentItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrContentNotFound
		}
		return nil, fmt.Errorf("load content: %w", err)
	}
	return item, nil
}

// save writes columns; with an expected status, losing a race against
// another transition surfaces as ErrInvalidTransition.
func (s *contentService) save(ctx context.Context, item *model.ContentItem, expected model.ContentStatus, columns ...string) error {
	written, err := s.repo.UpdateColumns(ctx, item, expected, columns...)
	if err != nil {
		if stderrors.Is(err, errors.ErrRejectionNotesRequired) ||
			stderrors.Is(err, errors.ErrRejectionIncomplete) ||
			stderrors.Is(err, errors.ErrInvalidContentType) ||
			stderrors.Is(err, errors.ErrInvalidStatus) {
			return err
		}
		return fmt.Errorf("update content: %w", err)
	}
	if !written {
		if expected != "" {
			return errors.ErrInvalidTransition
		}
		return errors.ErrContentNotFound
	}
	return nil
}

func (s *contentService) applyFields(ctx context.Context, item *model.ContentItem, in UpdateContentInput) ([]string, error) {
	var columns []string
	if in.Title != nil {
		item.Title = trimmedOrNil(in.Title)
		columns = append(columns, "title")
	}
	if in.Caption != nil {
		item.Caption = *in.Caption
		columns = append(columns, "caption")
	}
	if in.ContentType != nil {
		if !in.ContentType.IsValid() {
			return nil, errors.ErrInvalidContentType
		}
		item.ContentType = *in.ContentType
		columns = append(columns, "content_type")
	}
	if in.MediaURL != nil {
		item.MediaURL = strings.TrimSpace(*in.MediaURL)
		columns = append(columns, "media_url")
	}
	if in.ScheduleDate != nil {
		item.ScheduleDate = lifecycle.DateOnly(*in.ScheduleDate)
		columns = append(columns, "schedule_date")
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
		item.AssignedTo = *in.AssignedTo
		columns = append(columns, "assigned_to")
	}
	return columns, nil
}

func (s *contentService) checkAssignee(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.ErrAssigneeRequired
	}
	exists, err := s.profiles.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !exists {
		return errors.ErrAssigneeNotFound
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
