package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/repository"
)

const (
	defaultAnnouncementPage = 20
	maxAnnouncementPage     = 100
)

type AnnouncementInput struct {
	Title          string
	Message        string
	TargetAudience string
	Priority       string
}

type AnnouncementService interface {
	// Create is admin only; the stored announcement is broadcast to every
	// live connection.
	Create(ctx context.Context, who auth.Identity, in AnnouncementInput) (*model.Announcement, error)
	Get(ctx context.Context, who auth.Identity, id string) (*model.AnnouncementView, error)
	List(ctx context.Context, who auth.Identity, limit int) ([]model.AnnouncementView, error)
	MarkRead(ctx context.Context, who auth.Identity, id string) error
}

type announcementService struct {
	repo   repository.AnnouncementRepository
	pusher Pusher
	log    *slog.Logger
	now    func() time.Time
}

func NewAnnouncementService(repo repository.AnnouncementRepository, pusher Pusher, log *slog.Logger) AnnouncementService {
	return &announcementService{
		repo:   repo,
		pusher: pusher,
		log:    log.With("component", "announcements"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *announcementService) Create(ctx context.Context, who auth.Identity, in AnnouncementInput) (*model.Announcement, error) {
	if !who.IsAdmin() {
		return nil, errs.Forbidden("admin only")
	}
	if in.TargetAudience == "" {
		in.TargetAudience = model.AudienceAll
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	switch {
	case strings.TrimSpace(in.Title) == "":
		return nil, errs.Invalid("title is required")
	case strings.TrimSpace(in.Message) == "":
		return nil, errs.Invalid("message is required")
	case !model.IsKnownAudience(in.TargetAudience):
		return nil, errs.Invalid(fmt.Sprintf("unknown target audience %q", in.TargetAudience))
	case !model.IsKnownPriority(in.Priority):
		return nil, errs.Invalid(fmt.Sprintf("unknown priority %q", in.Priority))
	}

	a := &model.Announcement{
		Title:          in.Title,
		Message:        in.Message,
		CreatedBy:      who.UserID,
		TargetAudience: in.TargetAudience,
		Priority:       in.Priority,
		IsActive:       true,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, storeErr("announcement", err)
	}
	if s.pusher != nil {
		n := s.pusher.Broadcast(event.Event{Name: event.NewAnnouncement, Data: event.FromAnnouncement(a, false)})
		s.log.Info("announcement broadcast", "announcement_id", a.ID, "recipients", n)
	}
	return a, nil
}

func (s *announcementService) Get(ctx context.Context, who auth.Identity, id string) (*model.AnnouncementView, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("announcement", err)
	}
	read, err := s.repo.HasRead(ctx, id, who.UserID)
	if err != nil {
		return nil, storeErr("announcement", err)
	}
	return &model.AnnouncementView{Announcement: *a, IsRead: read}, nil
}

func (s *announcementService) List(ctx context.Context, who auth.Identity, limit int) ([]model.AnnouncementView, error) {
	audiences := []string{model.AudienceAll}
	if extra := model.AudienceFor(who.Role); extra != "" {
		audiences = append(audiences, extra)
	}
	list, err := s.repo.ListActive(ctx, audiences, who.UserID, clampLimit(limit, defaultAnnouncementPage, maxAnnouncementPage))
	if err != nil {
		return nil, storeErr("announcements", err)
	}
	return list, nil
}

func (s *announcementService) MarkRead(ctx context.Context, who auth.Identity, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return storeErr("announcement", err)
	}
	if err := s.repo.MarkRead(ctx, id, who.UserID, s.now()); err != nil {
		return storeErr("announcement", err)
	}
	return nil
}
