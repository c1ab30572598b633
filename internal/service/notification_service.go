package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/metrics"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/queue"
	"github.com/shinyyama/campusconnect/internal/repository"
)

// TaskDeliverNotification is the queue task that persists and pushes one notification.
const TaskDeliverNotification = "notification:deliver"

const (
	defaultNotificationPage = 50
	maxNotificationPage     = 100
)

// NotifyRequest is what a domain module hands over when an event concerns a
// user. Optional fields are empty when absent.
type NotifyRequest struct {
	UserID        string `json:"userId"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	RelatedItemID string `json:"relatedItemId,omitempty"`
	RelatedKind   string `json:"relatedKind,omitempty"`
	FromUserID    string `json:"fromUserId,omitempty"`
}

func (r NotifyRequest) Validate() error {
	switch {
	case r.UserID == "":
		return errs.Invalid("userId is required")
	case !model.IsKnownNotificationType(r.Type):
		return errs.Invalid(fmt.Sprintf("unknown notification type %q", r.Type))
	case strings.TrimSpace(r.Title) == "":
		return errs.Invalid("title is required")
	case strings.TrimSpace(r.Message) == "":
		return errs.Invalid("message is required")
	case (r.RelatedItemID == "") != (r.RelatedKind == ""):
		return errs.Invalid("relatedItemId and relatedKind go together")
	case r.RelatedKind != "" && !model.IsKnownRelatedKind(r.RelatedKind):
		return errs.Invalid(fmt.Sprintf("unknown related kind %q", r.RelatedKind))
	}
	return nil
}

// Notifier is the entry point for domain modules. Notify never fails and
// never blocks the caller beyond a short enqueue deadline.
type Notifier interface {
	Notify(ctx context.Context, req NotifyRequest)
}

type NotificationService interface {
	Notifier
	// Deliver persists the notification and pushes new-notification to the
	// owner if connected. It runs on the queue worker.
	Deliver(ctx context.Context, req NotifyRequest) (*model.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type notificationService struct {
	repo    repository.NotificationRepository
	queue   queue.Queue
	pusher  Pusher
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewNotificationService wires fan-out and registers the delivery handler on q.
func NewNotificationService(repo repository.NotificationRepository, q queue.Queue, pusher Pusher, log *slog.Logger, m *metrics.Metrics) NotificationService {
	s := &notificationService{
		repo:    repo,
		queue:   q,
		pusher:  pusher,
		log:     log.With("component", "fanout"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	q.Register(TaskDeliverNotification, s.handleDeliver)
	return s
}

func (s *notificationService) Notify(ctx context.Context, req NotifyRequest) {
	if err := req.Validate(); err != nil {
		s.metrics.Notification("invalid")
		s.log.Warn("notification rejected", "user_id", req.UserID, "type", req.Type, "err", err)
		return
	}
	payload, err := json.Marshal(req)
	if err != nil {
		s.metrics.Notification("dropped")
		s.log.Error("encode notification", "err", err)
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	if err := s.queue.Enqueue(ctx, queue.Task{Type: TaskDeliverNotification, Payload: payload}); err != nil {
		s.metrics.Notification("dropped")
		s.log.Warn("notification dropped", "user_id", req.UserID, "type", req.Type, "err", err)
		return
	}
	s.metrics.Notification("queued")
}

func (s *notificationService) handleDeliver(ctx context.Context, t queue.Task) error {
	var req NotifyRequest
	if err := json.Unmarshal(t.Payload, &req); err != nil {
		// a malformed payload will never succeed; do not retry it
		s.log.Error("decode notification task", "err", err)
		return nil
	}
	if _, err := s.Deliver(ctx, req); err != nil && !errors.Is(err, errs.ErrValidation) {
		return err
	}
	return nil
}

func (s *notificationService) Deliver(ctx context.Context, req NotifyRequest) (*model.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := &model.Notification{
		UserID:        req.UserID,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
		RelatedItemID: optional(req.RelatedItemID),
		RelatedKind:   optional(req.RelatedKind),
		FromUserID:    optional(req.FromUserID),
		CreatedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.Notification("failed")
		s.log.Error("store notification failed", "user_id", req.UserID, "type", req.Type, "err", err)
		return nil, storeErr("notification", err)
	}
	s.metrics.Notification("stored")

	push(s.log, s.pusher, n.UserID, event.Event{Name: event.NewNotification, Data: event.FromNotification(n)})
	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, clampLimit(limit, defaultNotificationPage, maxNotificationPage))
	if err != nil {
		return nil, storeErr("notifications", err)
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id, s.now()); err != nil {
		return storeErr("notification", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, storeErr("notifications", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr("notification", err)
	}
	return nil
}

func (s *notificationService) owned(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("notification", err)
	}
	if n.UserID != userID {
		return nil, errs.Forbidden("not the owner")
	}
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
