package service

import (
	"context"

	"github.com/shinyyama/campusconnect/internal/repository"
)

type UnreadSummary struct {
	Messages      int64
	Notifications int64
}

// UnreadService answers badge counters. All methods are read-only.
type UnreadService interface {
	MessageCount(ctx context.Context, userID string) (int64, error)
	NotificationCount(ctx context.Context, userID string) (int64, error)
	Summary(ctx context.Context, userID string) (UnreadSummary, error)
}

type unreadService struct {
	conversations repository.ConversationRepository
	notifications repository.NotificationRepository
}

func NewUnreadService(conversations repository.ConversationRepository, notifications repository.NotificationRepository) UnreadService {
	return &unreadService{conversations: conversations, notifications: notifications}
}

func (s *unreadService) MessageCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.conversations.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeErr("messages", err)
	}
	return n, nil
}

func (s *unreadService) NotificationCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeErr("notifications", err)
	}
	return n, nil
}

func (s *unreadService) Summary(ctx context.Context, userID string) (UnreadSummary, error) {
	msgs, err := s.MessageCount(ctx, userID)
	if err != nil {
		return UnreadSummary{}, err
	}
	notes, err := s.NotificationCount(ctx, userID)
	if err != nil {
		return UnreadSummary{}, err
	}
	return UnreadSummary{Messages: msgs, Notifications: notes}, nil
}
