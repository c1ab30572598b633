package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/metrics"
	"github.com/shinyyama/campusconnect/internal/model"
	"github.com/shinyyama/campusconnect/internal/repository"
	"github.com/shinyyama/campusconnect/internal/reqctx"
)

const (
	MaxMessageLength = 4000

	defaultMessagePage = 100
	maxMessagePage     = 500
)

// SendInput addresses a message either to an existing conversation or to a
// recipient; at least one must be set.
type SendInput struct {
	ConversationID string
	RecipientID    string
	Text           string
}

// ConversationView is a conversation from one participant's side.
type ConversationView struct {
	model.ConversationSummary
	Peer model.UserSummary
}

type ConversationService interface {
	// Send persists the message and then pushes receive-message to the
	// recipient if connected. The returned message carries its id and seq.
	Send(ctx context.Context, senderID string, in SendInput) (*model.Message, error)
	// MarkRead flips every message sent to readerID and notifies the peer
	// with messages-read when anything changed.
	MarkRead(ctx context.Context, readerID, convID string) error
	Get(ctx context.Context, uid, convID string) (*model.Conversation, error)
	StartWith(ctx context.Context, uid, peerID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]ConversationView, error)
	ListMessages(ctx context.Context, uid, convID string, afterSeq int64, limit int) ([]model.Message, error)
}

type conversationService struct {
	repo      repository.ConversationRepository
	pusher    Pusher
	directory auth.Directory
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewConversationService wires the relay. directory may be nil, in which case
// recipients are not checked and peers carry only their id.
func NewConversationService(repo repository.ConversationRepository, pusher Pusher, directory auth.Directory, log *slog.Logger, m *metrics.Metrics) ConversationService {
	return &conversationService{
		repo:      repo,
		pusher:    pusher,
		directory: directory,
		log:       log.With("component", "relay"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validateSend(senderID string, in SendInput) error {
	if strings.TrimSpace(in.Text) == "" {
		return errs.Invalid("text is required")
	}
	if utf8.RuneCountInString(in.Text) > MaxMessageLength {
		return errs.Invalid("text exceeds 4000 characters")
	}
	if in.ConversationID == "" && in.RecipientID == "" {
		return errs.Invalid("conversationId or recipientId is required")
	}
	if in.RecipientID == senderID {
		return errs.Invalid("cannot message yourself")
	}
	return nil
}

func (s *conversationService) Send(ctx context.Context, senderID string, in SendInput) (*model.Message, error) {
	if err := validateSend(senderID, in); err != nil {
		return nil, err
	}

	var cv *model.Conversation
	if in.ConversationID != "" {
		var err error
		cv, err = s.participantOf(ctx, senderID, in.ConversationID)
		if err != nil {
			return nil, err
		}
		if in.RecipientID != "" && in.RecipientID != cv.Peer(senderID) {
			return nil, errs.Invalid("recipientId does not match the conversation")
		}
	} else {
		if err := s.checkRecipient(ctx, in.RecipientID); err != nil {
			return nil, err
		}
		var err error
		cv, err = s.repo.FindOrCreate(ctx, senderID, in.RecipientID)
		if err != nil {
			return nil, storeErr("conversation", err)
		}
	}

	msg := &model.Message{
		ConversationID: cv.ID,
		SenderID:       senderID,
		Text:           in.Text,
		CreatedAt:      s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		reqctx.Logger(ctx, s.log).Error("append message failed", "conversation_id", cv.ID, "err", err)
		return nil, storeErr("message", err)
	}
	s.metrics.MessageRelayed()

	push(s.log, s.pusher, cv.Peer(senderID), event.NewMessageEvent(event.ReceiveMessage, msg))
	return msg, nil
}

// checkRecipient rejects ids the directory does not know. Directory outages
// do not block sending.
func (s *conversationService) checkRecipient(ctx context.Context, uid string) error {
	if s.directory == nil {
		return nil
	}
	_, err := s.directory.Lookup(ctx, uid)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrUserNotFound):
		return errs.Invalid("unknown recipient")
	default:
		s.log.Warn("recipient lookup failed", "recipient_id", uid, "err", err)
		return nil
	}
}

func (s *conversationService) MarkRead(ctx context.Context, readerID, convID string) error {
	cv, err := s.participantOf(ctx, readerID, convID)
	if err != nil {
		return err
	}
	changed, err := s.repo.MarkRead(ctx, cv.ID, readerID)
	if err != nil {
		return storeErr("messages", err)
	}
	if changed > 0 {
		push(s.log, s.pusher, cv.Peer(readerID), event.Event{
			Name: event.MessagesRead,
			Data: event.MessagesReadPayload{ChatID: cv.ID},
		})
	}
	return nil
}

func (s *conversationService) Get(ctx context.Context, uid, convID string) (*model.Conversation, error) {
	return s.participantOf(ctx, uid, convID)
}

func (s *conversationService) StartWith(ctx context.Context, uid, peerID string) (*model.Conversation, error) {
	if peerID == "" {
		return nil, errs.Invalid("userId is required")
	}
	if peerID == uid {
		return nil, errs.Invalid("cannot chat with yourself")
	}
	if err := s.checkRecipient(ctx, peerID); err != nil {
		return nil, err
	}
	cv, err := s.repo.FindOrCreate(ctx, uid, peerID)
	if err != nil {
		return nil, storeErr("conversation", err)
	}
	return cv, nil
}

func (s *conversationService) ListByUser(ctx context.Context, uid string) ([]ConversationView, error) {
	list, err := s.repo.ListByUser(ctx, uid)
	if err != nil {
		return nil, storeErr("conversations", err)
	}
	out := make([]ConversationView, 0, len(list))
	for _, cs := range list {
		out = append(out, ConversationView{ConversationSummary: cs, Peer: s.peerSummary(ctx, cs.Peer(uid))})
	}
	return out, nil
}

func (s *conversationService) peerSummary(ctx context.Context, uid string) model.UserSummary {
	if s.directory == nil {
		return model.UserSummary{UID: uid}
	}
	u, err := s.directory.Lookup(ctx, uid)
	if err != nil {
		s.log.Debug("peer lookup failed", "peer_id", uid, "err", err)
		return model.UserSummary{UID: uid}
	}
	return *u
}

func (s *conversationService) ListMessages(ctx context.Context, uid, convID string, afterSeq int64, limit int) ([]model.Message, error) {
	if _, err := s.participantOf(ctx, uid, convID); err != nil {
		return nil, err
	}
	if afterSeq < 0 {
		afterSeq = 0
	}
	msgs, err := s.repo.ListMessages(ctx, convID, afterSeq, clampLimit(limit, defaultMessagePage, maxMessagePage))
	if err != nil {
		return nil, storeErr("messages", err)
	}
	return msgs, nil
}

func (s *conversationService) participantOf(ctx context.Context, uid, convID string) (*model.Conversation, error) {
	if convID == "" {
		return nil, errs.Invalid("conversationId is required")
	}
	cv, err := s.repo.FindByID(ctx, convID)
	if err != nil {
		return nil, storeErr("conversation", err)
	}
	if !cv.HasParticipant(uid) {
		return nil, errs.Forbidden("not a participant")
	}
	return cv, nil
}
