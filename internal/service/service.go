package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/repository"
)

// Pusher delivers events to live connections. SendTo returns an error
// wrapping errs.ErrNotConnected when the user has no live connection.
type Pusher interface {
	SendTo(userID string, ev event.Event) error
	Broadcast(ev event.Event) int
}

func push(log *slog.Logger, p Pusher, userID string, ev event.Event) {
	if p == nil || userID == "" {
		return
	}
	err := p.SendTo(userID, ev)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotConnected):
		log.Debug("recipient offline", "user_id", userID, "event", ev.Name)
	default:
		log.Warn("push failed", "user_id", userID, "event", ev.Name, "err", err)
	}
}

// storeErr maps repository errors onto the taxonomy; what names the record.
func storeErr(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", errs.ErrPersistence, what, err)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// withShortDeadline bounds work done on behalf of a caller that must not wait.
// The caller's cancellation is dropped so a finished request does not abort it.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
}
