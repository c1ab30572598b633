// Package auth resolves bearer credentials into identities.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/model"
)

const RoleAdmin = "admin"

var (
	// ErrUnauthenticated wraps every Verify failure.
	ErrUnauthenticated = errs.ErrUnauthenticated
	ErrUserNotFound    = errors.New("user not found")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Verifier validates a bearer credential (signature and expiry). Failures
// wrap ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Directory looks up public user profiles.
type Directory interface {
	Lookup(ctx context.Context, uid string) (*model.UserSummary, error)
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}

// BearerOrQueryToken also accepts the token query parameter. Browser
// WebSocket clients cannot set headers, so only the upgrade handshake uses it.
func BearerOrQueryToken(r *http.Request) string {
	if r.Header.Get("Authorization") != "" {
		return BearerToken(r)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
