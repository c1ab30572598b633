package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/shinyyama/campusconnect/internal/model"
	"google.golang.org/api/option"
)

type firebaseClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// Firebase verifies Firebase ID tokens and serves the user directory from
// Firebase Auth. The role comes from the "role" custom claim.
type Firebase struct {
	client firebaseClient
}

func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}
	t, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	role, _ := t.Claims["role"].(string)
	return Identity{UserID: t.UID, Role: role}, nil
}

func (f *Firebase) Lookup(ctx context.Context, uid string) (*model.UserSummary, error) {
	u, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &model.UserSummary{UID: u.UID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}, nil
}
