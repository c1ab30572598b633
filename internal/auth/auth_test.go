package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "campus", 0)
	tok, err := v.Sign("alice", RoleAdmin, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "alice" || !id.IsAdmin() {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	v := NewJWTVerifier("secret", "", 0)
	expired, _ := v.Sign("alice", "", -time.Minute)
	foreign, _ := NewJWTVerifier("other", "", 0).Sign("alice", "", time.Minute)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "alice"}).SignedString([]byte("secret"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte("secret"))

	tests := map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"bad sig":    foreign,
		"no expiry":  noExp,
		"no subject": noSubject,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("err=%v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestJWTVerifierIssuer(t *testing.T) {
	v := NewJWTVerifier("secret", "campus", 0)
	tok, _ := NewJWTVerifier("secret", "elsewhere", 0).Sign("alice", "", time.Minute)
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("foreign issuer accepted: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		query     string
		want      string
		wantQuery string
	}{
		{"header", "Bearer abc", "", "abc", "abc"},
		{"query", "", "token=xyz", "", "xyz"},
		{"header wins", "Bearer abc", "token=xyz", "abc", "abc"},
		{"wrong scheme", "Basic abc", "token=xyz", "", ""},
		{"none", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws?"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Fatalf("BearerToken got %q want %q", got, tt.want)
			}
			if got := BearerOrQueryToken(r); got != tt.wantQuery {
				t.Fatalf("BearerOrQueryToken got %q want %q", got, tt.wantQuery)
			}
		})
	}
}

type fakeFirebase struct {
	token *fbauth.Token
	user  *fbauth.UserRecord
	err   error
}

func (f *fakeFirebase) VerifyIDToken(context.Context, string) (*fbauth.Token, error) {
	return f.token, f.err
}

func (f *fakeFirebase) GetUser(context.Context, string) (*fbauth.UserRecord, error) {
	return f.user, f.err
}

func TestFirebaseVerify(t *testing.T) {
	fb := &Firebase{client: &fakeFirebase{token: &fbauth.Token{UID: "u1", Claims: map[string]interface{}{"role": "admin"}}}}
	id, err := fb.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != "u1" || id.Role != "admin" {
		t.Fatalf("unexpected identity %+v", id)
	}

	fb = &Firebase{client: &fakeFirebase{err: errors.New("token expired")}}
	if _, err := fb.Verify(context.Background(), "tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err=%v", err)
	}
}

func TestFirebaseLookup(t *testing.T) {
	fb := &Firebase{client: &fakeFirebase{user: &fbauth.UserRecord{UserInfo: &fbauth.UserInfo{UID: "u1", DisplayName: "Ann", PhotoURL: "p"}}}}
	u, err := fb.Lookup(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.UID != "u1" || u.DisplayName != "Ann" {
		t.Fatalf("unexpected user %+v", u)
	}
}
