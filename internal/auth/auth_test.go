package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/blog-api/backend/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

var errDuplicate = errors.New("duplicate")

func (m *memUsers) CreateUser(_ context.Context, email, username, hashedPw string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Username == username {
			return nil, errDuplicate
		}
	}
	u := &models.User{
		ID:        int64(len(m.users) + 1),
		Email:     email,
		Username:  username,
		Password:  hashedPw,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func TestPasswordHashing(t *testing.T) {
	pwd := "super-secret"
	hash, err := HashPassword(pwd)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == pwd {
		t.Fatal("digest equals plaintext")
	}
	if !VerifyPassword(pwd, hash) {
		t.Fatal("verify failed for correct password")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("expected failure for wrong password")
	}
	again, _ := HashPassword(pwd)
	if again == hash {
		t.Fatal("expected salted digests to differ")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret")
	tok, err := issuer.Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sub, err := issuer.Resolve(tok)
	if err != nil || sub != "alice" {
		t.Fatalf("resolve = %q, %v", sub, err)
	}
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("s3cret")
	good, _ := issuer.Issue("alice", time.Minute)
	expired, _ := issuer.Issue("alice", -time.Minute)
	foreign, _ := NewTokenIssuer("other").Issue("alice", time.Minute)
	noSubject, _ := issuer.Issue("", time.Minute)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString([]byte("s3cret"))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]string{
		"expired":    expired,
		"foreign":    foreign,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"alg none":   unsigned,
		"tampered":   tampered,
		"garbage":    "not-a-token",
		"empty":      "",
	}
	for name, tok := range cases {
		if _, err := issuer.Resolve(tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	cases := []struct {
		email    string
		username string
		password string
		ok       bool
	}{
		{"user@example.com", "tester", "secret123", true},
		{"bad", "tester", "secret123", false},
		{"user@example.com", "", "secret123", false},
		{"user@example.com", "has space", "secret123", false},
		{"user@example.com", "tester", "", false},
	}
	for i, c := range cases {
		err := ValidateRegistration(c.email, c.username, c.password)
		if c.ok && err != nil {
			t.Fatalf("case %d expected ok, got err: %v", i, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := &memUsers{}
	svc := NewService(users, NewTokenIssuer("s3cret"), time.Minute, quietLogger())

	u, err := svc.Register(ctx, "a@example.com", "alice", "pw123456")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Password == "pw123456" || !VerifyPassword("pw123456", u.Password) {
		t.Fatal("stored password is not a matching digest")
	}
	if _, err := svc.Register(ctx, "a@example.com", "alice2", "pw"); !errors.Is(err, errDuplicate) {
		t.Fatalf("expected store conflict to surface, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "pw123456"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown user: %v", err)
	}

	tok, err := svc.Authenticate(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if tok.TokenType != "bearer" {
		t.Fatalf("token type = %q", tok.TokenType)
	}

	me, err := svc.CurrentUser(ctx, tok.AccessToken)
	if err != nil || me.ID != u.ID {
		t.Fatalf("current user = %+v, %v", me, err)
	}

	u.IsActive = false
	if _, err := svc.CurrentUser(ctx, tok.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("inactive user: %v", err)
	}
}

func TestCurrentUserUnknownSubject(t *testing.T) {
	issuer := NewTokenIssuer("s3cret")
	svc := NewService(&memUsers{}, issuer, time.Minute, quietLogger())
	tok, _ := issuer.Issue("ghost", time.Minute)
	if _, err := svc.CurrentUser(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
