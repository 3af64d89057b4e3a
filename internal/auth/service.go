package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/blog-api/backend/internal/models"
)

var (
	ErrUnauthorized = errors.New("could not validate credentials")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[\p{L}0-9_.-]{1,50}$`)
)

// UserStore defines the user persistence the auth service relies on.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, hashedPw string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service registers users, exchanges credentials for tokens and resolves
// tokens back to users.
type Service struct {
	users  UserStore
	tokens *TokenIssuer
	ttl    time.Duration
	log    *logrus.Logger
}

func NewService(users UserStore, tokens *TokenIssuer, ttl time.Duration, log *logrus.Logger) *Service {
	return &Service{users: users, tokens: tokens, ttl: ttl, log: log}
}

// ValidateRegistration checks the registration fields.
func ValidateRegistration(email, username, password string) error {
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username must be 1-50 letters, digits, '_', '.' or '-'", ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}

// Register creates a user with a hashed password. A duplicate email or
// username surfaces the store's conflict error unchanged.
func (s *Service) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	if err := ValidateRegistration(email, username, password); err != nil {
		return nil, err
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, email, username, hashed)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Authenticate checks username/password and issues a bearer token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.Token, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !VerifyPassword(password, user.Password) {
		return nil, ErrUnauthorized
	}
	token, err := s.tokens.Issue(user.Username, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.Token{AccessToken: token, TokenType: "bearer"}, nil
}

// CurrentUser resolves a bearer token to an active user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	username, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}
