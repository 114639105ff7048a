package auth

import (
	"context"
	"errors"
	"strings"
)

// Service orchestrates registration, login and token refresh against the
// credential store. It is the only place business rules about credentials
// live; everything it returns to callers is sanitized.
type Service struct {
	store      UserStore
	tokens     *Tokens
	bcryptCost int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithBcryptCost overrides the password hashing work factor (tests use a low
// cost to stay fast).
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// NewService constructs the session controller.
func NewService(store UserStore, tokens *Tokens, opts ...ServiceOption) *Service {
	s := &Service{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens exposes the underlying token service for access-token verification
// in middleware.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a user and issues a token pair. Fails with ErrUserExists
// when the email is taken; a concurrent duplicate insert resolves at the
// store's unique constraint and reports the same error.
func (s *Service) Register(ctx context.Context, email, password string) (UserInfo, TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return UserInfo{}, TokenPair{}, ErrInvalidInput
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return UserInfo{}, TokenPair{}, withEmail(ErrUserExists, email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return UserInfo{}, TokenPair{}, err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	u := &User{Email: email, PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		return UserInfo{}, TokenPair{}, err
	}

	// Re-fetch so the returned projection reflects exactly what was stored.
	stored, err := s.store.Find(ctx, u.ID)
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	info := stored.Info()

	pair, err := s.tokens.Issue(Payload{UserID: info.ID, Email: info.Email})
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	return info, pair, nil
}

// Login verifies credentials and issues a token pair. An unknown email fails
// with ErrUserNotFound, a wrong password with ErrInvalidCredentials; the two
// are deliberately reported separately.
func (s *Service) Login(ctx context.Context, email, password string) (UserInfo, TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return UserInfo{}, TokenPair{}, ErrInvalidInput
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return UserInfo{}, TokenPair{}, ErrInvalidCredentials
	}

	info := user.Info()
	pair, err := s.tokens.Issue(Payload{UserID: info.ID, Email: info.Email})
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	return info, pair, nil
}

// Refresh rotates a refresh token and re-confirms the subject still exists.
// Cryptographic validity alone is not enough: a user deleted after issuance
// fails with ErrUserNotFound.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (UserInfo, TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return UserInfo{}, TokenPair{}, ErrNoRefreshToken
	}

	pair, payload, err := s.tokens.Rotate(refreshToken)
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}

	user, err := s.store.Find(ctx, payload.UserID)
	if err != nil {
		return UserInfo{}, TokenPair{}, err
	}
	return user.Info(), pair, nil
}
