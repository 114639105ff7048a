package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the JWT claim set shared by both token classes.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies access/refresh token pairs. Each class is
// signed with its own secret so a leaked access secret cannot forge refresh
// tokens, and vice versa. Verification is stateless: validity is determined
// solely by signature and expiry.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// TokensOption configures Tokens behavior.
type TokensOption func(*Tokens)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
	}
}

// WithIssuer sets the issuer claim embedded into signed tokens.
func WithIssuer(issuer string) TokensOption {
	return func(t *Tokens) {
		t.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokensOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokens constructs a token service over the two class secrets.
func NewTokens(accessSecret, refreshSecret []byte, opts ...TokensOption) *Tokens {
	t := &Tokens{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AccessTTL reports the configured access token lifetime.
func (t *Tokens) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// Issue signs the payload into a fresh token pair. Pure computation, no
// side effects.
func (t *Tokens) Issue(payload Payload) (TokenPair, error) {
	access, err := t.sign(payload, t.accessSecret, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(payload, t.refreshSecret, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token and returns its payload. Every
// verification failure collapses to ErrInvalidToken; the cause is never
// distinguished to the caller.
func (t *Tokens) VerifyAccess(token string) (Payload, error) {
	return t.verify(token, t.accessSecret)
}

// VerifyRefresh validates a refresh token against the refresh secret.
func (t *Tokens) VerifyRefresh(token string) (Payload, error) {
	return t.verify(token, t.refreshSecret)
}

// Rotate verifies a refresh token and issues a new pair from its payload.
// The old refresh token is not invalidated server-side; the verified payload
// is returned so the caller can re-confirm the subject still exists.
func (t *Tokens) Rotate(refreshToken string) (TokenPair, Payload, error) {
	payload, err := t.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, Payload{}, ErrInvalidRefreshToken
	}
	pair, err := t.Issue(payload)
	if err != nil {
		return TokenPair{}, Payload{}, err
	}
	return pair, payload, nil
}

func (t *Tokens) sign(payload Payload, secret []byte, ttl time.Duration) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID: payload.UserID,
		Email:  payload.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   payload.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (t *Tokens) verify(token string, secret []byte) (Payload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Payload{}, ErrInvalidToken
	}
	parser := jwt.NewParser(jwt.WithTimeFunc(t.now))
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return Payload{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Payload{}, ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return Payload{}, ErrInvalidToken
	}
	if claims.UserID <= 0 || strings.TrimSpace(claims.Email) == "" {
		return Payload{}, ErrInvalidToken
	}
	return Payload{UserID: claims.UserID, Email: claims.Email}, nil
}
