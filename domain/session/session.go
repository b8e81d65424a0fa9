package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ideaclient/pkg/auth"
)

// DefaultLifetime is how long a persisted session is kept, fixed at write time
const DefaultLifetime = 30 * 24 * time.Hour

var (
	// ErrEmptyToken is returned when the API answers a login without a token
	ErrEmptyToken = errors.New("session token is empty")
	// ErrMalformed is returned when a persisted blob cannot be decoded
	ErrMalformed = errors.New("persisted session is malformed")
)

// Credentials is the body of POST auth/login
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Profile is the body of POST auth/register
type Profile struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// TokenResponse is what the auth endpoints return
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// Identity is the user a session belongs to
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// Session is the authenticated identity and bearer token held by the client.
// A non-nil Session always carries a non-empty token.
type Session struct {
	Identity    Identity  `json:"identity"`
	Token       string    `json:"token"`
	TokenType   string    `json:"token_type,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
}

// New builds a session from an auth response. ExpiresAt is issuedAt plus
// lifetime; when the token is a JWT its exp claim is recorded as well.
func New(resp TokenResponse, issuedAt time.Time, lifetime time.Duration) (*Session, error) {
	token := strings.TrimSpace(resp.AccessToken)
	if token == "" {
		return nil, ErrEmptyToken
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	s := &Session{
		Identity: Identity{
			UserID:   resp.UserID,
			Username: resp.Username,
			Email:    resp.Email,
			Role:     resp.Role,
		},
		Token:     token,
		TokenType: resp.TokenType,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(lifetime),
	}

	if exp, ok := auth.Expiry(token); ok {
		s.TokenExpiry = exp
	}

	return s, nil
}

// Expired reports whether the session may no longer be used at now
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return true
	}
	if !s.TokenExpiry.IsZero() && !now.Before(s.TokenExpiry) {
		return true
	}
	return false
}

// Clone returns a copy of s; nil stays nil
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Encode serializes the session for storage
func (s *Session) Encode() ([]byte, error) {
	if s == nil || s.Token == "" {
		return nil, ErrEmptyToken
	}
	return json.Marshal(s)
}

// Decode parses a persisted blob. Anything that does not decode into a
// session with a token is reported as ErrMalformed.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if strings.TrimSpace(s.Token) == "" {
		return nil, ErrMalformed
	}
	return &s, nil
}
