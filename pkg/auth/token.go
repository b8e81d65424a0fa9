package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderAuthorization is the header every protected request carries
const HeaderAuthorization = "Authorization"

const bearerPrefix = "Bearer "

var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims represents the JWT claims the API puts in its access tokens
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// BearerHeader builds the authorization header for token
func BearerHeader(token string) http.Header {
	header := make(http.Header)
	header.Set(HeaderAuthorization, bearerPrefix+token)
	return header
}

// TokenFromHeader extracts the bearer token from header, or "" when absent
func TokenFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	value := strings.TrimSpace(header.Get(HeaderAuthorization))
	if !strings.HasPrefix(value, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(value, bearerPrefix))
}

// ParseUnverified reads the claims of tokenString without checking its
// signature. The client never holds the signing key; the claims are only
// used to learn the expiry early, the API stays the authority.
func ParseUnverified(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, bearerPrefix))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

// Expiry returns the exp claim of tokenString. Opaque tokens report false.
func Expiry(tokenString string) (time.Time, bool) {
	claims, err := ParseUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Signer issues and validates HS256 tokens. Only the development API uses it.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSigner creates a signer for the given shared secret
func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("secret key required for HS256")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token for the given identity
func (s *Signer) Issue(userID int64, username, email, role string, now time.Time) (string, error) {
	claims := Claims{
		Email:    email,
		Username: username,
		Role:     role,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks signature and expiry and returns the claims
func (s *Signer) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, bearerPrefix))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
