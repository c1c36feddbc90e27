// Package auth issues and validates admin session tokens. The original
// deployment used a server-side session flag; here the admin logs in with the
// configured credentials and receives a signed JWT carried on /admin requests.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
	"github.com/pych2536/rpca70/pkg/secrets"
)

// SessionClaims are the claims carried by an admin session token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service verifies admin credentials and manages session tokens.
type Service struct {
	signingKey   []byte
	sessionTTL   time.Duration
	username     string
	passwordHash string
	now          func() time.Time
}

// NewService constructs the auth service. The admin password is hashed once
// at startup; the plaintext is not retained.
func NewService(signingKey, username, password string, sessionTTL time.Duration) (*Service, error) {
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	return &Service{
		signingKey:   []byte(signingKey),
		sessionTTL:   sessionTTL,
		username:     username,
		passwordHash: hash,
		now:          time.Now,
	}, nil
}

// Login checks the credentials and returns a signed session token.
func (s *Service) Login(username, password string) (string, error) {
	// Constant-time username comparison; bcrypt handles the password.
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := secrets.Verify(password, s.passwordHash)
	if !userOK || passErr != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign session token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing session token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session claims")
	}
	return claims, nil
}
