package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token issued at login. The engine never mints or
// verifies tokens, that is the server's job, but it does inspect the expiry
// claim so a dead session fails fast instead of looping on 401s.
type Session struct {
	token     string
	expiresAt time.Time
}

func NewSession(token string) *Session {
	s := &Session{token: token}

	// Opaque (non-JWT) tokens are accepted as-is; the server is the judge.
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.expiresAt = exp.Time
		}
	}
	return s
}

func (s *Session) Token() string {
	return s.token
}

// Valid reports whether the session can still be presented to the server.
func (s *Session) Valid() error {
	if s.token == "" {
		return fmt.Errorf("session: no token")
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return fmt.Errorf("session: token expired at %s", s.expiresAt.Format(time.RFC3339))
	}
	return nil
}
