package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/launchmena/catalogd/internal/domain"
)

const csrfTokenBytes = 32

// Session is the server-side state of one admin browser session. The web
// layer loads it from the session store before a request and saves it after.
type Session struct {
	LoggedIn  bool
	Username  string
	LoginTime time.Time
	CSRFToken string

	destroyed bool
}

// Destroy clears all state and marks the session for removal from the store.
func (s *Session) Destroy() {
	*s = Session{destroyed: true}
}

// Destroyed reports whether the session must be removed from the store.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Actor identifies the session user for the activity log.
func (s *Session) Actor(clientIP string) domain.Actor {
	return domain.Actor{Username: s.Username, IP: clientIP}
}

// Guard enforces login state, idle timeout and CSRF tokens.
type Guard struct {
	timeout time.Duration
	now     func() time.Time
}

// NewGuard creates a guard expiring sessions idle for longer than timeout.
func NewGuard(timeout time.Duration, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{timeout: timeout, now: now}
}

// Timeout is the idle timeout.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// EnsureAuthenticated requires a logged-in session that has not been idle
// for longer than the timeout, and slides the expiry forward on success.
// An expired session is destroyed.
func (g *Guard) EnsureAuthenticated(s *Session) error {
	if s == nil || !s.LoggedIn {
		return domain.ErrUnauthenticated
	}
	now := g.now()
	if s.LoginTime.IsZero() || now.Sub(s.LoginTime) > g.timeout {
		s.Destroy()
		return domain.ErrSessionExpired
	}
	s.LoginTime = now
	return nil
}

// IssueCSRFToken returns the session's token, generating one on first use.
func (g *Guard) IssueCSRFToken(s *Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.CSRFToken = token
	return token, nil
}

// VerifyCSRFToken compares submitted against the session token in constant time.
func (g *Guard) VerifyCSRFToken(s *Session, submitted string) bool {
	if s == nil || s.CSRFToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(submitted)) == 1
}

// rotateCSRFToken replaces the token unconditionally.
func (g *Guard) rotateCSRFToken(s *Session) error {
	for {
		token, err := newToken()
		if err != nil {
			return err
		}
		if token != s.CSRFToken {
			s.CSRFToken = token
			return nil
		}
	}
}

var errNoEntropy = errors.New("csrf: random source unavailable")

func newToken() (string, error) {
	key := securecookie.GenerateRandomKey(csrfTokenBytes)
	if key == nil {
		return "", errNoEntropy
	}
	return hex.EncodeToString(key), nil
}
