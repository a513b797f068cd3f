package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/activity"
	"github.com/launchmena/catalogd/internal/domain"
	"github.com/launchmena/catalogd/internal/ratelimit"
)

// Credentials is the single configured admin account and the login policy.
type Credentials struct {
	Username      string
	PasswordHash  string
	MaxAttempts   int
	LockoutWindow time.Duration
}

// LoginRequest carries the submitted login form.
type LoginRequest struct {
	Username  string
	Password  string
	CSRFToken string
	ClientIP  string
}

// Authenticator runs the login and logout flows.
type Authenticator struct {
	creds    Credentials
	guard    *Guard
	limiter  ratelimit.Limiter
	verify   func(password, hash string) bool
	activity activity.Recorder
	now      func() time.Time
}

func NewAuthenticator(creds Credentials, guard *Guard, limiter ratelimit.Limiter, hasher *PasswordHasher, rec activity.Recorder) *Authenticator {
	if creds.PasswordHash == "" {
		zap.L().Warn("admin password hash is empty, every login will fail", zap.String("username", creds.Username))
	}
	return &Authenticator{
		creds:    creds,
		guard:    guard,
		limiter:  limiter,
		verify:   hasher.Verify,
		activity: rec,
		now:      guard.now,
	}
}

// Login verifies the CSRF token, then the client's rate limit, then the
// credentials. Every credential failure returns ErrInvalidCredentials.
// On success the session is logged in and its CSRF token rotated.
func (a *Authenticator) Login(ctx context.Context, sess *Session, req LoginRequest) error {
	if !a.guard.VerifyCSRFToken(sess, req.CSRFToken) {
		zap.L().Warn("login rejected: csrf token mismatch", zap.String("ip", req.ClientIP))
		return domain.ErrInvalidToken
	}

	res, err := a.limiter.CheckAndRecordAttempt(ctx, req.ClientIP, a.creds.MaxAttempts, a.creds.LockoutWindow)
	if err != nil {
		return &domain.StorageError{Op: "rate limit", Err: err}
	}
	if !res.Allowed {
		zap.L().Warn("login rejected: rate limited", zap.String("ip", req.ClientIP), zap.Duration("retry_after", res.RetryAfter))
		return &domain.RateLimitError{RetryAfter: res.RetryAfter}
	}

	username := req.Username
	if !a.checkCredentials(username, req.Password) {
		a.activity.Log(domain.Actor{Username: username, IP: req.ClientIP}, domain.ActionLoginFailed, "")
		return domain.ErrInvalidCredentials
	}

	if err := a.guard.rotateCSRFToken(sess); err != nil {
		return errors.Wrap(err, "rotate csrf token")
	}
	sess.LoggedIn = true
	sess.Username = username
	sess.LoginTime = a.now()

	a.activity.Log(sess.Actor(req.ClientIP), domain.ActionLogin, "")
	zap.L().Info("admin logged in", zap.String("username", username), zap.String("ip", req.ClientIP))
	return nil
}

// checkCredentials always runs bcrypt so an empty or wrong username costs the
// same as a wrong password. The username must match exactly.
func (a *Authenticator) checkCredentials(username, password string) bool {
	passOK := a.verify(password, a.creds.PasswordHash)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.creds.Username)) == 1
	return passOK && userOK && username != "" && password != ""
}

// Logout records the logout of a logged-in session and destroys it.
func (a *Authenticator) Logout(ctx context.Context, sess *Session, clientIP string) {
	if sess.LoggedIn {
		a.activity.Log(sess.Actor(clientIP), domain.ActionLogout, "Admin logged out")
		zap.L().Info("admin logged out", zap.String("username", sess.Username), zap.String("ip", clientIP))
	}
	sess.Destroy()
}
