// Package session holds the signed-in admin's token and profile and ends
// the session when the backend rejects the token, when it expires, or on
// logout.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"regportal/internal/domain"
	"regportal/internal/localstore"
)

// Reason says why a session ended.
type Reason int

const (
	ReasonLogout Reason = iota + 1
	ReasonUnauthorized
	ReasonExpired
)

func (r Reason) String() string {
	switch r {
	case ReasonLogout:
		return "logout"
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonExpired:
		return "expired"
	}
	return "unknown"
}

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrForbidden        = errors.New("your role cannot open this page")
)

// Session is the admin session shared by every admin desk.
type Session struct {
	store localstore.Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu           sync.Mutex
	token        string
	admin        *domain.Admin
	expiresAt    time.Time
	ended        bool
	onInvalidate func(Reason)
	timer        *time.Timer
}

// New returns an empty session backed by store.
func New(store localstore.Store, log logrus.FieldLogger) *Session {
	return &Session{store: store, log: log, now: time.Now}
}

// OnInvalidate sets the callback run once when the session ends. The CLI
// uses it to send the user back to the login route.
func (s *Session) OnInvalidate(fn func(Reason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalidate = fn
}

// Load restores a session persisted by an earlier run. A missing token
// leaves the session signed out; an unreadable profile or an expired token
// clears the stored session.
func (s *Session) Load(ctx context.Context) error {
	tok, err := s.store.Get(ctx, localstore.KeyAdminToken)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read admin token")
	}

	raw, err := s.store.Get(ctx, localstore.KeyAdminData)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return errors.Wrap(err, "read admin profile")
	}
	var admin domain.Admin
	if err != nil || json.Unmarshal([]byte(raw), &admin) != nil || admin.Email == "" {
		s.log.Warn("stored admin profile unreadable, clearing session")
		return s.clearStore(ctx)
	}

	var exp time.Time
	if ms, err := s.store.Get(ctx, localstore.KeyAdminTokenExpiry); err == nil {
		if v, perr := strconv.ParseInt(ms, 10, 64); perr == nil {
			exp = time.UnixMilli(v)
		}
	}
	if !exp.IsZero() && !exp.After(s.now()) {
		s.log.Info("stored admin session expired")
		return s.clearStore(ctx)
	}

	s.mu.Lock()
	s.token, s.admin, s.expiresAt, s.ended = tok, &admin, exp, false
	s.mu.Unlock()
	return nil
}

// Establish starts a new session and persists it.
func (s *Session) Establish(ctx context.Context, token string, admin domain.Admin, expiresAt time.Time) error {
	profile, err := json.Marshal(admin)
	if err != nil {
		return errors.Wrap(err, "encode admin profile")
	}
	if err := s.store.Set(ctx, localstore.KeyAdminToken, token); err != nil {
		return errors.Wrap(err, "store admin token")
	}
	if err := s.store.Set(ctx, localstore.KeyAdminData, string(profile)); err != nil {
		return errors.Wrap(err, "store admin profile")
	}
	if err := s.store.Set(ctx, localstore.KeyAdminTokenExpiry, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		return errors.Wrap(err, "store token expiry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.token, s.admin, s.expiresAt, s.ended = token, &admin, expiresAt, false
	return nil
}

// Token is the bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Admin is the signed-in admin.
func (s *Session) Admin() (domain.Admin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admin == nil {
		return domain.Admin{}, false
	}
	return *s.admin, true
}

// ExpiresAt is when the token stops being valid; zero if unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Require returns the admin if one is signed in with one of roles.
// No roles means any signed-in admin.
func (s *Session) Require(roles ...domain.AdminRole) (domain.Admin, error) {
	a, ok := s.Admin()
	if !ok {
		return domain.Admin{}, ErrNotAuthenticated
	}
	if len(roles) == 0 {
		return a, nil
	}
	for _, r := range roles {
		if a.Role == r {
			return a, nil
		}
	}
	return domain.Admin{}, ErrForbidden
}

// Unauthorized ends the session after the backend rejected the token.
// Concurrent calls end it once.
func (s *Session) Unauthorized() { s.end(ReasonUnauthorized) }

// Logout ends the session at the user's request.
func (s *Session) Logout() { s.end(ReasonLogout) }

// WatchExpiry ends the session when the token expires.
func (s *Session) WatchExpiry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	if s.admin == nil || s.expiresAt.IsZero() {
		return
	}
	left := s.expiresAt.Sub(s.now())
	s.log.WithField("expires_in", left.Round(time.Second)).Debug("watching admin token expiry")
	s.timer = time.AfterFunc(left, func() { s.end(ReasonExpired) })
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) end(reason Reason) {
	s.mu.Lock()
	if s.ended || s.admin == nil {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.token, s.admin, s.expiresAt = "", nil, time.Time{}
	s.stopTimerLocked()
	cb := s.onInvalidate
	s.mu.Unlock()

	if err := s.clearStore(context.Background()); err != nil {
		s.log.WithError(err).Error("clearing stored session")
	}
	s.log.WithField("reason", reason).Info("admin session ended")
	if cb != nil {
		cb(reason)
	}
}

func (s *Session) clearStore(ctx context.Context) error {
	return errors.Wrap(s.store.Delete(ctx,
		localstore.KeyAdminToken,
		localstore.KeyAdminData,
		localstore.KeyAdminTokenExpiry,
	), "clear stored session")
}
