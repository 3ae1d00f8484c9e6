// Package session keeps authenticated dashboard sessions on the server side.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a login stays valid.
const DefaultTTL = 24 * time.Hour

// CookieName is the cookie carrying the session token.
const CookieName = "ungrd_auth"

// HintVersion is the hint key under which the last seen app version is kept.
const HintVersion = "appVersion"

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

type Session struct {
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether s is a usable session at now. It has no side effects.
func Valid(s Session, now time.Time) bool {
	if s.Token == "" || strings.TrimSpace(s.Email) == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Store persists sessions and small string hints.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
	// Purge removes sessions expired at now and returns how many were removed.
	Purge(ctx context.Context, now time.Time) (int, error)
	SetHint(ctx context.Context, key, value string) error
	Hint(ctx context.Context, key string) (string, error)
}

// Service issues and resolves sessions on top of a Store.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Store exposes the underlying store for hint access.
func (s *Service) Store() Store { return s.store }

func (s *Service) TTL() time.Duration { return s.ttl }

// Create issues a new session for email.
func (s *Service) Create(ctx context.Context, email string, isAdmin bool) (Session, error) {
	now := s.now()
	sess := Session{
		Token:     uuid.NewString(),
		Email:     strings.TrimSpace(email),
		IsAdmin:   isAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Resolve returns the live session for token. Expired sessions are deleted
// and reported as ErrExpired.
func (s *Service) Resolve(ctx context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrNotFound
	}
	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !Valid(sess, s.now()) {
		if err := s.store.Delete(ctx, token); err != nil {
			return Session{}, err
		}
		return Session{}, ErrExpired
	}
	return sess, nil
}

// SetAdmin records a successful admin check on an existing session.
func (s *Service) SetAdmin(ctx context.Context, sess Session, admin bool) (Session, error) {
	sess.IsAdmin = admin
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) Destroy(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

// Purge drops every session already expired.
func (s *Service) Purge(ctx context.Context) (int, error) {
	return s.store.Purge(ctx, s.now())
}
