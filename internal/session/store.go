// Package session persists the authenticated user's token and identity.
//
// Store is the only component that reads or writes the persisted session.
// The login flow and logout are its only writers; everything else consumes
// it through Current.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"client_go/internal/domain"
	"client_go/internal/security"
)

// Sealer encrypts values before they reach the state repository.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

type Store struct {
	repo   domain.StateRepository
	sealer Sealer
	now    func() time.Time

	mu      sync.RWMutex
	current *domain.Session
	loaded  bool
}

// NewStore builds a Store. A nil sealer stores the token in clear text,
// which is only suitable for the in-memory repository.
func NewStore(repo domain.StateRepository, sealer Sealer) *Store {
	return &Store{repo: repo, sealer: sealer, now: time.Now}
}

// Load reads the persisted session. It returns (nil, nil) when no session is
// stored, when either key is missing, when the token cannot be unsealed, or
// when the token has expired.
func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	sealed, ok, err := s.repo.Get(ctx, domain.StateKeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !ok || sealed == "" {
		s.remember(nil)
		return nil, nil
	}
	email, _, err := s.repo.Get(ctx, domain.StateKeyUserEmail)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	token := sealed
	if s.sealer != nil {
		if token, err = s.sealer.Open(sealed); err != nil {
			// Rotated key or corrupt row: the user has to log in again.
			log.Printf("session: stored token unreadable, treating as logged out: %v", err)
			s.remember(nil)
			return nil, nil
		}
	}

	sess, err := NewSession(token, email)
	if err != nil {
		return nil, err
	}
	if sess.UserIdentity == "" || sess.Expired(s.now()) {
		s.remember(nil)
		return nil, nil
	}
	s.remember(sess)
	return sess, nil
}

// Save persists token and identity together. Saving the same session twice
// leaves the store unchanged.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.Token == "" || sess.UserIdentity == "" {
		return fmt.Errorf("save session: %w", domain.ErrInvalidInput)
	}
	token := sess.Token
	if s.sealer != nil {
		var err error
		if token, err = s.sealer.Seal(sess.Token); err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
	}
	if err := s.repo.Put(ctx, map[string]string{
		domain.StateKeyAuthToken: token,
		domain.StateKeyUserEmail: sess.UserIdentity,
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	cp := *sess
	s.remember(&cp)
	return nil
}

// Clear removes token and identity together.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, domain.StateKeyAuthToken, domain.StateKeyUserEmail); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.remember(nil)
	return nil
}

// Current returns the session for an authenticated call, loading it on first
// use. It fails with domain.ErrUnauthenticated when there is none.
func (s *Store) Current(ctx context.Context) (*domain.Session, error) {
	s.mu.RLock()
	sess, loaded := s.current, s.loaded
	s.mu.RUnlock()

	if !loaded {
		var err error
		if sess, err = s.Load(ctx); err != nil {
			return nil, err
		}
	}
	if sess == nil || sess.Expired(s.now()) {
		return nil, domain.ErrUnauthenticated
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) remember(sess *domain.Session) {
	s.mu.Lock()
	s.current = sess
	s.loaded = true
	s.mu.Unlock()
}

// NewSession builds a session from a bearer token and the login email.
// The token's exp claim, when present, becomes the expiry; its sub claim
// only stands in for a missing email.
func NewSession(token, email string) (*domain.Session, error) {
	info, err := security.InspectToken(token)
	if err != nil {
		return nil, fmt.Errorf("inspect token: %w", err)
	}
	identity := strings.TrimSpace(email)
	if identity == "" {
		identity = info.Subject
	}
	return &domain.Session{
		Token:        token,
		UserIdentity: identity,
		ExpiresAt:    info.ExpiresAt,
	}, nil
}
