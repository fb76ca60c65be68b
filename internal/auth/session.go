// Package auth is the native authentication collaborator: it owns the
// session, persists it in the OS keyring, refreshes tokens against the
// backend, and notifies subscribers of session changes. The bridge core
// only ever reads snapshots from here.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stridefit/stride/internal/credentials"
)

var ErrNotFound = errors.New("auth: no stored session")

// Session is the authentication state of the signed-in user. Created on
// sign-in, replaced on token refresh, destroyed on sign-out.
type Session struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresInMs  int64  `json:"expires_in_ms,omitempty"`
}

// Store persists the session snapshot across launches.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Delete() error
}

// KeyringStore keeps the session in the OS keyring.
type KeyringStore struct{}

func (KeyringStore) Load() (Session, error) {
	raw, err := credentials.LoadSession()
	if err != nil {
		return Session{}, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (KeyringStore) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return credentials.StoreSession(string(data))
}

func (KeyringStore) Delete() error {
	credentials.DeleteSession()
	return nil
}

// MemoryStore holds the session in memory only. Used in tests and for
// dev runs without a keyring daemon.
type MemoryStore struct {
	mu   sync.Mutex
	sess *Session
}

func (s *MemoryStore) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return Session{}, ErrNotFound
	}
	return *s.sess, nil
}

func (s *MemoryStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = &sess
	return nil
}

func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}
