package session

import (
	"encoding/json"
	"sync"

	"github.com/gvfbla/jobboard/internal/role"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	KeyToken = "authToken"
	KeyUser  = "currentUser"
)

// ErrCorrupted marks persisted session data that cannot be trusted. Restore
// heals it by clearing, so it never escapes this package.
var ErrCorrupted = errors.New("corrupted session state")

type Identity struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     role.Role `json:"role"`
	Email    string    `json:"email"`
}

// Anonymous is the unauthenticated sentinel returned by Current.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool {
	return i.ID != "" && i.Username != ""
}

func (i Identity) Capabilities() role.Capabilities {
	if !i.Authenticated() {
		return role.Capabilities{}
	}
	return role.PolicyFor(i.Role)
}

func (i Identity) Affordances() role.Affordances {
	if !i.Authenticated() {
		return role.AffordancesFor(role.Unauthenticated, false)
	}
	return role.AffordancesFor(i.Role, true)
}

// Storage is client-durable key/value storage. Put and Remove commit all
// given keys in a single write.
type Storage interface {
	Get(key string) (string, bool)
	Put(values map[string]string) error
	Remove(keys ...string) error
}

// corruptible is implemented by storages that can detect damage below the
// key level, e.g. an unreadable file.
type corruptible interface {
	Corrupted() bool
}

// Store holds who is acting now. Identity and credential are always set and
// cleared together.
type Store struct {
	mu         sync.RWMutex
	storage    Storage
	log        zerolog.Logger
	identity   Identity
	credential string
}

func NewStore(storage Storage, log zerolog.Logger) *Store {
	return &Store{storage: storage, log: log}
}

// Establish installs a freshly authenticated identity. A pair missing either
// half is treated as corrupted and forces a logout instead.
func (s *Store) Establish(identity Identity, credential string) {
	if credential == "" || !identity.Authenticated() {
		s.log.Warn().Str("username", identity.Username).Msg("refusing to establish partial session")
		s.Clear()
		return
	}
	buf, err := json.Marshal(identity)
	if err != nil {
		s.log.Error().Err(err).Msg("unable to encode identity")
		s.Clear()
		return
	}
	s.mu.Lock()
	s.identity = identity
	s.credential = credential
	s.mu.Unlock()
	if err := s.storage.Put(map[string]string{KeyToken: credential, KeyUser: string(buf)}); err != nil {
		s.log.Error().Err(err).Msg("unable to persist session")
	}
}

// Restore installs the persisted session if it is intact. Damaged state is
// wiped and the store starts unauthenticated. It reports whether a session
// was restored.
func (s *Store) Restore() bool {
	token, hasToken := s.storage.Get(KeyToken)
	raw, hasUser := s.storage.Get(KeyUser)
	damaged := false
	if c, ok := s.storage.(corruptible); ok {
		damaged = c.Corrupted()
	}
	if !hasToken && !hasUser && !damaged {
		s.set(Anonymous, "")
		return false
	}
	identity, err := decode(token, hasToken, raw, hasUser)
	if damaged {
		err = errors.Wrap(ErrCorrupted, "storage unreadable")
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("clearing persisted session")
		s.Clear()
		return false
	}
	s.set(identity, token)
	return true
}

func decode(token string, hasToken bool, raw string, hasUser bool) (Identity, error) {
	if !hasToken || !hasUser {
		return Anonymous, errors.Wrap(ErrCorrupted, "credential and identity must be persisted together")
	}
	if token == "" {
		return Anonymous, errors.Wrap(ErrCorrupted, "empty credential")
	}
	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return Anonymous, errors.Wrapf(ErrCorrupted, "unable to parse identity: %v", err)
	}
	if !identity.Authenticated() {
		return Anonymous, errors.Wrap(ErrCorrupted, "identity is missing id or username")
	}
	return identity, nil
}

// Clear drops the session in memory and in storage. Safe to call repeatedly.
func (s *Store) Clear() {
	s.set(Anonymous, "")
	if err := s.storage.Remove(KeyToken, KeyUser); err != nil {
		s.log.Error().Err(err).Msg("unable to remove persisted session")
	}
}

func (s *Store) set(identity Identity, credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.credential = credential
}

// Current returns the acting identity or Anonymous.
func (s *Store) Current() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

func (s *Store) Capabilities() role.Capabilities {
	return s.Current().Capabilities()
}
