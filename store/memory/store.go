// Package memory is an in-process [pmsGuard.Store] for tests and single-node
// development. Guest token transitions are atomic under one mutex.
package memory

import (
	"context"
	"strings"
	"sync"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/permission"
	"github.com/google/uuid"
)

// Store keeps every record in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	principals   map[string]pmsGuard.PrincipalRecord
	byEmail      map[string]string
	roles        map[string][]string
	guests       map[string]pmsGuard.GuestToken
	authDisabled bool
	pingErr      error
}

var _ pmsGuard.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		principals: make(map[string]pmsGuard.PrincipalRecord),
		byEmail:    make(map[string]string),
		roles:      make(map[string][]string),
		guests:     make(map[string]pmsGuard.GuestToken),
	}
}

// NewWithDefaultRoles returns a store seeded with the built-in role table.
func NewWithDefaultRoles() *Store {
	s := New()
	for role, codes := range permission.DefaultRoles() {
		s.SetRolePermissions(role, codes)
	}
	return s
}

// PutPrincipal inserts or replaces a principal. An empty ID is assigned a
// random UUID. The stored record is returned.
func (s *Store) PutPrincipal(rec pmsGuard.PrincipalRecord) pmsGuard.PrincipalRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Email = normalizeEmail(rec.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.principals[rec.ID]; ok && old.Email != rec.Email {
		delete(s.byEmail, old.Email)
	}
	s.principals[rec.ID] = rec
	if rec.Email != "" {
		s.byEmail[rec.Email] = rec.ID
	}
	return rec
}

// SetRolePermissions replaces the codes granted to role.
func (s *Store) SetRolePermissions(role string, codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role] = append([]string(nil), codes...)
}

// SetPingError makes Ping fail with err; nil restores it.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *Store) GetPrincipal(_ context.Context, id string) (pmsGuard.PrincipalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.principals[id]
	if !ok {
		return pmsGuard.PrincipalRecord{}, pmsGuard.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetPrincipalByEmail(_ context.Context, email string) (pmsGuard.PrincipalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return pmsGuard.PrincipalRecord{}, pmsGuard.ErrNotFound
	}
	return s.principals[id], nil
}

func (s *Store) RolePermissions(_ context.Context, role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.roles[role]...), nil
}

func (s *Store) SaveTOTPSecret(_ context.Context, principalID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.principals[principalID]
	if !ok {
		return pmsGuard.ErrNotFound
	}
	rec.TOTPSecret = secret
	rec.TOTPEnabled = true
	s.principals[principalID] = rec
	return nil
}

// UpdatePasswordHash replaces the stored hash for principalID.
func (s *Store) UpdatePasswordHash(_ context.Context, principalID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.principals[principalID]
	if !ok {
		return pmsGuard.ErrNotFound
	}
	rec.PasswordHash = hash
	s.principals[principalID] = rec
	return nil
}

func (s *Store) ClearTOTPSecret(_ context.Context, principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.principals[principalID]
	if !ok || !rec.TOTPEnabled {
		return pmsGuard.ErrNotFound
	}
	rec.TOTPSecret = ""
	rec.TOTPEnabled = false
	s.principals[principalID] = rec
	return nil
}

func (s *Store) AuthDisabled(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authDisabled, nil
}

func (s *Store) SetAuthDisabled(_ context.Context, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authDisabled = disabled
	return nil
}

func (s *Store) GetGuestToken(_ context.Context, token string) (pmsGuard.GuestToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.guests[token]
	if !ok {
		return pmsGuard.GuestToken{}, pmsGuard.ErrNotFound
	}
	return rec, nil
}

func (s *Store) CreateGuestToken(_ context.Context, token pmsGuard.GuestToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.guests[token.Token]; exists {
		return pmsGuard.ErrStateConflict
	}
	s.guests[token.Token] = token
	return nil
}

func (s *Store) TransitionGuestToken(_ context.Context, token string, from, to pmsGuard.GuestTokenState) (pmsGuard.GuestToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.guests[token]
	if !ok {
		return pmsGuard.GuestToken{}, pmsGuard.ErrNotFound
	}
	if rec.State != from {
		return pmsGuard.GuestToken{}, pmsGuard.ErrStateConflict
	}
	rec.State = to
	s.guests[token] = rec
	return rec, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
