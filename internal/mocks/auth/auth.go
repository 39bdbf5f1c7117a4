package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight, stateful, and suitable for unit tests that exercise
// multi-step flows (begin/complete/poll, rotation chains) where gomock
// expectation scripts get unwieldy.

import (
	"context"
	"sync"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
	apperrors "github.com/eduhub/authbroker/internal/errors"
	"github.com/eduhub/authbroker/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.OAuthProvider     = (*FakeProvider)(nil)
	_ ports.UserStore         = (*MemoryUserStore)(nil)
	_ ports.PendingLoginStore = (*MemoryPendingStore)(nil)
	_ ports.RevocationStore   = (*MemoryRevocationStore)(nil)
)

// FakeProvider simulates an OAuth provider with deterministic results.
type FakeProvider struct {
	ProviderName string
	Identity     domainauth.Identity
	ExchangeErr  error

	mu            sync.Mutex
	exchangeCalls []string
}

// NewFakeProvider returns a provider named "fake" yielding a fixed identity.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		ProviderName: "fake",
		Identity: domainauth.Identity{
			Provider:    "fake",
			ExternalID:  "42",
			Login:       "tester",
			Email:       "tester@example.com",
			DisplayName: "Test User",
		},
	}
}

func (p *FakeProvider) Name() string {
	if p.ProviderName == "" {
		return "fake"
	}
	return p.ProviderName
}

func (p *FakeProvider) AuthURL(state string) string {
	return "https://fake-idp/authorize?state=" + state
}

func (p *FakeProvider) Exchange(_ context.Context, code string) (domainauth.Identity, error) {
	p.mu.Lock()
	p.exchangeCalls = append(p.exchangeCalls, code)
	p.mu.Unlock()

	if p.ExchangeErr != nil {
		return domainauth.Identity{}, p.ExchangeErr
	}
	return p.Identity, nil
}

// ExchangeCalls returns the codes Exchange was invoked with.
func (p *FakeProvider) ExchangeCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.exchangeCalls...)
}

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]domainauth.User
}

// NewMemoryUserStore returns an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]domainauth.User)}
}

// Seed inserts or replaces a user record directly.
func (s *MemoryUserStore) Seed(user domainauth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = user
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (domainauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return domainauth.User{}, apperrors.NotFoundf("user %s not found", email)
	}
	return cloneUser(user), nil
}

func (s *MemoryUserStore) CreateIfAbsent(_ context.Context, user domainauth.User) (domainauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.Email]; ok {
		return cloneUser(existing), nil
	}
	s.users[user.Email] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryUserStore) SetRefreshToken(_ context.Context, email, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return apperrors.NotFoundf("user %s not found", email)
	}
	user.RefreshToken = token
	s.users[email] = user
	return nil
}

func cloneUser(u domainauth.User) domainauth.User {
	u.Roles = append([]domainauth.Role(nil), u.Roles...)
	return u
}

// MemoryPendingStore is an in-memory PendingLoginStore with the same
// first-completion-wins and consume-once semantics as the redis adapter,
// minus TTL expiry.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]domainauth.PendingLogin
}

// NewMemoryPendingStore returns an empty store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{entries: make(map[string]domainauth.PendingLogin)}
}

func (s *MemoryPendingStore) Begin(_ context.Context, token, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = domainauth.PendingLogin{
		Status:   domainauth.StatusPending,
		Provider: provider,
	}
	return nil
}

func (s *MemoryPendingStore) Complete(_ context.Context, token string, bundle domainauth.TokenBundle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok || entry.Status != domainauth.StatusPending {
		return false, nil
	}
	entry.Status = domainauth.StatusCompleted
	entry.Bundle = &bundle
	s.entries[token] = entry
	return true, nil
}

func (s *MemoryPendingStore) Consume(_ context.Context, token string) (domainauth.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return domainauth.PendingLogin{}, apperrors.NotFound("unknown login attempt")
	}
	if entry.Status == domainauth.StatusCompleted {
		delete(s.entries, token)
	}
	return entry, nil
}

func (s *MemoryPendingStore) Abandon(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[token]; ok && entry.Status == domainauth.StatusPending {
		delete(s.entries, token)
	}
	return nil
}

// MemoryRevocationStore is an in-memory RevocationStore.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

// NewMemoryRevocationStore returns an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]struct{})}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok, nil
}

func (s *MemoryRevocationStore) Claim(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return false, nil
	}
	if _, ok := s.revoked[token]; ok {
		return false, nil
	}
	s.revoked[token] = struct{}{}
	return true, nil
}
