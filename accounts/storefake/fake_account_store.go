package storefake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stonevalleypartners/auth-library/accounts"
)

var (
	_ accounts.Store     = (*FakeAccountStore)(nil)
	_ accounts.Registrar = (*FakeAccountStore)(nil)
)

// FakeAccountStore is an in-memory Store and Registrar for tests and demos.
type FakeAccountStore struct {
	byID        map[string]*accounts.Account
	emailIDs    map[string]string
	externalIDs map[string]string // provider + "/" + providerID -> account id
	lock        sync.RWMutex
}

func New() *FakeAccountStore {
	return &FakeAccountStore{
		byID:        make(map[string]*accounts.Account),
		emailIDs:    make(map[string]string),
		externalIDs: make(map[string]string),
	}
}

// Add upserts an account, assigning an id when absent.
func (s *FakeAccountStore) Add(account *accounts.Account) *accounts.Account {
	s.lock.Lock()
	defer s.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	s.byID[account.ID] = account
	if account.Email != "" {
		s.emailIDs[account.Email] = account.ID
	}
	if account.External.ProviderID != "" {
		s.externalIDs[externalKey(account.External.Provider, account.External.ProviderID)] = account.ID
	}
	return account
}

func (s *FakeAccountStore) LookupAccount(_ context.Context, q accounts.Query) (*accounts.Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	switch {
	case q.ID != "":
		return s.byID[q.ID], nil
	case q.Email != "":
		return s.byID[s.emailIDs[q.Email]], nil
	case q.ProviderID != "":
		return s.byID[s.externalIDs[externalKey(q.Provider, q.ProviderID)]], nil
	}
	return nil, nil
}

func (s *FakeAccountStore) UpdateRefreshTokens(_ context.Context, account *accounts.Account) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if stored, ok := s.byID[account.ID]; ok && stored != account {
		stored.RefreshTokens = append([]string(nil), account.RefreshTokens...)
	}
	return nil
}

func (s *FakeAccountStore) Save(ctx context.Context, account *accounts.Account) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.byID[account.ID] = account
	if account.Email != "" {
		s.emailIDs[account.Email] = account.ID
	}
	if account.External.ProviderID != "" {
		s.externalIDs[externalKey(account.External.Provider, account.External.ProviderID)] = account.ID
	}
	return nil
}

func (s *FakeAccountStore) RegisterExternalAccount(_ context.Context, ext accounts.External) (*accounts.Account, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	account := &accounts.Account{
		ID:       uuid.New().String(),
		Email:    ext.Email,
		External: ext,
	}
	s.byID[account.ID] = account
	if account.Email != "" {
		s.emailIDs[account.Email] = account.ID
	}
	s.externalIDs[externalKey(ext.Provider, ext.ProviderID)] = account.ID
	return account, nil
}

func externalKey(provider, providerID string) string {
	return provider + "/" + providerID
}
