// Package redisstore provides a Redis-backed accounts.Store for hosts that
// do not bring their own persistence layer.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/stonevalleypartners/auth-library/accounts"
)

// Config for the Redis-backed account store. Defaults can be loaded via
// envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: ACCOUNTS_KEY_PREFIX
	KeyPrefix string `env:"ACCOUNTS_KEY_PREFIX,default=authlib:accounts:"`
}

var (
	_ accounts.Store     = (*Store)(nil)
	_ accounts.Registrar = (*Store)(nil)
)

// Store keeps each account as a JSON document keyed by id, with secondary
// indexes for email and external-provider lookups.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

func New(cfg Config) (*Store, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "authlib:accounts:"
	}
	return &Store{client: client, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

// --- Key helpers ---

func (s *Store) accountKey(id string) string { return s.keyPrefix + "id:" + id }
func (s *Store) emailKey(email string) string {
	return s.keyPrefix + "email:" + email
}
func (s *Store) externalKey(provider, providerID string) string {
	return s.keyPrefix + "ext:" + provider + "/" + providerID
}

// storedAccount is the persisted document. Credential material and the
// retained token set are stored server-side only.
type storedAccount struct {
	ID            string            `json:"id"`
	Email         string            `json:"email,omitempty"`
	PasswordHash  string            `json:"password_hash,omitempty"`
	RefreshTokens []string          `json:"refresh_tokens,omitempty"`
	External      accounts.External `json:"external,omitempty"`
}

func (s *Store) LookupAccount(ctx context.Context, q accounts.Query) (*accounts.Account, error) {
	id := q.ID
	var err error
	switch {
	case id != "":
	case q.Email != "":
		id, err = s.resolve(ctx, s.emailKey(q.Email))
	case q.ProviderID != "":
		id, err = s.resolve(ctx, s.externalKey(q.Provider, q.ProviderID))
	default:
		return nil, nil
	}
	if err != nil || id == "" {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.accountKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get account: %w", err)
	}

	var doc storedAccount
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &accounts.Account{
		ID:            doc.ID,
		Email:         doc.Email,
		PasswordHash:  doc.PasswordHash,
		RefreshTokens: doc.RefreshTokens,
		External:      doc.External,
	}, nil
}

func (s *Store) UpdateRefreshTokens(ctx context.Context, account *accounts.Account) error {
	return s.Save(ctx, account)
}

func (s *Store) Save(ctx context.Context, account *accounts.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id required")
	}
	doc := storedAccount{
		ID:            account.ID,
		Email:         account.Email,
		PasswordHash:  account.PasswordHash,
		RefreshTokens: account.RefreshTokens,
		External:      account.External,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", account.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accountKey(account.ID), raw, 0)
	if account.Email != "" {
		pipe.Set(ctx, s.emailKey(account.Email), account.ID, 0)
	}
	if account.External.ProviderID != "" {
		pipe.Set(ctx, s.externalKey(account.External.Provider, account.External.ProviderID), account.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save account: %w", err)
	}
	return nil
}

func (s *Store) RegisterExternalAccount(ctx context.Context, ext accounts.External) (*accounts.Account, error) {
	account := &accounts.Account{
		ID:       uuid.New().String(),
		Email:    ext.Email,
		External: ext,
	}
	if err := s.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Store) resolve(ctx context.Context, indexKey string) (string, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis resolve index: %w", err)
	}
	return id, nil
}
