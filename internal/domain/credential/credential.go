// Package credential stores provider API keys encrypted at rest, used as
// a fallback when a key is not supplied through the environment.
package credential

import (
	"context"
	"time"

	"model-manager/internal/domain/provider"
	"model-manager/internal/utils/crypto"
)

// Credential is one provider API key. APIKey is plaintext in memory and
// ciphertext in storage.
type Credential struct {
	Provider  string
	APIKey    string
	UpdatedAt time.Time
}

type Repository interface {
	Upsert(ctx context.Context, providerName, encryptedKey string) error
	Find(ctx context.Context, providerName string) (string, time.Time, error)
	Providers(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, providerName string) error
}

// Store encrypts keys before they hit the repository.
type Store struct {
	repo   Repository
	secret string
}

func NewStore(repo Repository, secret string) *Store {
	return &Store{repo: repo, secret: secret}
}

func (s *Store) Put(ctx context.Context, providerName, apiKey string) error {
	if providerName == "" || apiKey == "" {
		return provider.NewValidationError("provider and api_key are required")
	}
	encrypted, err := crypto.EncryptString(s.secret, apiKey)
	if err != nil {
		return provider.NewError(providerName, provider.KindStorage, "failed to encrypt credential", err)
	}
	return s.repo.Upsert(ctx, providerName, encrypted)
}

// Get returns the decrypted key, or "" when none is stored.
func (s *Store) Get(ctx context.Context, providerName string) (string, error) {
	encrypted, _, err := s.repo.Find(ctx, providerName)
	if err != nil {
		return "", err
	}
	if encrypted == "" {
		return "", nil
	}
	plaintext, err := crypto.DecryptString(s.secret, encrypted)
	if err != nil {
		return "", provider.NewError(providerName, provider.KindStorage, "failed to decrypt credential", err)
	}
	return plaintext, nil
}

func (s *Store) Providers(ctx context.Context) ([]string, error) {
	return s.repo.Providers(ctx)
}

func (s *Store) Delete(ctx context.Context, providerName string) error {
	return s.repo.Delete(ctx, providerName)
}
