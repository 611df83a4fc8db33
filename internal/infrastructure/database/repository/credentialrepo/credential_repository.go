package credentialrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"model-manager/internal/domain/credential"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/database/dbschema"
)

// CredentialGormRepository implements credential.Repository using GORM.
type CredentialGormRepository struct {
	db *gorm.DB
}

var _ credential.Repository = (*CredentialGormRepository)(nil)

// NewCredentialGormRepository constructs a new repository.
func NewCredentialGormRepository(db *gorm.DB) credential.Repository {
	return &CredentialGormRepository{db: db}
}

func (repo *CredentialGormRepository) Upsert(ctx context.Context, providerName, encryptedKey string) error {
	entity := dbschema.ProviderCredential{
		Provider:     providerName,
		EncryptedKey: encryptedKey,
	}
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"encrypted_key", "updated_at"}),
		}).
		Create(&entity).
		Error
	if err != nil {
		return provider.NewError(providerName, provider.KindStorage, "failed to upsert credential", err)
	}
	return nil
}

// Find returns ("" , zero time, nil) when no credential is stored.
func (repo *CredentialGormRepository) Find(ctx context.Context, providerName string) (string, time.Time, error) {
	var entity dbschema.ProviderCredential
	err := repo.db.WithContext(ctx).
		Where("provider = ?", providerName).
		First(&entity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, provider.NewError(providerName, provider.KindStorage, "failed to find credential", err)
	}
	return entity.EncryptedKey, entity.UpdatedAt, nil
}

func (repo *CredentialGormRepository) Providers(ctx context.Context) ([]string, error) {
	var names []string
	err := repo.db.WithContext(ctx).
		Model(&dbschema.ProviderCredential{}).
		Order("provider").
		Pluck("provider", &names).
		Error
	if err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to list credentials", err)
	}
	return names, nil
}

func (repo *CredentialGormRepository) Delete(ctx context.Context, providerName string) error {
	err := repo.db.WithContext(ctx).
		Where("provider = ?", providerName).
		Delete(&dbschema.ProviderCredential{}).
		Error
	if err != nil {
		return provider.NewError(providerName, provider.KindStorage, "failed to delete credential", err)
	}
	return nil
}
