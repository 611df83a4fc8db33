package dbschema

import (
	"time"

	"model-manager/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(ProviderCredential{})
}

// ProviderCredential holds one AES-GCM encrypted API key per provider.
type ProviderCredential struct {
	ID           uint      `gorm:"primarykey"`
	Provider     string    `gorm:"column:provider;size:64;uniqueIndex;not null"`
	EncryptedKey string    `gorm:"column:encrypted_key;type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (ProviderCredential) TableName() string {
	return "provider_credentials"
}
