package dbschema

import (
	"time"

	"model-manager/internal/domain/preference"
	"model-manager/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(ModelPreference{})
}

type ModelPreference struct {
	ID        uint      `gorm:"primarykey"`
	TaskType  string    `gorm:"column:task_type;size:64;uniqueIndex;not null"`
	Provider  string    `gorm:"column:provider;size:64;not null"`
	Model     string    `gorm:"column:model;size:255;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ModelPreference) TableName() string {
	return "model_preferences"
}

func NewSchemaModelPreference(pref *preference.Preference) *ModelPreference {
	return &ModelPreference{
		TaskType: pref.TaskType,
		Provider: pref.Provider,
		Model:    pref.Model,
	}
}

func (p *ModelPreference) EtoD() *preference.Preference {
	return &preference.Preference{
		TaskType:  p.TaskType,
		Provider:  p.Provider,
		Model:     p.Model,
		UpdatedAt: p.UpdatedAt,
	}
}
