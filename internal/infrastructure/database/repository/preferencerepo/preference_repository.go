package preferencerepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"model-manager/internal/domain/preference"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/database/dbschema"
)

// PreferenceGormRepository implements preference.Repository using GORM.
type PreferenceGormRepository struct {
	db *gorm.DB
}

var _ preference.Repository = (*PreferenceGormRepository)(nil)

// NewPreferenceGormRepository constructs a new repository.
func NewPreferenceGormRepository(db *gorm.DB) preference.Repository {
	return &PreferenceGormRepository{db: db}
}

func (repo *PreferenceGormRepository) Upsert(ctx context.Context, pref *preference.Preference) error {
	entity := dbschema.NewSchemaModelPreference(pref)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"provider", "model", "updated_at"}),
		}).
		Create(entity).
		Error
	if err != nil {
		return provider.NewError("", provider.KindStorage, "failed to upsert preference", err)
	}
	pref.UpdatedAt = entity.UpdatedAt
	return nil
}

// Find returns nil when no preference exists for the task type.
func (repo *PreferenceGormRepository) Find(ctx context.Context, taskType string) (*preference.Preference, error) {
	var entity dbschema.ModelPreference
	err := repo.db.WithContext(ctx).
		Where("task_type = ?", taskType).
		First(&entity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to find preference", err)
	}
	return entity.EtoD(), nil
}

func (repo *PreferenceGormRepository) List(ctx context.Context) ([]preference.Preference, error) {
	var entities []dbschema.ModelPreference
	err := repo.db.WithContext(ctx).
		Order("task_type").
		Find(&entities).
		Error
	if err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to list preferences", err)
	}

	prefs := make([]preference.Preference, 0, len(entities))
	for _, entity := range entities {
		prefs = append(prefs, *entity.EtoD())
	}
	return prefs, nil
}

func (repo *PreferenceGormRepository) Delete(ctx context.Context, taskType string) error {
	err := repo.db.WithContext(ctx).
		Where("task_type = ?", taskType).
		Delete(&dbschema.ModelPreference{}).
		Error
	if err != nil {
		return provider.NewError("", provider.KindStorage, "failed to delete preference", err)
	}
	return nil
}
