// Package preference maps task types to a preferred provider and model,
// letting generation requests omit both.
package preference

import (
	"context"
	"time"

	"model-manager/internal/domain/provider"
)

// Preference pins one task type to a provider/model pair.
type Preference struct {
	TaskType  string    `json:"task_type"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	Upsert(ctx context.Context, pref *Preference) error
	Find(ctx context.Context, taskType string) (*Preference, error)
	List(ctx context.Context) ([]Preference, error)
	Delete(ctx context.Context, taskType string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Set(ctx context.Context, taskType, providerName, modelName string) (*Preference, error) {
	if taskType == "" || providerName == "" || modelName == "" {
		return nil, provider.NewValidationError("task_type, provider and model are required")
	}
	pref := &Preference{TaskType: taskType, Provider: providerName, Model: modelName}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}

// Get returns nil when no preference exists for the task type.
func (s *Service) Get(ctx context.Context, taskType string) (*Preference, error) {
	return s.repo.Find(ctx, taskType)
}

func (s *Service) List(ctx context.Context) ([]Preference, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, taskType string) error {
	return s.repo.Delete(ctx, taskType)
}
