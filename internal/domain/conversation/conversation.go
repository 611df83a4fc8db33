// Package conversation stores saved chat transcripts.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/utils/stringutils"
)

type Conversation struct {
	ID        uint
	PublicID  uuid.UUID
	Title     string
	Model     string
	Provider  string
	Messages  []model.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByPublicID(ctx context.Context, publicID uuid.UUID) (*Conversation, error)
	List(ctx context.Context, limit, offset int) ([]Conversation, error)
	DeleteByPublicID(ctx context.Context, publicID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
}

const maxTitleLength = 80

// Save validates the transcript shape and persists it under a fresh
// public id. An empty title is derived from the first user message.
func (s *Service) Save(ctx context.Context, title, modelName, providerName string, messages []model.Message) (*Conversation, error) {
	if len(messages) == 0 {
		return nil, provider.NewValidationError("messages must not be empty")
	}
	for i, m := range messages {
		if !validRoles[m.Role] {
			return nil, provider.NewValidationError("message %d has invalid role %q", i, m.Role)
		}
		if m.Content == "" {
			return nil, provider.NewValidationError("message %d has empty content", i)
		}
	}

	if title == "" {
		for _, m := range messages {
			if m.Role == "user" {
				title = stringutils.GenerateTitle(m.Content, maxTitleLength)
				break
			}
		}
	}
	if title == "" {
		return nil, provider.NewValidationError("title is required when no user message can supply one")
	}

	conv := &Conversation{
		PublicID: uuid.New(),
		Title:    title,
		Model:    modelName,
		Provider: providerName,
		Messages: messages,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) Get(ctx context.Context, publicID uuid.UUID) (*Conversation, error) {
	return s.repo.FindByPublicID(ctx, publicID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, publicID uuid.UUID) error {
	return s.repo.DeleteByPublicID(ctx, publicID)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
