package conversationrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"model-manager/internal/domain/conversation"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/database/dbschema"
)

// ConversationGormRepository implements conversation.Repository using GORM.
type ConversationGormRepository struct {
	db *gorm.DB
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

// NewConversationGormRepository constructs a new repository.
func NewConversationGormRepository(db *gorm.DB) conversation.Repository {
	return &ConversationGormRepository{db: db}
}

func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	entity, err := dbschema.NewSchemaConversation(conv)
	if err != nil {
		return provider.NewError("", provider.KindStorage, "failed to encode conversation", err)
	}
	if err := repo.db.WithContext(ctx).Create(entity).Error; err != nil {
		return provider.NewError("", provider.KindStorage, "failed to create conversation", err)
	}
	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID returns nil when no conversation matches.
func (repo *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) (*conversation.Conversation, error) {
	var entity dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Where("public_id = ?", publicID.String()).
		First(&entity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to find conversation", err)
	}
	return entity.EtoD()
}

func (repo *ConversationGormRepository) List(ctx context.Context, limit, offset int) ([]conversation.Conversation, error) {
	var entities []dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error
	if err != nil {
		return nil, provider.NewError("", provider.KindStorage, "failed to list conversations", err)
	}

	conversations := make([]conversation.Conversation, 0, len(entities))
	for _, entity := range entities {
		conv, err := entity.EtoD()
		if err != nil {
			return nil, provider.NewError("", provider.KindStorage, "failed to decode conversation", err)
		}
		conversations = append(conversations, *conv)
	}
	return conversations, nil
}

func (repo *ConversationGormRepository) DeleteByPublicID(ctx context.Context, publicID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("public_id = ?", publicID.String()).
		Delete(&dbschema.Conversation{})
	if result.Error != nil {
		return provider.NewError("", provider.KindStorage, "failed to delete conversation", result.Error)
	}
	if result.RowsAffected == 0 {
		return provider.NewError("", provider.KindModelNotFound, "conversation not found", nil)
	}
	return nil
}

func (repo *ConversationGormRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&dbschema.Conversation{}).Count(&count).Error; err != nil {
		return 0, provider.NewError("", provider.KindStorage, "failed to count conversations", err)
	}
	return count, nil
}
