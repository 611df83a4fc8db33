package dbschema

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"model-manager/internal/domain/conversation"
	"model-manager/internal/domain/model"
	"model-manager/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
}

type Conversation struct {
	BaseModel
	PublicID string         `gorm:"column:public_id;type:varchar(50);uniqueIndex;not null"`
	Title    string         `gorm:"column:title;type:varchar(256);not null"`
	Model    string         `gorm:"column:model;size:255"`
	Provider string         `gorm:"column:provider;size:64"`
	Messages datatypes.JSON `gorm:"column:messages;type:jsonb;not null"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func NewSchemaConversation(conv *conversation.Conversation) (*Conversation, error) {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		BaseModel: BaseModel{ID: conv.ID},
		PublicID:  conv.PublicID.String(),
		Title:     conv.Title,
		Model:     conv.Model,
		Provider:  conv.Provider,
		Messages:  datatypes.JSON(messages),
	}, nil
}

func (c *Conversation) EtoD() (*conversation.Conversation, error) {
	publicID, err := uuid.Parse(c.PublicID)
	if err != nil {
		return nil, err
	}
	var messages []model.Message
	if len(c.Messages) > 0 {
		if err := json.Unmarshal(c.Messages, &messages); err != nil {
			return nil, err
		}
	}
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  publicID,
		Title:     c.Title,
		Model:     c.Model,
		Provider:  c.Provider,
		Messages:  messages,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}
