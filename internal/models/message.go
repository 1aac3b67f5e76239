package models

import "github.com/google/uuid"

type Conversation struct {
	BaseModel
	Name          *string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	LastMessageID *uuid.UUID `json:"lastMessageID,omitempty" gorm:"type:uuid"`

	Participants []User    `json:"participants,omitempty" gorm:"many2many:conversation_participants"`
	Messages     []Message `json:"-" gorm:"foreignKey:ConversationID"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type Message struct {
	BaseModel
	ConversationID uuid.UUID `json:"conversationID" gorm:"type:uuid;not null;index"`
	SenderID       uuid.UUID `json:"senderID" gorm:"type:uuid;not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	Sender       User         `json:"sender,omitempty" gorm:"foreignKey:SenderID;references:ID"`
}

func (Message) TableName() string {
	return "messages"
}
