package models

import "github.com/google/uuid"

type Comment struct {
	BaseModel
	EventID uuid.UUID `json:"eventID" gorm:"type:uuid;not null;index"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null"`
	Content string    `json:"content" gorm:"type:text;not null"`

	Event Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (Comment) TableName() string {
	return "comments"
}

type Like struct {
	BaseModel
	EventID uuid.UUID `json:"eventID" gorm:"type:uuid;not null;index"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`

	Event Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Like) TableName() string {
	return "likes"
}
