package models

import "github.com/google/uuid"

type Rsvp struct {
	BaseModel
	EventID      uuid.UUID  `json:"eventID" gorm:"type:uuid;not null;index"`
	UserID       *uuid.UUID `json:"userID,omitempty" gorm:"type:uuid;index"`
	InvitationID *uuid.UUID `json:"invitationID,omitempty" gorm:"type:uuid"`
	Status       string     `json:"status" gorm:"type:varchar(20);not null"`
	Comment      *string    `json:"comment,omitempty" gorm:"type:text"`

	Event Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
	User  *User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Rsvp) TableName() string {
	return "rsvps"
}
