package models

import "github.com/google/uuid"

// Vote belongs to either a registered user or an anonymous invitation-token
// voter; exactly one of UserID/InvitationID is expected to be set.
type Vote struct {
	BaseModel
	PollID       uuid.UUID  `json:"pollID" gorm:"type:uuid;not null;index"`
	OptionID     uuid.UUID  `json:"optionID" gorm:"type:uuid;not null;index"`
	UserID       *uuid.UUID `json:"userID,omitempty" gorm:"type:uuid;index"`
	InvitationID *uuid.UUID `json:"invitationID,omitempty" gorm:"type:uuid;index"`

	Poll       Poll        `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnDelete:CASCADE"`
	Option     PollOption  `json:"-" gorm:"foreignKey:OptionID;references:ID"`
	User       *User       `json:"-" gorm:"foreignKey:UserID;references:ID"`
	Invitation *Invitation `json:"-" gorm:"foreignKey:InvitationID;references:ID"`
}

func (Vote) TableName() string {
	return "votes"
}
