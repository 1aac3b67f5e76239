package models

import "github.com/google/uuid"

type Poll struct {
	BaseModel
	EventID  uuid.UUID `json:"eventID" gorm:"type:uuid;not null;index"`
	Question string    `json:"question" gorm:"type:varchar(255);not null"`

	Event   Event        `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
	Options []PollOption `json:"options,omitempty" gorm:"foreignKey:PollID"`
}

func (Poll) TableName() string {
	return "polls"
}

type PollOption struct {
	BaseModel
	PollID uuid.UUID `json:"pollID" gorm:"type:uuid;not null;index"`
	Text   string    `json:"text" gorm:"type:varchar(255);not null"`
	Votes  int       `json:"votes" gorm:"not null;default:0"`

	Poll Poll `json:"-" gorm:"foreignKey:PollID;references:ID;constraint:OnDelete:CASCADE"`
}

func (PollOption) TableName() string {
	return "poll_options"
}
