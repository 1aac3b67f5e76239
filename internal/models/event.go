package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	BaseModel
	Title            string     `json:"title" gorm:"type:varchar(255);not null"`
	Description      *string    `json:"description,omitempty" gorm:"type:text"`
	Image            *string    `json:"image,omitempty" gorm:"type:text"`
	EventDate        time.Time  `json:"eventDate" gorm:"not null"`
	EventTime        string     `json:"eventTime" gorm:"type:varchar(5);not null"`
	EventLocation    *string    `json:"eventLocation,omitempty" gorm:"type:varchar(255)"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	IsPubliclyShared bool       `json:"isPubliclyShared" gorm:"not null;default:false;index"`
	OrganizerID      uuid.UUID  `json:"organizerID" gorm:"type:uuid;not null;index"`

	Organizer   User         `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID;references:ID"`
	Invitations []Invitation `json:"-" gorm:"foreignKey:EventID"`
	Polls       []Poll       `json:"-" gorm:"foreignKey:EventID"`
	Rsvps       []Rsvp       `json:"-" gorm:"foreignKey:EventID"`
	Comments    []Comment    `json:"-" gorm:"foreignKey:EventID"`
	Likes       []Like       `json:"-" gorm:"foreignKey:EventID"`
}

func (Event) TableName() string {
	return "events"
}
