package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action is the code identifying what a logged activity describes. The set
// below is closed for rendering purposes, but the log accepts unknown codes
// so forward-incompatible actions are recorded rather than lost.
type Action string

const (
	ActionCreateEvent       Action = "create_event"
	ActionUpdateEvent       Action = "update_event"
	ActionDeleteEvent       Action = "delete_event"
	ActionJoin              Action = "join"
	ActionConfirmPresence   Action = "confirm_presence"
	ActionCommentEvent      Action = "comment_event"
	ActionCreatePoll        Action = "create_poll"
	ActionUpdatePoll        Action = "update_poll"
	ActionDeletePoll        Action = "delete_poll"
	ActionVote              Action = "vote"
	ActionUnvote            Action = "unvote"
	ActionAddGuest          Action = "add_guest"
	ActionDeleteGuest       Action = "delete_guest"
	ActionSendInvitation    Action = "send_invitation"
	ActionReceiveInvitation Action = "receive_invitation"
	ActionConfirmInvitation Action = "confirm_invitation"
)

// Activity is an append-only record of one domain action. It does NOT use
// BaseModel because activity rows are never updated or soft-deleted. Actor,
// target user and event references all degrade to NULL when the referenced
// row is deleted; the historical record itself survives.
type Activity struct {
	ID           uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID      *uuid.UUID             `json:"actorID,omitempty" gorm:"type:uuid;index"`
	TargetUserID *uuid.UUID             `json:"targetUserID,omitempty" gorm:"type:uuid;index"`
	EventID      *uuid.UUID             `json:"eventID,omitempty" gorm:"type:uuid;index"`
	Action       Action                 `json:"action" gorm:"type:varchar(50);not null;index"`
	Details      map[string]interface{} `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time              `json:"createdAt" gorm:"not null;index"`

	Actor      *User  `json:"actor,omitempty" gorm:"foreignKey:ActorID;references:ID;constraint:OnDelete:SET NULL"`
	TargetUser *User  `json:"targetUser,omitempty" gorm:"foreignKey:TargetUserID;references:ID;constraint:OnDelete:SET NULL"`
	Event      *Event `json:"event,omitempty" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:SET NULL"`
}

func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (Activity) TableName() string {
	return "activities"
}
