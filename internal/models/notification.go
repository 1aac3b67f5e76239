package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelatedTable values bucket notifications into frontend badge categories.
const (
	RelatedTableActivity   = "activity"
	RelatedTableInvitation = "invitation"
	RelatedTableMessage    = "message"
)

const (
	NotificationTypeActivity           = "activity"
	NotificationTypeInvitationReceived = "invitation_received"
	NotificationTypeMessageReceived    = "message_received"
)

// Notification is the per-recipient read/unread projection of an Activity or
// other source record. (recipient, relatedTable, relatedId) acts as a natural
// key but uniqueness is not enforced; repeated actions on the same underlying
// row may accumulate duplicates. The only mutation after creation is the
// isRead flip.
type Notification struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID  uuid.UUID  `json:"recipientID" gorm:"type:uuid;not null;index"`
	Type         string     `json:"type" gorm:"type:varchar(50);not null"`
	RelatedTable string     `json:"relatedTable" gorm:"type:varchar(50);not null;index"`
	RelatedID    *uuid.UUID `json:"relatedID,omitempty" gorm:"type:uuid;index"`
	IsRead       bool       `json:"isRead" gorm:"not null;default:false;index"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"not null;index"`

	Recipient User `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnDelete:CASCADE"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
