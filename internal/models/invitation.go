package models

import "github.com/google/uuid"

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusMaybe    InvitationStatus = "maybe"
)

type Invitation struct {
	BaseModel
	EventID uuid.UUID        `json:"eventID" gorm:"type:uuid;not null;index"`
	Name    *string          `json:"name,omitempty" gorm:"type:varchar(180)"`
	Email   string           `json:"email" gorm:"type:varchar(180);not null;index"`
	Token   string           `json:"token" gorm:"type:varchar(64);uniqueIndex;not null"`
	Status  InvitationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Used    bool             `json:"used" gorm:"not null;default:false"`

	Event Event `json:"event,omitempty" gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Invitation) TableName() string {
	return "invitations"
}

// DisplayName prefers the guest's name over the bare email address.
func (i *Invitation) DisplayName() string {
	if i.Name != nil && *i.Name != "" {
		return *i.Name
	}
	return i.Email
}
