package models

import "time"

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	BaseModel
	Name             string     `json:"name" gorm:"type:varchar(255);not null"`
	Email            string     `json:"email" gorm:"type:varchar(180);uniqueIndex;not null"`
	PasswordHash     string     `json:"-" gorm:"type:text;not null"`
	Role             UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	ProfilePicture   *string    `json:"profilePicture,omitempty" gorm:"type:text"`
	IsVerified       bool       `json:"isVerified" gorm:"not null;default:false"`
	VerificationCode *string    `json:"-" gorm:"type:varchar(6)"`
	CodeExpiresAt    *time.Time `json:"-"`
	IsOnline         bool       `json:"isOnline" gorm:"not null;default:false"`
	LastActivity     *time.Time `json:"lastActivity,omitempty"`

	Events []Event `json:"-" gorm:"foreignKey:OrganizerID"`
}
