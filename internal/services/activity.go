package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
	"github.com/planora/backend/pkg/logger"
	"gorm.io/gorm"
)

// LogEntry describes one domain action to record. Actor, Event and
// TargetUser are all optional; an anonymous invitation-token voter produces
// an entry with no actor at all.
type LogEntry struct {
	Action       models.Action
	ActorID      *uuid.UUID
	EventID      *uuid.UUID
	TargetUserID *uuid.UUID
	Details      map[string]interface{}
}

type ActivityService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewActivityService(db *gorm.DB, notifications *NotificationService) *ActivityService {
	return &ActivityService{DB: db, Notifications: notifications}
}

// Log persists the activity row, then fans out a single notification to the
// target user if set, otherwise to the actor. The activity insert commits
// first; a notification failure never rolls the activity back, but it is
// reported to the caller alongside the persisted activity. With neither
// target nor actor there is nobody to notify and only the activity is
// written.
func (s *ActivityService) Log(entry LogEntry) (*models.Activity, error) {
	activity := models.Activity{
		ActorID:      entry.ActorID,
		TargetUserID: entry.TargetUserID,
		EventID:      entry.EventID,
		Action:       entry.Action,
		Details:      entry.Details,
	}

	if err := s.DB.Create(&activity).Error; err != nil {
		logger.Error("activity_insert_failed", err, map[string]interface{}{
			"action": string(entry.Action),
		})
		return nil, err
	}

	recipientID := entry.TargetUserID
	if recipientID == nil {
		recipientID = entry.ActorID
	}
	if recipientID == nil {
		return &activity, nil
	}

	relatedID := activity.ID
	if err := s.Notifications.Notify(*recipientID, models.NotificationTypeActivity, models.RelatedTableActivity, &relatedID); err != nil {
		logger.Error("activity_notification_failed", err, map[string]interface{}{
			"action":       string(entry.Action),
			"activity_id":  activity.ID.String(),
			"recipient_id": recipientID.String(),
		})
		return &activity, fmt.Errorf("notifying recipient: %w", err)
	}

	return &activity, nil
}

// FindRelevant returns the newest activities a viewer is allowed to see:
// ones they performed, ones aimed at them, ones on events they organize, and
// ones on events they were invited to by email. Activities whose event was
// deleted survive with a NULL event reference and still match the first two
// branches.
func (s *ActivityService) FindRelevant(viewer *models.User, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	var activities []models.Activity
	err := s.DB.
		Joins("LEFT JOIN events ON events.id = activities.event_id").
		Where(
			"activities.actor_id = ? OR activities.target_user_id = ? OR events.organizer_id = ? OR activities.event_id IN (?)",
			viewer.ID,
			viewer.ID,
			viewer.ID,
			s.DB.Model(&models.Invitation{}).Select("event_id").Where("email = ?", viewer.Email),
		).
		Order("activities.created_at DESC").
		Limit(limit).
		Preload("Actor").
		Preload("TargetUser").
		Preload("Event").
		Preload("Event.Organizer").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	return activities, nil
}
