package services

import (
	"github.com/google/uuid"
	"github.com/planora/backend/internal/models"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Notify creates an unread notification for the recipient. Duplicates for the
// same related row are allowed; each action fans out its own notification.
func (s *NotificationService) Notify(recipientID uuid.UUID, notificationType, relatedTable string, relatedID *uuid.UUID) error {
	notification := models.Notification{
		RecipientID:  recipientID,
		Type:         notificationType,
		RelatedTable: relatedTable,
		RelatedID:    relatedID,
		IsRead:       false,
	}
	return s.DB.Create(&notification).Error
}

func (s *NotificationService) CountUnread(recipientID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) CountUnreadByTable(recipientID uuid.UUID, relatedTable string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ? AND related_table = ?", recipientID, false, relatedTable).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) ListForRecipient(recipientID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// MarkAllRead flips every unread notification for the recipient in one
// conditional UPDATE and reports how many rows changed. Calling it with
// nothing unread is a no-op.
func (s *NotificationService) MarkAllRead(recipientID uuid.UUID) (int64, error) {
	result := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// ReadStates resolves the isRead flag for a set of related rows in one query.
// A related row with no notification for this recipient reads as unread, so
// callers can index the map directly. When the same related row accumulated
// several notifications it counts as read only once all of them are read.
func (s *NotificationService) ReadStates(recipientID uuid.UUID, relatedTable string, relatedIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	states := make(map[uuid.UUID]bool, len(relatedIDs))
	if len(relatedIDs) == 0 {
		return states, nil
	}

	var notifications []models.Notification
	err := s.DB.
		Where("recipient_id = ? AND related_table = ? AND related_id IN ?", recipientID, relatedTable, relatedIDs).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(notifications))
	for _, n := range notifications {
		if n.RelatedID == nil {
			continue
		}
		id := *n.RelatedID
		if !seen[id] {
			seen[id] = true
			states[id] = n.IsRead
			continue
		}
		states[id] = states[id] && n.IsRead
	}
	return states, nil
}
