package service

import (
	"database/sql"
	"log"
	"time"

	"prodline/models"
	"prodline/notification"
)

// NotificationStore is the persistence surface for in-app notifications
type NotificationStore interface {
	CreateNotification(n *models.Notification) error
	ListForUser(userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(notificationID, userID int64, at time.Time) error
}

// NotificationService writes in-app notification rows and serves the
// notifications API. It is the NotificationSink used by the workflow engine.
type NotificationService struct {
	store   NotificationStore
	senders []notification.Sender
	now     func() time.Time
}

// NewNotificationService creates a new notification service. Senders are
// secondary channels the in-app row is mirrored to, best effort.
func NewNotificationService(store NotificationStore, senders ...notification.Sender) *NotificationService {
	return &NotificationService{store: store, senders: senders, now: time.Now}
}

// Notify inserts one notification row for the recipient
func (s *NotificationService) Notify(req models.NotificationRequest) error {
	if req.RecipientID == 0 {
		return models.NewValidationError("recipient_id")
	}
	if req.NotificationType == "" {
		return models.NewValidationError("notification_type")
	}

	n := &models.Notification{
		RecipientID:      req.RecipientID,
		NotificationType: req.NotificationType,
		Title:            req.Title,
		Message:          req.Message,
		Priority:         req.Priority,
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if req.RelatedEntityType != "" {
		n.RelatedEntityType = sql.NullString{String: req.RelatedEntityType, Valid: true}
	}
	if req.RelatedEntityID != 0 {
		n.RelatedEntityID = sql.NullInt64{Int64: req.RelatedEntityID, Valid: true}
	}
	if req.ActionURL != "" {
		n.ActionURL = sql.NullString{String: req.ActionURL, Valid: true}
	}
	if err := s.store.CreateNotification(n); err != nil {
		return err
	}
	for _, sender := range s.senders {
		if err := sender.Send(n); err != nil {
			log.Printf("[NOTIFY] %s send failed for user %d: %v", sender.Channel(), n.RecipientID, err)
		}
	}
	return nil
}

// ListForUser retrieves a user's notifications, newest first
func (s *NotificationService) ListForUser(userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListForUser(userID, unreadOnly, limit)
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(notificationID, userID int64) error {
	return s.store.MarkRead(notificationID, userID, s.now())
}
