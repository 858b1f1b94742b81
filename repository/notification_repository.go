package repository

import (
	"database/sql"
	"fmt"
	"time"

	"prodline/models"
)

// NotificationRepository handles database operations for in-app notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts one notification row
func (r *NotificationRepository) CreateNotification(n *models.Notification) error {
	query := `
		INSERT INTO notifications
		(recipient_id, notification_type, title, message, related_entity_type,
		 related_entity_id, action_url, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		n.RecipientID,
		n.NotificationType,
		n.Title,
		n.Message,
		n.RelatedEntityType,
		n.RelatedEntityID,
		n.ActionURL,
		n.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification ID: %w", err)
	}
	n.NotificationID = id
	return nil
}

// ListForUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListForUser(userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, recipient_id, notification_type, title, message,
		       related_entity_type, related_entity_id, action_url, priority,
		       is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = ?
	`
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.NotificationID,
			&n.RecipientID,
			&n.NotificationType,
			&n.Title,
			&n.Message,
			&n.RelatedEntityType,
			&n.RelatedEntityID,
			&n.ActionURL,
			&n.Priority,
			&n.IsRead,
			&n.ReadAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(notificationID, userID int64, at time.Time) error {
	_, err := r.db.Exec(
		`UPDATE notifications SET is_read = TRUE, read_at = ? WHERE id = ? AND recipient_id = ?`,
		at, notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
