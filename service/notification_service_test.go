package service

import (
	"errors"
	"testing"
	"time"

	"prodline/models"
)

type fakeNotificationStore struct {
	created   []models.Notification
	lastLimit int
}

func (f *fakeNotificationStore) CreateNotification(n *models.Notification) error {
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotificationStore) ListForUser(userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	f.lastLimit = limit
	var out []models.Notification
	for _, n := range f.created {
		if n.RecipientID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(notificationID, userID int64, at time.Time) error {
	for i := range f.created {
		if f.created[i].NotificationID == notificationID && f.created[i].RecipientID == userID {
			f.created[i].IsRead = true
			return nil
		}
	}
	return models.ErrNotFound
}

type fakeSender struct {
	sent []models.Notification
	err  error
}

func (f *fakeSender) Send(n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *n)
	return nil
}

func (f *fakeSender) Channel() string { return "fake" }

func TestNotifyDefaultsAndFanOut(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{}
	svc := NewNotificationService(store, sender)

	err := svc.Notify(models.NotificationRequest{
		RecipientID:      7,
		NotificationType: models.NotificationSlaAlert,
		Title:            "Response SLA breached",
		Message:          "order 42 missed its response deadline",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1", len(store.created))
	}
	if store.created[0].Priority != models.PriorityNormal {
		t.Errorf("priority = %q, want %q", store.created[0].Priority, models.PriorityNormal)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sender got %d notifications, want 1", len(sender.sent))
	}
	if sender.sent[0].RecipientID != 7 {
		t.Errorf("sender recipient = %d, want 7", sender.sent[0].RecipientID)
	}
}

func TestNotifySenderFailureDoesNotFail(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{err: errors.New("smtp down")}
	svc := NewNotificationService(store, sender)

	err := svc.Notify(models.NotificationRequest{
		RecipientID:      7,
		NotificationType: models.NotificationMaintenanceDue,
		Title:            "PM due",
		Message:          "schedule 3 due within 72h",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1 despite sender failure", len(store.created))
	}
}

func TestNotifyValidation(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationStore{})

	var ve *models.ValidationError
	if err := svc.Notify(models.NotificationRequest{NotificationType: models.NotificationSlaAlert}); !errors.As(err, &ve) {
		t.Errorf("missing recipient: got %v, want validation error", err)
	}
	if err := svc.Notify(models.NotificationRequest{RecipientID: 1}); !errors.As(err, &ve) {
		t.Errorf("missing type: got %v, want validation error", err)
	}
}

func TestListForUserClampsLimit(t *testing.T) {
	store := &fakeNotificationStore{}
	svc := NewNotificationService(store)

	if _, err := svc.ListForUser(1, false, 0); err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if store.lastLimit != 50 {
		t.Errorf("limit = %d, want default 50", store.lastLimit)
	}
	if _, err := svc.ListForUser(1, false, 500); err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if store.lastLimit != 50 {
		t.Errorf("limit = %d, want clamp to 50", store.lastLimit)
	}
}
