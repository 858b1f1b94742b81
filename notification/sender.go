// Package notification holds secondary delivery channels for workflow
// notifications. The in-app row written by the notification service is the
// primary channel; senders here mirror it elsewhere, best effort.
package notification

import (
	"fmt"
	"log"
	"os"

	"prodline/models"
)

// Sender mirrors a notification onto one delivery channel
type Sender interface {
	Send(n *models.Notification) error
	Channel() string
}

// EmailSender logs outbound mail. A real SMTP relay is owned by the
// messaging layer; when EMAIL_MODE is anything but "log" every send is a
// no-op so the engine can run without mail infrastructure.
type EmailSender struct {
	mode string
}

// NewEmailSender creates an email sender (reads EMAIL_MODE from env)
func NewEmailSender() *EmailSender {
	return &EmailSender{mode: os.Getenv("EMAIL_MODE")}
}

// Channel returns the email channel name
func (s *EmailSender) Channel() string {
	return "email"
}

// Send logs the notification when EMAIL_MODE=log, otherwise does nothing
func (s *EmailSender) Send(n *models.Notification) error {
	if n.RecipientID == 0 {
		return fmt.Errorf("email send: missing recipient")
	}
	if s.mode != "log" {
		return nil
	}
	log.Printf("[EMAIL] To user %d: %s - %s", n.RecipientID, n.Title, n.Message)
	return nil
}
