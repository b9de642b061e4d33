package auth

import (
	"context"
	"log"
)

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// LogMailer writes the links to the process log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendVerification(ctx context.Context, to, link string) error {
	log.Printf("[mail] verification for %s: %s", to, link)
	return nil
}

func (LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	log.Printf("[mail] password reset for %s: %s", to, link)
	return nil
}
