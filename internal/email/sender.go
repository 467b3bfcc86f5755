package email

import (
	"context"
	"fmt"

	"consultancy_backend/platform/config"
)

type Sender interface {
	SendFollowUpEmail(ctx context.Context, toEmail, studentName, subject, body string) error
	SendTaskAssignedEmail(ctx context.Context, toEmail string, task TaskNotice) error
	SendAccountCreatedEmail(ctx context.Context, toEmail, fullName string) error
}

// TaskNotice describes a task in counselor notifications.
type TaskNotice struct {
	CounselorName string
	StudentName   string
	Title         string
	Description   string
	Priority      string
	DueDate       string
}

type NoopSender struct{}

func (NoopSender) SendFollowUpEmail(ctx context.Context, toEmail, studentName, subject, body string) error {
	return nil
}

func (NoopSender) SendTaskAssignedEmail(ctx context.Context, toEmail string, task TaskNotice) error {
	return nil
}

func (NoopSender) SendAccountCreatedEmail(ctx context.Context, toEmail, fullName string) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetSMTPHost() == "" || cfg.GetEmailFromAddress() == "" {
		return nil, fmt.Errorf("email enabled but SMTP_HOST or EMAIL_FROM_ADDRESS is missing")
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
