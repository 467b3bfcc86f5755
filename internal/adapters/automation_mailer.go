package adapters

import (
	"context"
	"fmt"

	"consultancy_backend/internal/auth"
	automation "consultancy_backend/internal/automation/service"
	"consultancy_backend/internal/email"

	"github.com/google/uuid"
)

const noticeDateLayout = "2 Jan 2006 15:04"

// AutomationMailer sends automation email, resolving counselor addresses
// through the auth user provider.
type AutomationMailer struct {
	sender email.Sender
	users  auth.UserProvider
}

func NewAutomationMailer(sender email.Sender, users auth.UserProvider) *AutomationMailer {
	return &AutomationMailer{sender: sender, users: users}
}

func (m *AutomationMailer) SendFollowUpEmail(ctx context.Context, toEmail, studentName, subject, body string) error {
	return m.sender.SendFollowUpEmail(ctx, toEmail, studentName, subject, body)
}

func (m *AutomationMailer) SendCounselorNotice(ctx context.Context, counselorID uuid.UUID, studentName string, task automation.NewTask) error {
	counselor, err := m.users.GetUserByID(ctx, counselorID)
	if err != nil {
		return fmt.Errorf("resolve counselor %s: %w", counselorID, err)
	}
	if !counselor.IsActive || counselor.Email == "" {
		return nil
	}

	return m.sender.SendTaskAssignedEmail(ctx, counselor.Email, email.TaskNotice{
		CounselorName: counselor.FullName,
		StudentName:   studentName,
		Title:         task.Title,
		Description:   task.Description,
		Priority:      task.Priority,
		DueDate:       task.DueDate.Format(noticeDateLayout),
	})
}

var _ automation.Mailer = (*AutomationMailer)(nil)
