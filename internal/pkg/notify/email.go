package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"teamspace/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg         *config.EmailConfig
	frontendURL string
	logger      *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, frontendURL string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:         cfg,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

func (n *EmailNotifier) configured() bool {
	return n.cfg.SMTPHost != "" && n.cfg.SMTPUser != "" && n.cfg.FromEmail != ""
}

// SendTaskAssignment 发送任务指派通知邮件。
func (n *EmailNotifier) SendTaskAssignment(ctx context.Context, note AssignmentNote) error {
	if !n.configured() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(note.AssigneeEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", note.AssigneeEmail)
	m.SetHeader("Subject", fmt.Sprintf("New Task Assignment: %s", note.TaskTitle))
	m.SetBody("text/html", n.buildAssignmentBody(note))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("assignment email sent",
		slog.String("to", note.AssigneeEmail),
		slog.String("task", note.TaskTitle))
	return nil
}

// SendTest 发送一封配置自检邮件。
func (n *EmailNotifier) SendTest(ctx context.Context, toEmail string) error {
	if !n.configured() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(toEmail) == "" {
		toEmail = n.cfg.FromEmail
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Teamspace Email Service Test")
	m.SetBody("text/plain", "Email service is configured correctly!")

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}

	n.logger.Info("test email sent", slog.String("to", toEmail))
	return nil
}

func (n *EmailNotifier) buildAssignmentBody(note AssignmentNote) string {
	dueDateText := "No due date specified"
	if note.DueDate != nil {
		dueDateText = fmt.Sprintf("Due Date: %s", note.DueDate.Format("2006-01-02"))
	}
	assignedBy := note.AssignedBy
	if assignedBy == "" {
		assignedBy = "system"
	}

	template := `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 600px; margin: 0 auto;">
    <h2 style="color: #333;">You've been assigned a new task!</h2>
    <div style="background-color: #f5f5f5; padding: 20px; border-radius: 5px; margin: 20px 0;">
      <h3 style="margin-top: 0; color: #2196F3;">%s</h3>
      <p><strong>Workspace:</strong> %s</p>
      <p><strong>Assigned by:</strong> %s</p>
      <p><strong>%s</strong></p>
    </div>
    <p>Log in to your workspace to view details and start working on this task.</p>
    <a href="%s/dashboard"
       style="display: inline-block; background-color: #2196F3; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">
      Go to Dashboard
    </a>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, note.TaskTitle, note.WorkspaceName, assignedBy, dueDateText, n.frontendURL)
}
