package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/rs/zerolog"
)

// EmailService defines the interface for notification emails
type EmailService interface {
	SendNotification(ctx context.Context, to Recipient, item Item) error
	SendDigest(ctx context.Context, to Recipient, frequency string, items []Item) error
}

// Recipient is the addressee of a notification email
type Recipient struct {
	Email    string
	Username string
}

// Item is one notification rendered into an email
type Item struct {
	JournalID int64     `json:"journalId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string // e.g. "Class Journal <no-reply@school.example>"
	SkipTLSVerify bool
	BaseURL       string // used to link journals from emails
}

// EmailServiceImpl implements EmailService over SMTP
type EmailServiceImpl struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) *EmailServiceImpl {
	if config.Port == 0 {
		config.Port = 587
	}
	return &EmailServiceImpl{config: config, logger: logger}
}

var notificationTmpl = template.Must(template.New("notification").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<p>Hello {{.Username}},</p>
		<p>{{.Item.Message}}</p>
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.Link}}" style="background-color: #4a86e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Open journal</a>
		</div>
		<p>Class Journal</p>
	</div>
</body>
</html>`))

var digestTmpl = template.Must(template.New("digest").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<p>Hello {{.Username}},</p>
		<p>Here is what happened in your class journals:</p>
		<ul>
		{{range .Items}}<li>{{.Message}} <span style="color: #888;">({{.CreatedAt.Format "Jan 2, 15:04"}})</span></li>
		{{end}}</ul>
		<p>Class Journal</p>
	</div>
</body>
</html>`))

// SendNotification sends a single notification immediately
func (s *EmailServiceImpl) SendNotification(ctx context.Context, to Recipient, item Item) error {
	var body bytes.Buffer
	err := notificationTmpl.Execute(&body, map[string]interface{}{
		"Username": to.Username,
		"Item":     item,
		"Link":     fmt.Sprintf("%s/api/v1/journals/%d", s.config.BaseURL, item.JournalID),
	})
	if err != nil {
		return fmt.Errorf("failed to render notification email: %w", err)
	}
	return s.sendHTMLEmail(ctx, to.Email, subjectFor(item.Type), body.String())
}

// SendDigest sends all buffered items in one email
func (s *EmailServiceImpl) SendDigest(ctx context.Context, to Recipient, frequency string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	var body bytes.Buffer
	if err := digestTmpl.Execute(&body, map[string]interface{}{"Username": to.Username, "Items": items}); err != nil {
		return fmt.Errorf("failed to render digest email: %w", err)
	}

	subject := fmt.Sprintf("Your daily journal digest (%d updates)", len(items))
	if frequency == "WEEKLY_DIGEST" {
		subject = fmt.Sprintf("Your weekly journal digest (%d updates)", len(items))
	}
	return s.sendHTMLEmail(ctx, to.Email, subject, body.String())
}

func subjectFor(notificationType string) string {
	switch notificationType {
	case "JOURNAL_PUBLISH":
		return "A new journal entry was published for you"
	case "JOURNAL_TAG":
		return "You were tagged in a journal entry"
	case "JOURNAL_UPDATE":
		return "A journal entry you are tagged in was updated"
	default:
		return "Class Journal notification"
	}
}

// sendHTMLEmail sends an HTML email using STARTTLS
func (s *EmailServiceImpl) sendHTMLEmail(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("recipient has no email address")
	}
	// Development: no SMTP server configured
	if s.config.Host == "" || s.config.From == "" {
		s.logger.Warn().
			Str("to", to).
			Str("subject", subject).
			Msg("SMTP not configured - email not sent")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := mail.NewDialer(s.config.Host, s.config.Port, s.config.Username, s.config.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         s.config.Host,
		InsecureSkipVerify: s.config.SkipTLSVerify,
	}
	if deadline, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(deadline)
	}

	if err := d.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}
