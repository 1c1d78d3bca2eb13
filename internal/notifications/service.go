package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/config"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers run reports and history digests via a generic JSON
// webhook and/or SMTP email, whichever is configured.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ NotificationInterface = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunReport sends one run's outcome table to all configured
// channels.
func (s *Service) SendRunReport(report *models.RunReport) error {
	subject := fmt.Sprintf("Run %s finished: %s", report.RunID, report.Stage)
	return s.deliver(subject, report, renderRunReport(report))
}

// SendDigest sends a periodic roll-up of submission history.
func (s *Service) SendDigest(digest *models.DigestReport) error {
	subject := fmt.Sprintf("Posting digest (%s): %d submissions", digest.Period, digest.Total)
	return s.deliver(subject, digest, renderDigest(digest))
}

func (s *Service) deliver(subject string, payload any, text string) error {
	var errs []string

	if s.config.ReportWebhookURL != "" {
		if err := s.sendWebhook(payload); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Info("Successfully sent webhook notification")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(subject, text); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Info("Successfully sent email notification")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(payload any) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.config.ReportWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(subject, text string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderRunReport(report *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow run %s\n", report.RunID)
	fmt.Fprintf(&b, "Article: %s\n", report.ArticleURL)
	fmt.Fprintf(&b, "Final stage: %s\n", report.Stage)
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	for _, sub := range report.Submissions {
		line := fmt.Sprintf("- r/%s: %s", sub.Community, sub.Outcome)
		if sub.PostID != "" {
			line += fmt.Sprintf(" (%s)", sub.PostID)
		}
		if sub.Reason != "" {
			line += " - " + sub.Reason
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderDigest(digest *models.DigestReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Posting digest (%s)\n", digest.Period)
	fmt.Fprintf(&b, "Generated: %s\n", digest.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total submissions: %d\n\n", digest.Total)

	b.WriteString("By outcome:\n")
	for outcome, count := range digest.ByOutcome {
		fmt.Fprintf(&b, "  %-20s %d\n", string(outcome)+":", count)
	}

	b.WriteString("\nBy community:\n")
	for community, count := range digest.ByCommunity {
		fmt.Fprintf(&b, "  r/%-18s %d\n", community+":", count)
	}

	if len(digest.Records) > 0 {
		b.WriteString("\nRecent submissions:\n")
		for i, rec := range digest.Records {
			if i >= 20 {
				break
			}
			fmt.Fprintf(&b, "- r/%s %s (%s)\n", rec.Community, rec.Outcome, rec.CreatedAt.Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}
