// Package mailer sends moderator alerts and digests through SendGrid.
package mailer

import (
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/crimeshield/crimeshield-api/models"
	templates "github.com/crimeshield/crimeshield-api/templates/html"
)

const (
	fromName    = "CrimeShield"
	fromAddress = "no-reply@crimeshield.app"
)

// ErrDisabled is returned when no SendGrid key or recipient is configured
var ErrDisabled = errors.New("mailer is not configured")

// sendFunc delivers a message and returns the HTTP status and body
type sendFunc func(*mail.SGMailV3) (int, string, error)

// Mailer sends email through SendGrid
type Mailer struct {
	admins  []string
	baseURL string
	send    sendFunc
}

// New creates a Mailer. admins receive alerts and digests.
func New(apiKey string, admins []string, baseURL string) *Mailer {
	m := &Mailer{admins: admins, baseURL: baseURL}
	if apiKey != "" {
		client := sendgrid.NewSendClient(apiKey)
		m.send = func(msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.Send(msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		}
	}
	return m
}

// Enabled reports whether a SendGrid key is configured
func (m *Mailer) Enabled() bool {
	return m != nil && m.send != nil
}

// SendAlert notifies every admin about a newly filed critical report
func (m *Mailer) SendAlert(r models.Report) error {
	subject := fmt.Sprintf("[CrimeShield] %s report: %s", r.ThreatLevel, r.Title)
	plain := fmt.Sprintf("%s\n\n%s\n\n%s/posts/%s", r.Title, r.Description, m.baseURL, r.ID.Hex())
	return m.toAdmins(subject, plain, templates.RenderAlertEmail(r, m.baseURL))
}

// SendDigest mails the admins every high or critical report filed since since
func (m *Mailer) SendDigest(reports []models.Report, since time.Time) error {
	subject := fmt.Sprintf("[CrimeShield] daily digest: %d reports", len(reports))
	plain := fmt.Sprintf("%d high or critical reports since %s. Review them at %s/admin/posts", len(reports), since.UTC().Format(time.RFC1123), m.baseURL)
	if len(reports) == 0 {
		plain = fmt.Sprintf("No high or critical reports since %s.", since.UTC().Format(time.RFC1123))
		return m.toAdmins(subject, plain, templates.RenderGenericEmail(subject, plain, m.baseURL))
	}
	return m.toAdmins(subject, plain, templates.RenderDigestEmail(reports, since, m.baseURL))
}

// SendModeration tells the author of a report that its status changed.
// Anonymous reports and reports without an author are skipped.
func (m *Mailer) SendModeration(r models.Report, reason string) error {
	if r.Anonymous || r.UserEmail == "" {
		return nil
	}
	subject := "[CrimeShield] your report was reviewed"
	plain := fmt.Sprintf("The status of your report %q is now %s.", r.Title, r.Status)
	if reason != "" {
		plain += "\nReason: " + reason
	}
	return m.deliver("", r.UserEmail, subject, plain, templates.RenderModerationEmail(r, reason, m.baseURL))
}

func (m *Mailer) toAdmins(subject, plain, htmlContent string) error {
	if len(m.admins) == 0 {
		return ErrDisabled
	}
	var errs []error
	for _, to := range m.admins {
		if err := m.deliver("Moderator", to, subject, plain, htmlContent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Mailer) deliver(toName, toEmail, subject, plain, htmlContent string) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	from := mail.NewEmail(fromName, fromAddress)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plain, htmlContent)

	status, body, err := m.send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", toEmail)
		return err
	}
	if status >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", status, "body", body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", status)
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}
