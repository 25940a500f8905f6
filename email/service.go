package email

import (
	"fmt"
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"gorm.io/datatypes"
)

// SendResult is the outcome of a single send attempt. Exactly one of the
// three outcomes holds: delivered, skipped (opt-out), or failed.
type SendResult struct {
	Success   bool
	Skipped   bool
	Reason    string
	MessageID string
	Error     string
}

// Deliverer hands a rendered message to the transactional email provider.
type Deliverer interface {
	Deliver(toEmail, toName string, msg Rendered) (messageID string, err error)
}

var deliverer Deliverer = &sendgridDeliverer{}

// SetDeliverer swaps the provider client; tests use this to stub delivery.
func SetDeliverer(d Deliverer) { deliverer = d }

type sendgridDeliverer struct{}

func (s *sendgridDeliverer) Deliver(toEmail, toName string, msg Rendered) (string, error) {
	cfg := config.AppConfig
	if cfg.SendgridKey == "" {
		// No provider configured: log instead of sending so development
		// environments never email real users.
		log.Printf("[EMAIL] SendGrid not configured - would send %q to %s", msg.Subject, toEmail)
		return fmt.Sprintf("mock-%d", time.Now().UnixNano()), nil
	}

	from := sgmail.NewEmail(cfg.EmailName, cfg.EmailFrom)
	to := sgmail.NewEmail(toName, toEmail)
	m := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	m.ReplyTo = sgmail.NewEmail("", cfg.ReplyTo)

	client := sendgrid.NewSendClient(cfg.SendgridKey)
	resp, err := client.Send(m)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// Send renders and delivers one lifecycle email to a user, honoring the
// marketing opt-out and recording an EmailLog row for every attempt.
func Send(userID uint, templateKey string, vars Variables) SendResult {
	template, ok := GetTemplate(templateKey)
	if !ok {
		return SendResult{Error: fmt.Sprintf("unknown email template: %s", templateKey)}
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return SendResult{Error: "user not found or has no email"}
	}
	if user.Email == "" {
		return SendResult{Error: "user not found or has no email"}
	}

	if template.IsMarketing && user.MarketingOptOut {
		logEmail(userID, templateKey, models.EmailCancelled, `{"reason":"user opted out of marketing emails"}`)
		return SendResult{Success: true, Skipped: true, Reason: "user opted out of marketing emails"}
	}

	merged := Variables{"name": user.Name, "email": user.Email}
	if user.Name == "" {
		delete(merged, "name")
	}
	for k, v := range vars {
		merged[k] = v
	}
	if user.UnsubscribeToken != "" {
		merged["unsubscribeUrl"] = config.AppConfig.AppURL + "/unsubscribe/" + user.UnsubscribeToken
	}

	rendered := Render(template, merged)

	messageID, err := deliverer.Deliver(user.Email, user.Name, rendered)
	if err != nil {
		logEmail(userID, templateKey, models.EmailFailed, fmt.Sprintf(`{"error":%q}`, err.Error()))
		log.Printf("[EMAIL] Failed to send %s to user %d: %v", templateKey, userID, err)
		return SendResult{Error: err.Error()}
	}

	logEmail(userID, templateKey, models.EmailSent, fmt.Sprintf(`{"message_id":%q,"recipient":%q}`, messageID, user.Email))
	return SendResult{Success: true, MessageID: messageID}
}

// WasEmailSent reports whether this template was sent to the user within the
// window. Used to keep OAuth double-callbacks from re-sending welcomes.
func WasEmailSent(userID uint, templateKey string, withinHours int) bool {
	since := time.Now().Add(-time.Duration(withinHours) * time.Hour)

	var count int64
	database.Database.Db.Model(&models.EmailLog{}).
		Where("user_id = ? AND template = ? AND status = ? AND sent_at >= ?",
			userID, templateKey, models.EmailSent, since).
		Count(&count)
	return count > 0
}

// logEmail writes the audit row; failures are logged and swallowed since a
// missing audit entry must not fail the send path.
func logEmail(userID uint, templateKey, status, detail string) {
	now := time.Now()
	row := models.EmailLog{
		UserID:   userID,
		Template: templateKey,
		Status:   status,
		Detail:   datatypes.JSON([]byte(detail)),
	}
	if status == models.EmailSent {
		row.SentAt = &now
	}
	if err := database.Database.Db.Create(&row).Error; err != nil {
		log.Printf("[EMAIL] Failed to write email log for user %d: %v", userID, err)
	}
}
