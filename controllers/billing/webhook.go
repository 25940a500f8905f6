package billingController

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"lms/config"
	"lms/database"
	"lms/email"
	"lms/middleware"
	"lms/models"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// providerEvent is the billing provider's webhook envelope. The core only
// reacts to these events; it never calls the provider to mutate state.
type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Customer         string `json:"customer"`
		Subscription     string `json:"subscription"`
		UserID           uint   `json:"user_id"` // checkout metadata
		Status           string `json:"status"`
		Plan             string `json:"plan"`
		CurrentPeriodEnd int64  `json:"current_period_end"` // unix seconds
		AmountDue        int    `json:"amount_due"`         // pence
	} `json:"data"`
}

// verifySignature checks the HMAC-SHA256 hex signature over the raw payload.
func verifySignature(payload []byte, signature string) bool {
	secret := config.AppConfig.BillingWebhookSecret
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleWebhook is the single billing webhook endpoint. Signature mismatch is
// rejected; an unknown event type is acknowledged and ignored so the provider
// doesn't retry it forever.
func HandleWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	if !verifySignature(payload, c.Get("Webhook-Signature")) {
		log.Println("[BILLING] Webhook signature verification failed")
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid signature!", nil)
	}

	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payload!", nil)
	}

	userID := resolveUser(event)
	if userID == 0 {
		log.Printf("[BILLING] No user for event %s (%s) - acknowledging", event.ID, event.Type)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Acknowledged.", nil)
	}

	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = handleCheckoutCompleted(userID, event)
	case "invoice.paid":
		err = handleInvoicePaid(userID, event)
	case "invoice.payment_failed":
		err = handlePaymentFailed(userID, event)
	case "customer.subscription.updated":
		err = handleSubscriptionUpdated(userID, event)
	case "customer.subscription.deleted":
		err = handleSubscriptionDeleted(userID, event)
	default:
		log.Printf("[BILLING] Ignoring event type %s", event.Type)
	}

	if err != nil {
		log.Printf("[BILLING] Error handling %s for user %d: %v", event.Type, userID, err)
		// Non-2xx so the provider retries; subscription state must not be lost
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Processed.", nil)
}

// resolveUser maps the event to a local user, preferring the checkout
// metadata user id, then the stored billing customer id.
func resolveUser(event providerEvent) uint {
	if event.Data.UserID != 0 {
		return event.Data.UserID
	}
	if event.Data.Customer != "" {
		var user models.User
		if err := database.Database.Db.
			Where("billing_customer = ? AND is_deleted = ?", event.Data.Customer, false).
			First(&user).Error; err == nil {
			return user.ID
		}
	}
	return 0
}

func periodEnd(event providerEvent) *time.Time {
	if event.Data.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(event.Data.CurrentPeriodEnd, 0)
	return &t
}

func upsertSubscription(userID uint, updates map[string]interface{}) error {
	db := database.Database.Db

	sub := models.Subscription{UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&sub).Error; err != nil && err != gorm.ErrDuplicatedKey {
		return err
	}

	return db.Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func handleCheckoutCompleted(userID uint, event providerEvent) error {
	updates := map[string]interface{}{
		"status":          models.SubscriptionActive,
		"plan":            event.Data.Plan,
		"provider_sub_id": event.Data.Subscription,
	}
	if end := periodEnd(event); end != nil {
		updates["current_period_end"] = *end
	}
	if err := upsertSubscription(userID, updates); err != nil {
		return err
	}

	if event.Data.Customer != "" {
		database.Database.Db.Model(&models.User{}).
			Where("id = ?", userID).
			Update("billing_customer", event.Data.Customer)
	}

	utils.TrackEvent(userID, utils.EventSubscriptionStarted, map[string]interface{}{"event_id": event.ID, "plan": event.Data.Plan})

	// The triggering condition for the abandonment sequence no longer holds
	go func() {
		if _, err := email.CancelQueuedEmails(userID,
			email.TemplateAbandonment1, email.TemplateAbandonment2, email.TemplateAbandonment3,
			email.TemplateStartJourney); err != nil {
			log.Printf("[BILLING] Failed to cancel queued emails for user %d: %v", userID, err)
		}
	}()

	return nil
}

func handleInvoicePaid(userID uint, event providerEvent) error {
	updates := map[string]interface{}{"status": models.SubscriptionActive}
	if end := periodEnd(event); end != nil {
		updates["current_period_end"] = *end
	}
	if err := upsertSubscription(userID, updates); err != nil {
		return err
	}

	utils.TrackEvent(userID, utils.EventSubscriptionRenewed, map[string]interface{}{"event_id": event.ID})

	go func() {
		// Payment recovered: the queued final warning is obsolete
		if _, err := email.CancelQueuedEmails(userID, email.TemplatePaymentFailedFinal); err != nil {
			log.Printf("[BILLING] Failed to cancel final warning for user %d: %v", userID, err)
		}
		if end := periodEnd(event); end != nil {
			email.ScheduleRenewalReminder(userID, *end, event.Data.AmountDue)
		}
	}()

	return nil
}

func handlePaymentFailed(userID uint, event providerEvent) error {
	if err := upsertSubscription(userID, map[string]interface{}{
		"status": models.SubscriptionPastDue,
	}); err != nil {
		return err
	}

	utils.TrackEvent(userID, utils.EventPaymentFailed, map[string]interface{}{"event_id": event.ID})

	go email.TriggerPaymentFailed(userID)

	return nil
}

func handleSubscriptionUpdated(userID uint, event providerEvent) error {
	updates := map[string]interface{}{}
	if event.Data.Status != "" {
		updates["status"] = event.Data.Status
	}
	if event.Data.Plan != "" {
		updates["plan"] = event.Data.Plan
	}
	if end := periodEnd(event); end != nil {
		updates["current_period_end"] = *end
	}
	if len(updates) == 0 {
		return nil
	}
	return upsertSubscription(userID, updates)
}

func handleSubscriptionDeleted(userID uint, event providerEvent) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.SubscriptionCancelled,
		"cancelled_at": now,
	}
	end := periodEnd(event)
	if end != nil {
		updates["current_period_end"] = *end
	}
	if err := upsertSubscription(userID, updates); err != nil {
		return err
	}

	utils.TrackEvent(userID, utils.EventSubscriptionCancelled, map[string]interface{}{"event_id": event.ID})

	accessEnd := now
	if end != nil {
		accessEnd = *end
	}
	go func() {
		email.TriggerSubscriptionCancelled(userID, accessEnd)
		if _, err := email.CancelQueuedEmails(userID, email.TemplateRenewalReminder); err != nil {
			log.Printf("[BILLING] Failed to cancel renewal reminder for user %d: %v", userID, err)
		}
	}()

	return nil
}
