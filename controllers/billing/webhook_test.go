package billingController

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "whsec_test"

func TestMain(m *testing.M) {
	config.LoadConfig()
	os.Exit(m.Run())
}

func setupTest(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	database.RunMigrations(db)
	database.Database = database.DbInstance{Db: db}

	oldSecret := config.AppConfig.BillingWebhookSecret
	config.AppConfig.BillingWebhookSecret = testSecret
	t.Cleanup(func() { config.AppConfig.BillingWebhookSecret = oldSecret })

	app := fiber.New()
	app.Post("/webhooks/billing", HandleWebhook)
	return app, db
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, app *fiber.App, payload []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/billing", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Webhook-Signature", signature)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Name:     "Billing Tester",
		Email:    fmt.Sprintf("%s@example.com", strings.ReplaceAll(t.Name(), "/", "_")),
		Password: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, _ := setupTest(t)

	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"user_id":1}}`)
	assert.Equal(t, fiber.StatusUnauthorized, postEvent(t, app, payload, "deadbeef"))
	assert.Equal(t, fiber.StatusUnauthorized, postEvent(t, app, payload, ""))
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db)

	periodEnd := time.Now().AddDate(0, 1, 0).Unix()
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.completed","data":{"customer":"cus_1","subscription":"sub_1","user_id":%d,"plan":"MONTHLY","current_period_end":%d}}`,
		user.ID, periodEnd,
	))

	assert.Equal(t, fiber.StatusOK, postEvent(t, app, payload, sign(payload)))

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, "MONTHLY", sub.Plan)
	assert.Equal(t, "sub_1", sub.ProviderSubID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd.Unix())

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, "cus_1", updated.BillingCustomer)
}

func TestWebhookPaymentFailedMarksPastDue(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db)
	require.NoError(t, db.Create(&models.Subscription{
		UserID: user.ID,
		Status: models.SubscriptionActive,
	}).Error)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_2","type":"invoice.payment_failed","data":{"user_id":%d}}`, user.ID,
	))
	assert.Equal(t, fiber.StatusOK, postEvent(t, app, payload, sign(payload)))

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionPastDue, sub.Status)
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db)
	require.NoError(t, db.Create(&models.Subscription{
		UserID: user.ID,
		Status: models.SubscriptionActive,
	}).Error)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_3","type":"customer.subscription.deleted","data":{"user_id":%d}}`, user.ID,
	))
	assert.Equal(t, fiber.StatusOK, postEvent(t, app, payload, sign(payload)))

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)
}

func TestWebhookResolvesUserByCustomer(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db)
	require.NoError(t, db.Model(&user).Update("billing_customer", "cus_42").Error)

	payload := []byte(`{"id":"evt_4","type":"invoice.paid","data":{"customer":"cus_42"}}`)
	assert.Equal(t, fiber.StatusOK, postEvent(t, app, payload, sign(payload)))

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestWebhookIgnoresUnknownEvent(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_5","type":"charge.refunded","data":{"user_id":%d}}`, user.ID,
	))
	assert.Equal(t, fiber.StatusOK, postEvent(t, app, payload, sign(payload)))

	var count int64
	db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
