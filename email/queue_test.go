package email

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	config.LoadConfig()
	os.Exit(m.Run())
}

func setupTestDb(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	database.RunMigrations(db)
	database.Database = database.DbInstance{Db: db}
	return db
}

// stubDeliverer records deliveries instead of talking to the provider.
type stubDeliverer struct {
	recipients []string
	err        error
}

func (s *stubDeliverer) Deliver(toEmail, toName string, msg Rendered) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.recipients = append(s.recipients, toEmail)
	return "stub-message-id", nil
}

func useStub(t *testing.T) *stubDeliverer {
	t.Helper()
	stub := &stubDeliverer{}
	SetDeliverer(stub)
	t.Cleanup(func() { SetDeliverer(&sendgridDeliverer{}) })
	return stub
}

func createUser(t *testing.T, db *gorm.DB, optOut bool) models.User {
	t.Helper()
	user := models.User{
		Name:            "Queue Tester",
		Email:           fmt.Sprintf("%s@example.com", strings.ReplaceAll(t.Name(), "/", "_")),
		Password:        "x",
		MarketingOptOut: optOut,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestQueueEmailRejectsDuplicatePending(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	first := QueueEmail(user.ID, TemplateAbandonment1, time.Now().Add(time.Hour), nil)
	require.True(t, first.Success)

	second := QueueEmail(user.ID, TemplateAbandonment1, time.Now().Add(2*time.Hour), nil)
	assert.False(t, second.Success)
	assert.Contains(t, second.Error, "already queued")

	// A different template is unaffected
	third := QueueEmail(user.ID, TemplateAbandonment2, time.Now().Add(time.Hour), nil)
	assert.True(t, third.Success)
}

func TestCancelQueuedEmailsFiltered(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	QueueEmail(user.ID, TemplateAbandonment1, time.Now().Add(time.Hour), nil)
	QueueEmail(user.ID, TemplateAbandonment2, time.Now().Add(time.Hour), nil)
	QueueEmail(user.ID, TemplateRenewalReminder, time.Now().Add(time.Hour), nil)

	cancelled, err := CancelQueuedEmails(user.ID, TemplateAbandonment1, TemplateAbandonment2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cancelled)

	var remaining []models.EmailQueue
	require.NoError(t, db.Where("user_id = ? AND status = ?", user.ID, models.EmailPending).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, TemplateRenewalReminder, remaining[0].Template)
}

func TestProcessSendsDueEntry(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, false)

	QueueEmail(user.ID, TemplateWelcome, time.Now().Add(-time.Minute), Variables{"name": "Ada"})

	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, stub.recipients, 1)
	assert.Equal(t, user.Email, stub.recipients[0])

	var entry models.EmailQueue
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.EmailSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)

	// The audit log has the send
	var logs []models.EmailLog
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EmailSent, logs[0].Status)
}

func TestProcessLeavesFutureEntries(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, false)

	QueueEmail(user.ID, TemplateWelcome, time.Now().Add(time.Hour), nil)

	result := ProcessEmailQueue()
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, stub.recipients)
	assert.Equal(t, int64(1), PendingCount())
	_ = db
}

func TestProcessCancelsStaleEntry(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, false)

	entry := models.EmailQueue{
		UserID:       user.ID,
		Template:     TemplateWelcome,
		ScheduledFor: time.Now().AddDate(0, 0, -8),
		Status:       models.EmailPending,
	}
	require.NoError(t, db.Create(&entry).Error)

	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, stub.recipients)

	require.NoError(t, db.First(&entry, entry.ID).Error)
	assert.Equal(t, models.EmailCancelled, entry.Status)
	assert.Contains(t, entry.Error, "expired")
}

func TestProcessCancelsOrphanedEntry(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)

	entry := models.EmailQueue{
		UserID:       9999,
		Template:     TemplateWelcome,
		ScheduledFor: time.Now().Add(-time.Minute),
		Status:       models.EmailPending,
	}
	require.NoError(t, db.Create(&entry).Error)

	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, stub.recipients)

	require.NoError(t, db.First(&entry, entry.ID).Error)
	assert.Equal(t, models.EmailCancelled, entry.Status)
}

func TestProcessCancelsAbandonmentForSubscriber(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, false)

	require.NoError(t, db.Create(&models.Subscription{
		UserID: user.ID,
		Status: models.SubscriptionActive,
	}).Error)

	QueueEmail(user.ID, TemplateAbandonment2, time.Now().Add(-time.Minute), nil)

	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, stub.recipients)

	var entry models.EmailQueue
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.EmailCancelled, entry.Status)
	assert.Contains(t, entry.Error, "subscribed")
}

func TestProcessRetriesThenFails(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	stub.err = errors.New("provider unavailable")
	user := createUser(t, db, false)

	scheduledFor := time.Now().Add(-time.Minute)
	QueueEmail(user.ID, TemplateWelcome, scheduledFor, nil)

	// Two failures leave the entry pending with the original schedule
	for i := 1; i <= 2; i++ {
		result := ProcessEmailQueue()
		assert.Equal(t, 0, result.Processed)
		assert.Equal(t, 0, result.Failed)

		var entry models.EmailQueue
		require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
		assert.Equal(t, models.EmailPending, entry.Status)
		assert.Equal(t, i, entry.RetryCount)
		assert.WithinDuration(t, scheduledFor, entry.ScheduledFor, time.Second)
	}

	// The third failure is terminal
	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Failed)

	var entry models.EmailQueue
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.EmailFailed, entry.Status)
	assert.Equal(t, 3, entry.RetryCount)
	assert.Contains(t, entry.Error, "provider unavailable")
	assert.NotNil(t, entry.ProcessedAt)
}

func TestProcessCancelsMarketingForOptedOut(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, true)

	QueueEmail(user.ID, TemplateAbandonment1, time.Now().Add(-time.Minute), nil)

	result := ProcessEmailQueue()
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, stub.recipients)

	var entry models.EmailQueue
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.EmailCancelled, entry.Status)
}

func TestSendHonorsMarketingOptOut(t *testing.T) {
	db := setupTestDb(t)
	stub := useStub(t)
	user := createUser(t, db, true)

	// Marketing templates are skipped
	result := Send(user.ID, TemplateAbandonment1, nil)
	assert.True(t, result.Skipped)
	assert.Empty(t, stub.recipients)

	// Transactional templates still go out
	result = Send(user.ID, TemplateWelcome, nil)
	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	require.Len(t, stub.recipients, 1)
	_ = db
}

func TestWasEmailSent(t *testing.T) {
	db := setupTestDb(t)
	useStub(t)
	user := createUser(t, db, false)

	assert.False(t, WasEmailSent(user.ID, TemplateWelcome, 24))

	result := Send(user.ID, TemplateWelcome, nil)
	require.True(t, result.Success)

	assert.True(t, WasEmailSent(user.ID, TemplateWelcome, 24))
	assert.False(t, WasEmailSent(user.ID, TemplateStartJourney, 24))
}

func TestStats(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	QueueEmail(user.ID, TemplateAbandonment1, time.Now().Add(time.Hour), nil)
	require.NoError(t, db.Create(&models.EmailQueue{
		UserID: user.ID, Template: TemplateWelcome, ScheduledFor: time.Now(), Status: models.EmailSent,
	}).Error)
	require.NoError(t, db.Create(&models.EmailQueue{
		UserID: user.ID, Template: TemplateWelcome, ScheduledFor: time.Now(), Status: models.EmailCancelled,
	}).Error)

	stats := Stats()
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, int64(0), stats.Failed)
}
