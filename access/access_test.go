package access

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func createUser(t *testing.T, db *gorm.DB, override bool) models.User {
	t.Helper()
	user := models.User{
		Name:           "Test User",
		Email:          fmt.Sprintf("%s@example.com", strings.ReplaceAll(t.Name(), "/", "_")),
		Password:       "x",
		AccessOverride: override,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createSubscription(t *testing.T, db *gorm.DB, userID uint, status string, periodEnd *time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Subscription{
		UserID:           userID,
		Status:           status,
		Plan:             "MONTHLY",
		CurrentPeriodEnd: periodEnd,
	}).Error)
}

func TestCheckUserAccess(t *testing.T) {
	future := time.Now().AddDate(0, 0, 1)
	past := time.Now().AddDate(0, 0, -1)

	cases := []struct {
		name      string
		override  bool
		status    string
		periodEnd *time.Time
		hasAccess bool
		reason    string
		softLock  bool
	}{
		{name: "no subscription", hasAccess: false, reason: ReasonNoAccess},
		{name: "active", status: models.SubscriptionActive, hasAccess: true, reason: ReasonSubscribed},
		{name: "past due soft locks", status: models.SubscriptionPastDue, hasAccess: true, reason: ReasonPastDue, softLock: true},
		{name: "cancelled in grace", status: models.SubscriptionCancelled, periodEnd: &future, hasAccess: true, reason: ReasonGracePeriod},
		{name: "cancelled past period end", status: models.SubscriptionCancelled, periodEnd: &past, hasAccess: false, reason: ReasonNoAccess},
		{name: "incomplete", status: models.SubscriptionIncomplete, hasAccess: false, reason: ReasonNoAccess},
		{name: "override without subscription", override: true, hasAccess: true, reason: ReasonOverride},
		{name: "override beats cancelled", override: true, status: models.SubscriptionCancelled, periodEnd: &past, hasAccess: true, reason: ReasonOverride},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDb(t)
			user := createUser(t, db, tc.override)
			if tc.status != "" {
				createSubscription(t, db, user.ID, tc.status, tc.periodEnd)
			}

			result, err := CheckUserAccess(user.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.hasAccess, result.HasAccess)
			assert.Equal(t, tc.reason, result.Reason)
			assert.Equal(t, tc.softLock, result.SoftLock)
		})
	}
}

func TestCheckUserAccessMissingUser(t *testing.T) {
	setupTestDb(t)

	result, err := CheckUserAccess(999)
	require.NoError(t, err)
	assert.False(t, result.HasAccess)
	assert.Equal(t, ReasonNoAccess, result.Reason)
}

func TestCheckLessonAccessFreeLesson(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	module := courseModels.Module{Title: "Module 1", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&module).Error)
	lesson := courseModels.Lesson{ModuleID: module.ID, Title: "Intro", OrderIndex: 1, IsPublished: true, IsFree: true}
	require.NoError(t, db.Create(&lesson).Error)

	// Free lesson in an unlocked module needs no subscription
	result, err := CheckLessonAccess(user.ID, lesson.ID)
	require.NoError(t, err)
	assert.True(t, result.HasAccess)
	assert.Equal(t, ReasonFree, result.Reason)
	assert.True(t, result.ModuleUnlocked)
}

func TestCheckLessonAccessLockedModule(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)
	createSubscription(t, db, user.ID, models.SubscriptionActive, nil)

	m1 := courseModels.Module{Title: "Foundations", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&m1).Error)
	m2 := courseModels.Module{Title: "Advanced", OrderIndex: 2, IsPublished: true}
	require.NoError(t, db.Create(&m2).Error)

	l1 := courseModels.Lesson{ModuleID: m1.ID, Title: "Basics", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&l1).Error)
	l2 := courseModels.Lesson{ModuleID: m2.ID, Title: "Deep Dive", OrderIndex: 1, IsPublished: true, IsFree: true}
	require.NoError(t, db.Create(&l2).Error)

	// Even a free lesson is denied while its module is locked
	result, err := CheckLessonAccess(user.ID, l2.ID)
	require.NoError(t, err)
	assert.False(t, result.HasAccess)
	assert.False(t, result.ModuleUnlocked)
	require.NotNil(t, result.LockedByModule)
	assert.Equal(t, m1.ID, result.LockedByModule.ModuleID)
	assert.Equal(t, "Foundations", result.LockedByModule.ModuleTitle)

	// Completing the first module opens it up
	require.NoError(t, progress.MarkComplete(user.ID, l1.ID))

	result, err = CheckLessonAccess(user.ID, l2.ID)
	require.NoError(t, err)
	assert.True(t, result.HasAccess)
	assert.True(t, result.ModuleUnlocked)
}

func TestCheckLessonAccessPaidLessonNoSub(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	module := courseModels.Module{Title: "Module 1", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&module).Error)
	lesson := courseModels.Lesson{ModuleID: module.ID, Title: "Paid", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&lesson).Error)

	result, err := CheckLessonAccess(user.ID, lesson.ID)
	require.NoError(t, err)
	assert.False(t, result.HasAccess)
	assert.Equal(t, ReasonNoAccess, result.Reason)
	assert.True(t, result.ModuleUnlocked)
}

func TestCheckLessonAccessOverrideOnPaidLesson(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, true)

	module := courseModels.Module{Title: "Module 1", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&module).Error)
	lesson := courseModels.Lesson{ModuleID: module.ID, Title: "Paid", OrderIndex: 1, IsPublished: true}
	require.NoError(t, db.Create(&lesson).Error)

	result, err := CheckLessonAccess(user.ID, lesson.ID)
	require.NoError(t, err)
	assert.True(t, result.HasAccess)
	assert.Equal(t, ReasonOverride, result.Reason)
}

func TestCheckLessonAccessMissingLesson(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	result, err := CheckLessonAccess(user.ID, 999)
	require.NoError(t, err)
	assert.False(t, result.HasAccess)
}

func TestToggleAccessOverride(t *testing.T) {
	db := setupTestDb(t)
	user := createUser(t, db, false)

	require.NoError(t, ToggleAccessOverride(user.ID, 1, true))

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.True(t, updated.AccessOverride)

	// The audit event lands in the same transaction
	var events []models.Event
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "access_override_granted", events[0].Name)

	require.NoError(t, ToggleAccessOverride(user.ID, 1, false))
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.False(t, updated.AccessOverride)

	assert.Equal(t, gorm.ErrRecordNotFound, ToggleAccessOverride(999, 1, true))
}
