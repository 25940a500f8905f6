package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"lms/database"
	courseModels "lms/models/course"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
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

func reorderApp() *fiber.App {
	app := fiber.New()
	app.Put("/reorder", validators.Reorder(), AdminReorderModules)
	return app
}

func putReorder(t *testing.T, app *fiber.App, ids []uint) int {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"ordered_ids": ids})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/reorder", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func moduleOrders(t *testing.T, db *gorm.DB) map[uint]int {
	t.Helper()
	var modules []courseModels.Module
	require.NoError(t, db.Where("is_deleted = ?", false).Find(&modules).Error)
	orders := make(map[uint]int, len(modules))
	for _, m := range modules {
		orders[m.ID] = m.OrderIndex
	}
	return orders
}

func seedModules(t *testing.T, db *gorm.DB, n int) []courseModels.Module {
	t.Helper()
	modules := make([]courseModels.Module, n)
	for i := range modules {
		modules[i] = courseModels.Module{
			Title:       fmt.Sprintf("Module %d", i+1),
			OrderIndex:  i + 1,
			IsPublished: true,
		}
		require.NoError(t, db.Create(&modules[i]).Error)
	}
	return modules
}

func TestAdminReorderModules(t *testing.T) {
	db := setupTestDb(t)
	modules := seedModules(t, db, 3)
	app := reorderApp()

	status := putReorder(t, app, []uint{modules[2].ID, modules[0].ID, modules[1].ID})
	assert.Equal(t, fiber.StatusOK, status)

	orders := moduleOrders(t, db)
	assert.Equal(t, 1, orders[modules[2].ID])
	assert.Equal(t, 2, orders[modules[0].ID])
	assert.Equal(t, 3, orders[modules[1].ID])
}

func TestAdminReorderModulesRollsBackOnUnknownID(t *testing.T) {
	db := setupTestDb(t)
	modules := seedModules(t, db, 3)
	app := reorderApp()

	// An unknown id anywhere in the list must leave every order untouched
	status := putReorder(t, app, []uint{modules[1].ID, 999, modules[0].ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	orders := moduleOrders(t, db)
	for i, m := range modules {
		assert.Equal(t, i+1, orders[m.ID])
	}
}

func TestAdminReorderModulesRejectsWrongCount(t *testing.T) {
	db := setupTestDb(t)
	modules := seedModules(t, db, 3)
	app := reorderApp()

	status := putReorder(t, app, []uint{modules[0].ID, modules[1].ID})
	assert.Equal(t, fiber.StatusBadRequest, status)
	_ = db
}

func TestAdminDeleteModuleCompactsOrdering(t *testing.T) {
	db := setupTestDb(t)
	modules := seedModules(t, db, 3)

	app := fiber.New()
	app.Delete("/module/:moduleId", validators.ModuleID(), AdminDeleteModule)

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/module/%d", modules[1].ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var deleted courseModels.Module
	require.NoError(t, db.First(&deleted, modules[1].ID).Error)
	assert.True(t, deleted.IsDeleted)

	// Survivors are re-packed to 1..N
	orders := moduleOrders(t, db)
	assert.Equal(t, 1, orders[modules[0].ID])
	assert.Equal(t, 2, orders[modules[2].ID])
}
