// Package storetest provides database fixtures for tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/pans/models"
)

// SQLite opens a private in-memory database with the pans and users tables
// migrated. Connections are capped at one so concurrent writers serialise
// instead of tripping over SQLite's table locks.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.Pan{}, &models.User{}); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedUser inserts a profile row.
func SeedUser(tb testing.TB, db *gorm.DB, id, name, avatar string) models.User {
	tb.Helper()
	u := models.User{ID: id, Name: name, Avatar: avatar}
	if err := db.Create(&u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
