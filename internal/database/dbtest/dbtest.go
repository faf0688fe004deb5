// Package dbtest opens throwaway in-memory databases with the production schema.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/fullpos/poscloud/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Uint64

// Open returns a migrated SQLite database private to the calling test.
// A single connection is used so concurrent transactions serialize the way
// row locks would on the production server.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:poscloud_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: model.NamingStrategy(""),
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// SeedCompany inserts a company and returns its id.
func SeedCompany(t testing.TB, db *gorm.DB, name, rnc string) uint {
	t.Helper()
	company := model.Company{Name: name, RNC: rnc}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company.ID
}
