// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"edu-forum-go/internal/model"
	"edu-forum-go/pkg/database"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// DB opens a private in-memory SQLite database with the schema migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with an already hashed password.
func CreateUser(tb testing.TB, db *gorm.DB, username, role string) *model.User {
	tb.Helper()
	u := &model.User{Username: username, Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateDiscussion inserts a discussion owned by teacherID.
func CreateDiscussion(tb testing.TB, db *gorm.DB, teacherID uint, title string) *model.Discussion {
	tb.Helper()
	d := &model.Discussion{Title: title, Content: title + " content", TeacherID: teacherID}
	if err := db.Create(d).Error; err != nil {
		tb.Fatalf("create discussion %s: %v", title, err)
	}
	return d
}
