// Package testdb opens an in-memory sqlite database with the academy schema
// for repository and service tests.
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		phone TEXT NOT NULL DEFAULT '',
		address_line1 TEXT NOT NULL DEFAULT '',
		address_line2 TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE courses (
		id INTEGER PRIMARY KEY,
		instructor_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		price INTEGER NOT NULL,
		currency TEXT NOT NULL,
		has_materials BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE videos (
		id INTEGER PRIMARY KEY,
		course_id INTEGER NOT NULL
	)`,
	`CREATE TABLE enrollments (
		id INTEGER PRIMARY KEY,
		student_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		requires_delivery BOOLEAN NOT NULL DEFAULT FALSE,
		approved_by INTEGER,
		approved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_enrollments_student_course ON enrollments (student_id, course_id)`,
	`CREATE TABLE video_progress (
		id INTEGER PRIMARY KEY,
		enrollment_id INTEGER NOT NULL,
		video_id INTEGER NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at DATETIME,
		credit_awarded BOOLEAN NOT NULL DEFAULT FALSE,
		credit_awarded_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_video_progress_enrollment_video ON video_progress (enrollment_id, video_id)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		order_id TEXT NOT NULL,
		student_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		enrollment_id INTEGER,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		gateway_payment_id TEXT NOT NULL DEFAULT '',
		status_message TEXT NOT NULL DEFAULT '',
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payments_order_id ON payments (order_id)`,
	`CREATE TABLE payment_events (
		id INTEGER PRIMARY KEY,
		order_id TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		gateway_payment_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		received_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payment_events_callback ON payment_events (order_id, status_code, gateway_payment_id)`,
	`CREATE TABLE certificates (
		id INTEGER PRIMARY KEY,
		student_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		enrollment_id INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		issued_at DATETIME NOT NULL,
		storage_key TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_certificates_student_course ON certificates (student_id, course_id)`,
	`CREATE TABLE deliveries (
		id INTEGER PRIMARY KEY,
		enrollment_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		recipient_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		address_line1 TEXT NOT NULL,
		address_line2 TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL,
		district TEXT NOT NULL,
		postal_code TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		tracking_number TEXT,
		courier TEXT,
		notes TEXT,
		shipped_at DATETIME,
		delivered_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_deliveries_enrollment ON deliveries (enrollment_id)`,
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY,
		recipient_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh database. Each call gets its own named in-memory file.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:academy_%d?mode=memory&cache=shared", time.Now().UnixNano())
	return open(t, dsn, 1)
}

// OpenConcurrent returns a file-backed database with a pool of conns
// connections, so goroutines really race on unique indexes and conditional
// updates. Writers wait on the lock instead of failing.
func OpenConcurrent(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "academy.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	return open(t, dsn, conns)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// Node returns a snowflake node for tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

type User struct {
	ID           snowflake.ID
	Name         string
	Email        string
	Role         string
	Phone        string
	AddressLine1 string
	City         string
	District     string
	PostalCode   string
}

func SeedUser(t testing.TB, conn *gorm.DB, u User) {
	t.Helper()
	if u.Role == "" {
		u.Role = "student"
	}
	err := conn.Exec(
		`INSERT INTO users (id, name, email, role, phone, address_line1, city, district, postal_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Role, u.Phone, u.AddressLine1, u.City, u.District, u.PostalCode,
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

type Course struct {
	ID           snowflake.ID
	InstructorID snowflake.ID
	Title        string
	Price        int64
	Currency     string
	HasMaterials bool
	Videos       int
}

// SeedCourse inserts the course and its videos and returns the video ids.
func SeedCourse(t testing.TB, conn *gorm.DB, node *snowflake.Node, c Course) []snowflake.ID {
	t.Helper()
	if c.Currency == "" {
		c.Currency = "LKR"
	}
	err := conn.Exec(
		`INSERT INTO courses (id, instructor_id, title, price, currency, has_materials)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.InstructorID, c.Title, c.Price, c.Currency, c.HasMaterials,
	).Error
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	videos := make([]snowflake.ID, 0, c.Videos)
	for i := 0; i < c.Videos; i++ {
		id := node.Generate()
		if err := conn.Exec(`INSERT INTO videos (id, course_id) VALUES (?, ?)`, id, c.ID).Error; err != nil {
			t.Fatalf("seed video: %v", err)
		}
		videos = append(videos, id)
	}
	return videos
}

// Count returns the number of rows matching the query.
func Count(t testing.TB, conn *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := conn.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
