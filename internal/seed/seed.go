// Package seed bootstraps a demo catalog for local development.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail      = "admin@academy.local"
	defaultInstructorEmail = "instructor@academy.local"
	defaultStudentEmail    = "student@academy.local"
	defaultCourseTitle     = "Getting Started with Go"
	defaultCoursePrice     = 500000
	defaultCourseVideos    = 3
)

var Module = fx.Module("seed",
	fx.Invoke(run),
)

func run(conn *gorm.DB, node *snowflake.Node, cfg config.Config, log *zap.Logger) error {
	if !cfg.SeedDemo {
		return nil
	}
	if cfg.IsProduction() {
		log.Warn("SEED_DEMO ignored in production")
		return nil
	}
	res, err := EnsureDemoCatalog(context.Background(), conn, node)
	if err != nil {
		return err
	}
	log.Info("demo catalog ready",
		zap.String("admin_id", res.AdminID.String()),
		zap.String("instructor_id", res.InstructorID.String()),
		zap.String("student_id", res.StudentID.String()),
		zap.String("course_id", res.CourseID.String()),
	)
	return nil
}

type Result struct {
	AdminID      snowflake.ID
	InstructorID snowflake.ID
	StudentID    snowflake.ID
	CourseID     snowflake.ID
}

type demoUser struct {
	Name         string
	Email        string
	Role         string
	Phone        string
	AddressLine1 string
	City         string
	District     string
	PostalCode   string
}

// EnsureDemoCatalog seeds one user per role and a priced course with videos.
// Existing rows are found by email and title so repeated boots are no-ops.
func EnsureDemoCatalog(ctx context.Context, db *gorm.DB, node *snowflake.Node) (Result, error) {
	if db == nil {
		return Result{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Result{}, errors.New("seed id generator is required")
	}

	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res.AdminID, err = ensureUserTx(ctx, tx, node, demoUser{
			Name:  "Academy Admin",
			Email: defaultAdminEmail,
			Role:  "admin",
		})
		if err != nil {
			return err
		}
		res.InstructorID, err = ensureUserTx(ctx, tx, node, demoUser{
			Name:  "Demo Instructor",
			Email: defaultInstructorEmail,
			Role:  "instructor",
		})
		if err != nil {
			return err
		}
		res.StudentID, err = ensureUserTx(ctx, tx, node, demoUser{
			Name:         "Demo Student",
			Email:        defaultStudentEmail,
			Role:         "student",
			Phone:        "0770000000",
			AddressLine1: "1 Main Street",
			City:         "Colombo",
			District:     "Colombo",
			PostalCode:   "00100",
		})
		if err != nil {
			return err
		}
		res.CourseID, err = ensureCourseTx(ctx, tx, node, res.InstructorID)
		return err
	})
	return res, err
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, u demoUser) (snowflake.ID, error) {
	var row struct{ ID int64 }
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM users WHERE lower(email) = ? LIMIT 1`,
		strings.ToLower(u.Email),
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID != 0 {
		return snowflake.ID(row.ID), nil
	}

	id := node.Generate()
	err = tx.WithContext(ctx).Exec(
		`INSERT INTO users (id, name, email, role, phone, address_line1, city, district, postal_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Name, strings.ToLower(u.Email), u.Role, u.Phone, u.AddressLine1, u.City, u.District, u.PostalCode,
	).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureCourseTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, instructorID snowflake.ID) (snowflake.ID, error) {
	var row struct{ ID int64 }
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM courses WHERE instructor_id = ? AND title = ? LIMIT 1`,
		instructorID, defaultCourseTitle,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID != 0 {
		return snowflake.ID(row.ID), nil
	}

	courseID := node.Generate()
	err = tx.WithContext(ctx).Exec(
		`INSERT INTO courses (id, instructor_id, title, price, currency, has_materials)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		courseID, instructorID, defaultCourseTitle, defaultCoursePrice, "LKR", true,
	).Error
	if err != nil {
		return 0, err
	}
	for i := 0; i < defaultCourseVideos; i++ {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO videos (id, course_id) VALUES (?, ?)`,
			node.Generate(), courseID,
		).Error; err != nil {
			return 0, err
		}
	}
	return courseID, nil
}
