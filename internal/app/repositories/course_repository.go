package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

// CourseRepository reads the course catalogue and its enrollments
type CourseRepository struct {
	db *pgxpool.Pool
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
	}
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `
		SELECT id, code, name, description
		FROM courses
		WHERE id = $1
	`

	var course models.Course
	err := r.db.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Code,
		&course.Name,
		&course.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}

	return &course, nil
}

// IsEnrolled reports whether the student is enrolled in the course
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error) {
	var enrolled bool
	query := `SELECT EXISTS(SELECT 1 FROM course_enrollments WHERE course_id = $1 AND student_id = $2)`
	if err := r.db.QueryRow(ctx, query, courseID, studentID).Scan(&enrolled); err != nil {
		return false, fmt.Errorf("error checking enrollment: %w", err)
	}
	return enrolled, nil
}

// Upsert creates a course or returns the existing one with the same code
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (code, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	if err := r.db.QueryRow(ctx, query, course.Code, course.Name, course.Description).Scan(&course.ID); err != nil {
		return fmt.Errorf("error upserting course %s: %w", course.Code, err)
	}
	return nil
}

// Enroll adds a student to a course; enrolling twice is a no-op
func (r *CourseRepository) Enroll(ctx context.Context, courseID, studentID int64) error {
	query := `
		INSERT INTO course_enrollments (course_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, courseID, studentID); err != nil {
		return fmt.Errorf("error enrolling student %d in course %d: %w", studentID, courseID, err)
	}
	return nil
}
