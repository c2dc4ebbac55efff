package models

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentSource records how an assessment was authored
type AssessmentSource string

const (
	SourceUpload AssessmentSource = "UPLOAD"
	SourceManual AssessmentSource = "MANUAL"
)

// Assessment is an exam paper scheduled against a course
type Assessment struct {
	ID             uuid.UUID        `db:"id"`
	Title          string           `db:"title"`
	Description    string           `db:"description"`
	CourseID       int64            `db:"course_id"`
	CourseUnit     string           `db:"course_unit"`
	CourseUnitCode string           `db:"course_unit_code"`
	Duration       int              `db:"duration"` // minutes
	ScheduledDate  time.Time        `db:"scheduled_date"`
	StartTime      time.Time        `db:"start_time"`
	EndTime        time.Time        `db:"end_time"`
	CreatedBy      int64            `db:"created_by"`
	IsDraft        bool             `db:"is_draft"`
	Source         AssessmentSource `db:"source"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`

	// Relations (populated when needed)
	Course    *Course    `json:"course,omitempty"`
	Questions []Question `json:"questions,omitempty"`
}

// IsPublished reports whether students may see the assessment
func (a *Assessment) IsPublished() bool {
	return !a.IsDraft
}

// UpcomingExam is the student-facing projection of a scheduled assessment
type UpcomingExam struct {
	ID             uuid.UUID `db:"id"`
	Title          string    `db:"title"`
	CourseID       int64     `db:"course_id"`
	CourseCode     string    `db:"course_code"`
	CourseName     string    `db:"course_name"`
	CourseUnit     string    `db:"course_unit"`
	CourseUnitCode string    `db:"course_unit_code"`
	Duration       int       `db:"duration"`
	ScheduledDate  time.Time `db:"scheduled_date"`
	StartTime      time.Time `db:"start_time"`
	EndTime        time.Time `db:"end_time"`
}

// AssessmentFilter narrows assessment listings. Nil fields are ignored.
type AssessmentFilter struct {
	CourseID  *int64
	IsDraft   *bool
	CreatedBy *int64
	Source    *AssessmentSource
	Page      int
	Size      int
}
