package dto

import (
	"github.com/google/uuid"
	"github.com/yigit/exampapers/internal/pkg/patch"
)

// QuestionInput is an inline question of a manual assessment
type QuestionInput struct {
	Content string   `json:"content" binding:"required,notblank" example:"Which scheduler is preemptive?"`
	Options []string `json:"options" example:"FCFS,Round Robin"`
	Answer  string   `json:"answer" example:"Round Robin"`
}

// CreateAssessmentRequest creates a manually authored assessment
type CreateAssessmentRequest struct {
	Title          string          `json:"title" binding:"required,notblank,max=255" example:"Quiz 3"`
	Description    string          `json:"description" example:"Scheduling"`
	CourseID       int64           `json:"courseId" binding:"required,gt=0" example:"1"`
	CourseUnit     string          `json:"courseUnit" binding:"max=255"`
	CourseUnitCode string          `json:"courseUnitCode" binding:"max=64"`
	Duration       int             `json:"duration" binding:"gte=0" example:"30"`
	ScheduledDate  string          `json:"scheduledDate" binding:"required" example:"2025-02-10 00:00:00"`
	StartTime      string          `json:"startTime" binding:"required" example:"10:00:00"`
	EndTime        string          `json:"endTime" binding:"required" example:"10:30:00"`
	IsDraft        *bool           `json:"isDraft"`
	Questions      []QuestionInput `json:"questions" binding:"dive"`
}

// UpdateAssessmentRequest partially updates a manual assessment. Omitted fields keep
// their stored value; present fields overwrite it, zero values included.
type UpdateAssessmentRequest struct {
	Title          patch.Field[string]          `json:"title" swaggertype:"string"`
	Description    patch.Field[string]          `json:"description" swaggertype:"string"`
	CourseID       patch.Field[int64]           `json:"courseId" swaggertype:"integer"`
	CourseUnit     patch.Field[string]          `json:"courseUnit" swaggertype:"string"`
	CourseUnitCode patch.Field[string]          `json:"courseUnitCode" swaggertype:"string"`
	Duration       patch.Field[int]             `json:"duration" swaggertype:"integer"`
	ScheduledDate  patch.Field[string]          `json:"scheduledDate" swaggertype:"string"`
	StartTime      patch.Field[string]          `json:"startTime" swaggertype:"string"`
	EndTime        patch.Field[string]          `json:"endTime" swaggertype:"string"`
	IsDraft        patch.Field[bool]            `json:"isDraft" swaggertype:"boolean"`
	Questions      patch.Field[[]QuestionInput] `json:"questions" swaggertype:"array,object"`
}

// UpcomingExamResponse is the student-facing listing entry of a scheduled exam
type UpcomingExamResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title" example:"Operating Systems Midterm"`
	CourseID       int64     `json:"courseId" example:"1"`
	CourseCode     string    `json:"courseCode" example:"CENG302"`
	CourseName     string    `json:"courseName" example:"Operating Systems"`
	CourseUnit     string    `json:"courseUnit" example:"Process Management"`
	CourseUnitCode string    `json:"courseUnitCode" example:"OS-U2"`
	Duration       int       `json:"duration" example:"120"`
	ScheduledDate  string    `json:"scheduledDate" example:"2025-01-01 00:00:00"`
	StartTime      string    `json:"startTime" example:"09:00:00"`
	EndTime        string    `json:"endTime" example:"11:00:00"`
}
