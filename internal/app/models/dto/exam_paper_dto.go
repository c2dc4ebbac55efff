package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yigit/exampapers/internal/pkg/patch"
)

// UploadExamPaperRequest carries the metadata fields of a multipart exam paper upload.
// The questions arrive in the "file" part.
type UploadExamPaperRequest struct {
	Title          string `form:"title" json:"title" binding:"required,notblank,max=255" example:"Operating Systems Midterm"`
	Description    string `form:"description" json:"description" example:"Chapters 1-5"`
	CourseID       int64  `form:"courseId" json:"courseId" binding:"required,gt=0" example:"1"`
	CourseUnit     string `form:"courseUnit" json:"courseUnit" binding:"max=255" example:"Process Management"`
	CourseUnitCode string `form:"courseUnitCode" json:"courseUnitCode" binding:"max=64" example:"OS-U2"`
	Duration       int    `form:"duration" json:"duration" binding:"gte=0" example:"120"`
	ScheduledDate  string `form:"scheduledDate" json:"scheduledDate" binding:"required" example:"2025-01-01 00:00:00"`
	StartTime      string `form:"startTime" json:"startTime" binding:"required" example:"09:00:00"`
	EndTime        string `form:"endTime" json:"endTime" binding:"required" example:"11:00:00"`
	IsDraft        *bool  `form:"isDraft" json:"isDraft" example:"true"`
}

// QuestionResponse is the instructor view of a question
type QuestionResponse struct {
	ID             uuid.UUID `json:"id"`
	QuestionNumber int       `json:"questionNumber" example:"1"`
	Content        string    `json:"content" example:"What does a context switch save?"`
	Options        []string  `json:"options" example:"Registers,Heap,Disk"`
	Answer         string    `json:"answer" example:"Registers"`
}

// StudentQuestionResponse is the student view of a question. It has no answer field.
type StudentQuestionResponse struct {
	ID             uuid.UUID `json:"id"`
	QuestionNumber int       `json:"questionNumber" example:"1"`
	Content        string    `json:"content" example:"What does a context switch save?"`
	Options        []string  `json:"options" example:"Registers,Heap,Disk"`
}

// CourseSummary identifies the course an exam paper belongs to
type CourseSummary struct {
	ID   int64  `json:"id" example:"1"`
	Code string `json:"code" example:"CENG302"`
	Name string `json:"name" example:"Operating Systems"`
}

// ExamPaperResponse describes an assessment with its schedule in display format
type ExamPaperResponse struct {
	ID             uuid.UUID          `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	CourseID       int64              `json:"courseId"`
	Course         *CourseSummary     `json:"course,omitempty"`
	CourseUnit     string             `json:"courseUnit"`
	CourseUnitCode string             `json:"courseUnitCode"`
	Duration       int                `json:"duration" example:"120"`
	ScheduledDate  string             `json:"scheduledDate" example:"2025-01-01 00:00:00"`
	StartTime      string             `json:"startTime" example:"09:00:00"`
	EndTime        string             `json:"endTime" example:"11:00:00"`
	IsDraft        bool               `json:"isDraft"`
	Source         string             `json:"source" example:"UPLOAD" enums:"UPLOAD,MANUAL"`
	CreatedBy      int64              `json:"createdBy"`
	QuestionCount  int                `json:"questionCount"`
	Questions      []QuestionResponse `json:"questions,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// ExamPaperListResponse is one page of exam papers
type ExamPaperListResponse struct {
	ExamPapers []ExamPaperResponse `json:"examPapers"`
	Pagination PaginationInfo      `json:"pagination"`
}

// ListExamPapersQuery filters the exam paper listing
type ListExamPapersQuery struct {
	CourseID  *int64  `form:"courseId" binding:"omitempty,gt=0"`
	IsDraft   *bool   `form:"isDraft"`
	CreatedBy *int64  `form:"createdBy" binding:"omitempty,gt=0"`
	Source    *string `form:"source" binding:"omitempty,oneof=UPLOAD MANUAL"`
	Page      int     `form:"page"`
	Size      int     `form:"size"`
}

// UpdateQuestionRequest partially updates a question. Content and options are only
// changed when present; a missing or null answer clears the stored answer.
type UpdateQuestionRequest struct {
	Content patch.Field[string]   `json:"content" swaggertype:"string"`
	Options patch.Field[[]string] `json:"options" swaggertype:"array,string"`
	Answer  patch.Field[string]   `json:"answer" swaggertype:"string"`
}

// DeleteQuestionsResponse reports a bulk question deletion
type DeleteQuestionsResponse struct {
	Deleted int64 `json:"deleted" example:"12"`
}

// DashboardStatsResponse aggregates the exam paper counters
type DashboardStatsResponse struct {
	Total    int64 `json:"total" example:"40"`
	Ongoing  int64 `json:"ongoing" example:"2"`
	Upcoming int64 `json:"upcoming" example:"7"`
}
