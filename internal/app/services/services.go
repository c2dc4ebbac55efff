package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/schedule"
	"github.com/yigit/exampapers/internal/pkg/cache"
)

// Services defined in this package:
// - ExamPaperService: CSV upload, question maintenance, publishing and read views
// - ManualAssessmentService: inline-authored assessments and student upcoming exams

// AssessmentStore is the persistence both workflows run on.
// *repositories.AssessmentRepository implements it.
type AssessmentStore interface {
	CreateWithQuestions(ctx context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error)
	GetAssessment(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]models.Question, error)
	GetQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) (*models.Question, error)
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestionAndRenumber(ctx context.Context, assessmentID, questionID uuid.UUID) error
	DeleteAllQuestions(ctx context.Context, assessmentID uuid.UUID) (int64, error)
	DeleteAssessment(ctx context.Context, id uuid.UUID) error
	Publish(ctx context.Context, id uuid.UUID) error
	UpdateAssessment(ctx context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error)
	ListAssessments(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int64, error)
	CountOngoing(ctx context.Context, now time.Time) (int64, error)
	CountUpcoming(ctx context.Context, now time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountUpcomingForStudent(ctx context.Context, studentID int64, now time.Time) (int64, error)
	FindUpcomingForStudent(ctx context.Context, studentID int64, now time.Time) ([]models.UpcomingExam, error)
}

// CourseDirectory looks up courses and enrollments.
// *repositories.CourseRepository implements it.
type CourseDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, studentID int64) (bool, error)
}

// previews caches exam paper read views and drops them whenever a paper changes
type previews struct {
	cache *cache.Cache
	ttl   time.Duration
}

func (p previews) paperKey(id uuid.UUID) string     { return p.cache.Key("preview", id.String()) }
func (p previews) questionsKey(id uuid.UUID) string { return p.cache.Key("questions", id.String()) }

func (p previews) invalidate(ctx context.Context, id uuid.UUID) {
	p.cache.SafeDelete(ctx, p.paperKey(id), p.questionsKey(id))
}

func toQuestionResponses(questions []models.Question) []dto.QuestionResponse {
	out := make([]dto.QuestionResponse, len(questions))
	for i, q := range questions {
		out[i] = dto.QuestionResponse{
			ID:             q.ID,
			QuestionNumber: q.QuestionNumber,
			Content:        q.Content,
			Options:        nonNil(q.Options),
			Answer:         q.Answer,
		}
	}
	return out
}

func toStudentQuestions(questions []dto.QuestionResponse) []dto.StudentQuestionResponse {
	out := make([]dto.StudentQuestionResponse, len(questions))
	for i, q := range questions {
		out[i] = dto.StudentQuestionResponse{
			ID:             q.ID,
			QuestionNumber: q.QuestionNumber,
			Content:        q.Content,
			Options:        nonNil(q.Options),
		}
	}
	return out
}

func toExamPaperResponse(v *schedule.Validator, a *models.Assessment, questions []models.Question) *dto.ExamPaperResponse {
	resp := &dto.ExamPaperResponse{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		CourseID:       a.CourseID,
		CourseUnit:     a.CourseUnit,
		CourseUnitCode: a.CourseUnitCode,
		Duration:       a.Duration,
		ScheduledDate:  v.FormatDate(a.ScheduledDate),
		StartTime:      v.FormatTime(a.StartTime),
		EndTime:        v.FormatTime(a.EndTime),
		IsDraft:        a.IsDraft,
		Source:         string(a.Source),
		CreatedBy:      a.CreatedBy,
		QuestionCount:  len(questions),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.Course != nil {
		resp.Course = &dto.CourseSummary{ID: a.Course.ID, Code: a.Course.Code, Name: a.Course.Name}
	}
	if len(questions) > 0 {
		resp.Questions = toQuestionResponses(questions)
	}
	return resp
}

func toUpcomingExamResponses(v *schedule.Validator, exams []models.UpcomingExam) []dto.UpcomingExamResponse {
	out := make([]dto.UpcomingExamResponse, len(exams))
	for i, e := range exams {
		out[i] = dto.UpcomingExamResponse{
			ID:             e.ID,
			Title:          e.Title,
			CourseID:       e.CourseID,
			CourseCode:     e.CourseCode,
			CourseName:     e.CourseName,
			CourseUnit:     e.CourseUnit,
			CourseUnitCode: e.CourseUnitCode,
			Duration:       e.Duration,
			ScheduledDate:  v.FormatDate(e.ScheduledDate),
			StartTime:      v.FormatTime(e.StartTime),
			EndTime:        v.FormatTime(e.EndTime),
		}
	}
	return out
}

func nonNil(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}
