package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/schedule"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/cache"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

// ManualAssessmentService defines the interface for manually authored assessments
type ManualAssessmentService interface {
	CreateManualAssessment(ctx context.Context, createdBy int64, req *dto.CreateAssessmentRequest) (*dto.ExamPaperResponse, error)
	GetManualAssessment(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error)
	UpdateManualAssessment(ctx context.Context, id uuid.UUID, req *dto.UpdateAssessmentRequest) (*dto.ExamPaperResponse, error)
	FindUpcomingExams(ctx context.Context, studentID int64) ([]dto.UpcomingExamResponse, error)
	CountUpcomingExams(ctx context.Context, studentID int64) (int64, error)
}

// manualAssessmentServiceImpl implements ManualAssessmentService
type manualAssessmentServiceImpl struct {
	store     AssessmentStore
	courses   CourseDirectory
	validator *schedule.Validator
	previews  previews
	now       func() time.Time
}

// NewManualAssessmentService creates a new ManualAssessmentService
func NewManualAssessmentService(
	store AssessmentStore,
	courses CourseDirectory,
	validator *schedule.Validator,
	previewCache *cache.Cache,
) ManualAssessmentService {
	return &manualAssessmentServiceImpl{
		store:     store,
		courses:   courses,
		validator: validator,
		previews:  previews{cache: previewCache},
		now:       time.Now,
	}
}

// CreateManualAssessment creates an assessment with its inline questions numbered 1..N
func (s *manualAssessmentServiceImpl) CreateManualAssessment(ctx context.Context, createdBy int64, req *dto.CreateAssessmentRequest) (*dto.ExamPaperResponse, error) {
	slot, err := s.validator.Parse(req.ScheduledDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := slot.Ordered(); err != nil {
		return nil, err
	}

	questions, err := questionsFromInput(req.Questions)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	isDraft := true
	if req.IsDraft != nil {
		isDraft = *req.IsDraft
	}

	assessment := &models.Assessment{
		Title:          req.Title,
		Description:    req.Description,
		CourseID:       course.ID,
		CourseUnit:     req.CourseUnit,
		CourseUnitCode: req.CourseUnitCode,
		Duration:       req.Duration,
		ScheduledDate:  slot.Date,
		StartTime:      slot.Start,
		EndTime:        slot.End,
		CreatedBy:      createdBy,
		IsDraft:        isDraft,
		Source:         models.SourceManual,
		Course:         course,
	}

	created, err := s.store.CreateWithQuestions(ctx, assessment, questions)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("assessmentID", assessment.ID.String()).
		Int("questions", len(created)).
		Msg("Manual assessment created")

	return toExamPaperResponse(s.validator, assessment, created), nil
}

// GetManualAssessment returns an assessment with its questions
func (s *manualAssessmentServiceImpl) GetManualAssessment(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error) {
	assessment, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return toExamPaperResponse(s.validator, assessment, questions), nil
}

// UpdateManualAssessment merges the supplied fields into the stored assessment. The
// schedule is validated after merging. Supplying questions replaces the whole set.
// Publishing is one way: isDraft=true on a published assessment is a conflict.
func (s *manualAssessmentServiceImpl) UpdateManualAssessment(ctx context.Context, id uuid.UUID, req *dto.UpdateAssessmentRequest) (*dto.ExamPaperResponse, error) {
	assessment, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsDraft.Set && req.IsDraft.Value && !assessment.IsDraft {
		return nil, apperrors.ErrAlreadyPublished
	}

	req.Title.Apply(&assessment.Title)
	req.Description.Apply(&assessment.Description)
	req.CourseUnit.Apply(&assessment.CourseUnit)
	req.CourseUnitCode.Apply(&assessment.CourseUnitCode)
	req.Duration.Apply(&assessment.Duration)
	req.IsDraft.Apply(&assessment.IsDraft)

	if strings.TrimSpace(assessment.Title) == "" {
		return nil, apperrors.NewValidationError("title must not be empty", map[string]interface{}{"field": "title"})
	}
	if assessment.Duration < 0 {
		return nil, apperrors.NewValidationError("duration must not be negative", map[string]interface{}{"field": "duration"})
	}

	if req.CourseID.Set && req.CourseID.Value != assessment.CourseID {
		course, err := s.courses.GetByID(ctx, req.CourseID.Value)
		if err != nil {
			return nil, err
		}
		assessment.CourseID = course.ID
		assessment.Course = course
	}

	slot, err := s.validator.Parse(
		req.ScheduledDate.Or(s.validator.FormatDate(assessment.ScheduledDate)),
		req.StartTime.Or(s.validator.FormatTime(assessment.StartTime)),
		req.EndTime.Or(s.validator.FormatTime(assessment.EndTime)),
	)
	if err != nil {
		return nil, err
	}
	if err := slot.Ordered(); err != nil {
		return nil, err
	}
	assessment.ScheduledDate, assessment.StartTime, assessment.EndTime = slot.Date, slot.Start, slot.End

	var replacement []models.Question
	if req.Questions.Set {
		if replacement, err = questionsFromInput(req.Questions.Value); err != nil {
			return nil, err
		}
	}

	questions, err := s.store.UpdateAssessment(ctx, assessment, replacement)
	if err != nil {
		return nil, err
	}
	s.previews.invalidate(ctx, id)

	if questions == nil {
		if questions, err = s.store.ListQuestions(ctx, id); err != nil {
			return nil, err
		}
	}
	return toExamPaperResponse(s.validator, assessment, questions), nil
}

// FindUpcomingExams lists the published exams ahead of the student, earliest first
func (s *manualAssessmentServiceImpl) FindUpcomingExams(ctx context.Context, studentID int64) ([]dto.UpcomingExamResponse, error) {
	exams, err := s.store.FindUpcomingForStudent(ctx, studentID, s.now())
	if err != nil {
		return nil, fmt.Errorf("error finding upcoming exams: %w", err)
	}
	return toUpcomingExamResponses(s.validator, exams), nil
}

// CountUpcomingExams counts the published exams ahead of the student
func (s *manualAssessmentServiceImpl) CountUpcomingExams(ctx context.Context, studentID int64) (int64, error) {
	return s.store.CountUpcomingForStudent(ctx, studentID, s.now())
}

// questionsFromInput converts inline questions, always returning a non-nil slice
func questionsFromInput(inputs []dto.QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Content) == "" {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("question %d has no content", i+1),
				map[string]interface{}{"field": fmt.Sprintf("questions[%d].content", i)},
			)
		}
		questions = append(questions, models.Question{
			Content: in.Content,
			Options: nonNil(in.Options),
			Answer:  in.Answer,
		})
	}
	return questions, nil
}
