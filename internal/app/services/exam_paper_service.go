package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/exampapers/internal/app/csvimport"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/schedule"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/cache"
	"github.com/yigit/exampapers/internal/pkg/filestorage"
	"github.com/yigit/exampapers/internal/pkg/helpers"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

// ExamPaperService defines the interface for exam paper operations
type ExamPaperService interface {
	UploadExamPaper(ctx context.Context, createdBy int64, req *dto.UploadExamPaperRequest, upload filestorage.Upload) (*dto.ExamPaperResponse, error)
	ListExamPapers(ctx context.Context, query *dto.ListExamPapersQuery) (*dto.ExamPaperListResponse, error)
	PreviewExamPaper(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error)
	PreviewQuestions(ctx context.Context, id uuid.UUID) ([]dto.QuestionResponse, error)
	QuestionsWithoutAnswer(ctx context.Context, id uuid.UUID, viewer models.Viewer) ([]dto.StudentQuestionResponse, error)
	UpdateQuestion(ctx context.Context, assessmentID, questionID uuid.UUID, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) error
	DeleteAllQuestions(ctx context.Context, assessmentID uuid.UUID) (*dto.DeleteQuestionsResponse, error)
	DeleteExamPaper(ctx context.Context, id uuid.UUID) error
	PublishExamPaper(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error)
	GetOngoingCount(ctx context.Context) (int64, error)
	GetUpcomingCount(ctx context.Context) (int64, error)
	CountAllExamPapers(ctx context.Context) (int64, error)
	GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
}

// examPaperServiceImpl implements ExamPaperService
type examPaperServiceImpl struct {
	store     AssessmentStore
	courses   CourseDirectory
	parser    *csvimport.Parser
	validator *schedule.Validator
	spool     filestorage.Spool
	previews  previews
	now       func() time.Time
}

// NewExamPaperService creates a new ExamPaperService
func NewExamPaperService(
	store AssessmentStore,
	courses CourseDirectory,
	parser *csvimport.Parser,
	validator *schedule.Validator,
	spool filestorage.Spool,
	previewCache *cache.Cache,
	previewTTL time.Duration,
) ExamPaperService {
	return &examPaperServiceImpl{
		store:     store,
		courses:   courses,
		parser:    parser,
		validator: validator,
		spool:     spool,
		previews:  previews{cache: previewCache, ttl: previewTTL},
		now:       time.Now,
	}
}

// UploadExamPaper parses a CSV of questions and creates a draft exam paper from it.
// Nothing is persisted unless every step succeeds.
func (s *examPaperServiceImpl) UploadExamPaper(ctx context.Context, createdBy int64, req *dto.UploadExamPaperRequest, upload filestorage.Upload) (*dto.ExamPaperResponse, error) {
	if upload.Reader == nil || !strings.EqualFold(filepath.Ext(upload.Filename), ".csv") {
		return nil, apperrors.ErrInvalidFile
	}

	records, err := s.parseUpload(upload)
	if err != nil {
		return nil, err
	}

	slot, err := s.validator.Parse(req.ScheduledDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := slot.Ordered(); err != nil {
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
		Source:         models.SourceUpload,
		Course:         course,
	}

	questions := make([]models.Question, len(records))
	for i, rec := range records {
		questions[i] = models.Question{Content: rec.Content, Options: rec.Options, Answer: rec.Answer}
	}

	created, err := s.store.CreateWithQuestions(ctx, assessment, questions)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("assessmentID", assessment.ID.String()).
		Int64("courseID", course.ID).
		Int("questions", len(created)).
		Msg("Exam paper uploaded")

	return toExamPaperResponse(s.validator, assessment, created), nil
}

// parseUpload spools the upload, parses it and removes the spooled copy
func (s *examPaperServiceImpl) parseUpload(upload filestorage.Upload) ([]csvimport.Record, error) {
	path, err := s.spool.Save(upload)
	if err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	defer func() {
		if err := s.spool.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove spooled upload")
		}
	}()

	f, err := s.spool.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spooled upload: %w", err)
	}
	defer f.Close()

	records, err := s.parser.ParseAll(f)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyQuestionSet) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFile, err)
	}
	return records, nil
}

// ListExamPapers returns one page of exam papers matching the query
func (s *examPaperServiceImpl) ListExamPapers(ctx context.Context, query *dto.ListExamPapersQuery) (*dto.ExamPaperListResponse, error) {
	filter := models.AssessmentFilter{
		CourseID:  query.CourseID,
		IsDraft:   query.IsDraft,
		CreatedBy: query.CreatedBy,
		Page:      query.Page,
		Size:      query.Size,
	}
	if query.Source != nil {
		source := models.AssessmentSource(*query.Source)
		filter.Source = &source
	}

	assessments, total, err := s.store.ListAssessments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing exam papers: %w", err)
	}

	papers := make([]dto.ExamPaperResponse, len(assessments))
	for i := range assessments {
		papers[i] = *toExamPaperResponse(s.validator, &assessments[i], nil)
	}

	_, size := helpers.CalculateOffsetLimit(query.Page, query.Size)
	return &dto.ExamPaperListResponse{
		ExamPapers: papers,
		Pagination: helpers.NewPaginationInfo(total, query.Page, size),
	}, nil
}

// PreviewExamPaper returns an exam paper with its questions
func (s *examPaperServiceImpl) PreviewExamPaper(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error) {
	var resp dto.ExamPaperResponse
	err := s.previews.cache.CacheOrExecute(ctx, s.previews.paperKey(id), &resp, s.previews.ttl, func() (any, error) {
		assessment, err := s.store.GetAssessment(ctx, id)
		if err != nil {
			return nil, err
		}
		questions, err := s.store.ListQuestions(ctx, id)
		if err != nil {
			return nil, err
		}
		return toExamPaperResponse(s.validator, assessment, questions), nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewQuestions returns the questions of an exam paper, answers included
func (s *examPaperServiceImpl) PreviewQuestions(ctx context.Context, id uuid.UUID) ([]dto.QuestionResponse, error) {
	var questions []dto.QuestionResponse
	err := s.previews.cache.CacheOrExecute(ctx, s.previews.questionsKey(id), &questions, s.previews.ttl, func() (any, error) {
		if _, err := s.store.GetAssessment(ctx, id); err != nil {
			return nil, err
		}
		stored, err := s.store.ListQuestions(ctx, id)
		if err != nil {
			return nil, err
		}
		return toQuestionResponses(stored), nil
	})
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []dto.QuestionResponse{}
	}
	return questions, nil
}

// QuestionsWithoutAnswer returns the questions of an exam paper with answers stripped.
// Students only see published papers of courses they are enrolled in.
func (s *examPaperServiceImpl) QuestionsWithoutAnswer(ctx context.Context, id uuid.UUID, viewer models.Viewer) ([]dto.StudentQuestionResponse, error) {
	if viewer.IsStudent() {
		assessment, err := s.store.GetAssessment(ctx, id)
		if err != nil {
			return nil, err
		}
		if !assessment.IsPublished() {
			return nil, apperrors.ErrAssessmentNotFound
		}
		enrolled, err := s.courses.IsEnrolled(ctx, assessment.CourseID, viewer.UserID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, apperrors.NewForbiddenError("not enrolled in the course of this exam paper")
		}
	}

	questions, err := s.PreviewQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStudentQuestions(questions), nil
}

// UpdateQuestion changes content and options only when supplied. The answer is always
// rewritten: an omitted or null answer is stored as "".
func (s *examPaperServiceImpl) UpdateQuestion(ctx context.Context, assessmentID, questionID uuid.UUID, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error) {
	question, err := s.store.GetQuestion(ctx, assessmentID, questionID)
	if err != nil {
		return nil, err
	}

	req.Content.Apply(&question.Content)
	if req.Options.Set {
		question.Options = nonNil(req.Options.Value)
	}
	question.Answer = req.Answer.Value

	if err := s.store.UpdateQuestion(ctx, question); err != nil {
		return nil, err
	}
	s.previews.invalidate(ctx, assessmentID)

	resp := toQuestionResponses([]models.Question{*question})[0]
	return &resp, nil
}

// DeleteQuestion removes a question and renumbers the rest to stay contiguous
func (s *examPaperServiceImpl) DeleteQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) error {
	if err := s.store.DeleteQuestionAndRenumber(ctx, assessmentID, questionID); err != nil {
		return err
	}
	s.previews.invalidate(ctx, assessmentID)
	return nil
}

// DeleteAllQuestions removes every question of an exam paper
func (s *examPaperServiceImpl) DeleteAllQuestions(ctx context.Context, assessmentID uuid.UUID) (*dto.DeleteQuestionsResponse, error) {
	removed, err := s.store.DeleteAllQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	s.previews.invalidate(ctx, assessmentID)
	return &dto.DeleteQuestionsResponse{Deleted: removed}, nil
}

// DeleteExamPaper deletes an exam paper that no longer has questions
func (s *examPaperServiceImpl) DeleteExamPaper(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteAssessment(ctx, id); err != nil {
		return err
	}
	s.previews.invalidate(ctx, id)
	logger.Info().Str("assessmentID", id.String()).Msg("Exam paper deleted")
	return nil
}

// PublishExamPaper makes an exam paper visible to students. Publishing twice is allowed.
func (s *examPaperServiceImpl) PublishExamPaper(ctx context.Context, id uuid.UUID) (*dto.ExamPaperResponse, error) {
	if err := s.store.Publish(ctx, id); err != nil {
		return nil, err
	}
	s.previews.invalidate(ctx, id)
	return s.PreviewExamPaper(ctx, id)
}

// GetOngoingCount counts exam papers in progress right now
func (s *examPaperServiceImpl) GetOngoingCount(ctx context.Context) (int64, error) {
	return s.store.CountOngoing(ctx, s.now())
}

// GetUpcomingCount counts exam papers that have not started yet
func (s *examPaperServiceImpl) GetUpcomingCount(ctx context.Context) (int64, error) {
	return s.store.CountUpcoming(ctx, s.now())
}

// CountAllExamPapers counts every exam paper
func (s *examPaperServiceImpl) CountAllExamPapers(ctx context.Context) (int64, error) {
	return s.store.CountAll(ctx)
}

// GetDashboardStats runs the three counters concurrently against a single instant
func (s *examPaperServiceImpl) GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	now := s.now()
	stats := &dto.DashboardStatsResponse{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Total, err = s.store.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Ongoing, err = s.store.CountOngoing(gctx, now)
		return err
	})
	g.Go(func() (err error) {
		stats.Upcoming, err = s.store.CountUpcoming(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error computing dashboard stats: %w", err)
	}

	return stats, nil
}
