package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/services"
	"github.com/yigit/exampapers/internal/middleware"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/filestorage"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

// ExamPaperController handles exam paper upload and maintenance
type ExamPaperController struct {
	examPaperService services.ExamPaperService
	maxUploadBytes   int64
}

// NewExamPaperController creates a new ExamPaperController
func NewExamPaperController(examPaperService services.ExamPaperService, maxUploadBytes int64) *ExamPaperController {
	return &ExamPaperController{
		examPaperService: examPaperService,
		maxUploadBytes:   maxUploadBytes,
	}
}

// UploadExamPaper handles creating an exam paper from a CSV of questions
// @Summary Upload an exam paper
// @Description Creates a draft exam paper from a CSV file (columns content, answer, options) and schedule metadata
// @Tags exam-papers
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file of questions"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param courseId formData int true "Course ID"
// @Param courseUnit formData string false "Course unit"
// @Param courseUnitCode formData string false "Course unit code"
// @Param duration formData int false "Duration in minutes"
// @Param scheduledDate formData string true "Scheduled date (YYYY-MM-DD HH:mm:ss)"
// @Param startTime formData string true "Start time (HH:mm:ss)"
// @Param endTime formData string true "End time (HH:mm:ss)"
// @Param isDraft formData bool false "Keep as draft (default true)"
// @Success 201 {object} dto.APIResponse{data=dto.ExamPaperResponse} "Exam paper created"
// @Failure 400 {object} dto.ErrorResponse "Invalid file, empty question set or bad schedule"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /exam-papers/upload [post]
func (c *ExamPaperController) UploadExamPaper(ctx *gin.Context) {
	viewer, ok := middleware.CurrentViewer(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}

	var req dto.UploadExamPaperRequest
	if err := ctx.ShouldBind(&req); err != nil {
		if bodyTooLarge(err) {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeFileTooLarge, "Uploaded file is too large").
					WithDetails(map[string]int64{"maxBytes": c.maxUploadBytes}),
			))
			return
		}
		middleware.BindingError(ctx, err)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.ErrInvalidFile)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	paper, err := c.examPaperService.UploadExamPaper(ctx.Request.Context(), viewer.UserID, &req, filestorage.Upload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   file,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(paper))
}

// ListExamPapers handles listing exam papers
// @Summary List exam papers
// @Description Lists exam papers, newest first, with optional filters and pagination
// @Tags exam-papers
// @Produce json
// @Param courseId query int false "Filter by course ID"
// @Param isDraft query bool false "Filter by draft flag"
// @Param createdBy query int false "Filter by author"
// @Param source query string false "Filter by source (UPLOAD, MANUAL)"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20)"
// @Success 200 {object} dto.APIResponse{data=dto.ExamPaperListResponse} "Exam papers retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /exam-papers [get]
func (c *ExamPaperController) ListExamPapers(ctx *gin.Context) {
	var query dto.ListExamPapersQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	list, err := c.examPaperService.ListExamPapers(ctx.Request.Context(), &query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list))
}

// PreviewExamPaper handles retrieving an exam paper with its questions
// @Summary Preview an exam paper
// @Tags exam-papers
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.ExamPaperResponse} "Exam paper retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid exam paper ID"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Security BearerAuth
// @Router /exam-papers/{id} [get]
func (c *ExamPaperController) PreviewExamPaper(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	paper, err := c.examPaperService.PreviewExamPaper(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(paper))
}

// PreviewQuestions handles retrieving the questions of an exam paper, answers included
// @Summary Preview questions
// @Tags exam-papers
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=[]dto.QuestionResponse} "Questions retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid exam paper ID"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/questions [get]
func (c *ExamPaperController) PreviewQuestions(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	questions, err := c.examPaperService.PreviewQuestions(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(questions))
}

// QuestionsWithoutAnswer handles the student view of an exam paper
// @Summary Questions without answers
// @Description Students only see published papers of courses they are enrolled in
// @Tags exam-papers
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentQuestionResponse} "Questions retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid exam paper ID"
// @Failure 403 {object} dto.ErrorResponse "Not enrolled"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/questions/student-view [get]
func (c *ExamPaperController) QuestionsWithoutAnswer(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	viewer, ok := middleware.CurrentViewer(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	questions, err := c.examPaperService.QuestionsWithoutAnswer(ctx.Request.Context(), id, viewer)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(questions))
}

// UpdateQuestion handles partially updating a question
// @Summary Update a question
// @Description Content and options change only when present. A missing or null answer clears the stored answer.
// @Tags exam-papers
// @Accept json
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Param questionId path string true "Question ID" format(uuid)
// @Param request body dto.UpdateQuestionRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.QuestionResponse} "Question updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/questions/{questionId} [patch]
func (c *ExamPaperController) UpdateQuestion(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(ctx, "questionId")
	if !ok {
		return
	}

	var req dto.UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	question, err := c.examPaperService.UpdateQuestion(ctx.Request.Context(), id, questionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(question))
}

// DeleteQuestion handles deleting a question; the remaining ones are renumbered
// @Summary Delete a question
// @Tags exam-papers
// @Param id path string true "Exam paper ID" format(uuid)
// @Param questionId path string true "Question ID" format(uuid)
// @Success 204 "Question deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID"
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/questions/{questionId} [delete]
func (c *ExamPaperController) DeleteQuestion(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(ctx, "questionId")
	if !ok {
		return
	}

	if err := c.examPaperService.DeleteQuestion(ctx.Request.Context(), id, questionID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// DeleteAllQuestions handles removing every question of an exam paper
// @Summary Delete all questions
// @Tags exam-papers
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.DeleteQuestionsResponse} "Questions deleted"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/questions [delete]
func (c *ExamPaperController) DeleteAllQuestions(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	removed, err := c.examPaperService.DeleteAllQuestions(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(removed))
}

// DeleteExamPaper handles deleting an exam paper that has no questions left
// @Summary Delete an exam paper
// @Tags exam-papers
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 204 "Exam paper deleted"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Failure 409 {object} dto.ErrorResponse "Exam paper still has questions"
// @Security BearerAuth
// @Router /exam-papers/{id} [delete]
func (c *ExamPaperController) DeleteExamPaper(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.examPaperService.DeleteExamPaper(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// PublishExamPaper handles publishing an exam paper
// @Summary Publish an exam paper
// @Description Makes the paper visible to enrolled students. Publishing twice succeeds.
// @Tags exam-papers
// @Produce json
// @Param id path string true "Exam paper ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.ExamPaperResponse} "Exam paper published"
// @Failure 404 {object} dto.ErrorResponse "Exam paper not found"
// @Security BearerAuth
// @Router /exam-papers/{id}/publish [patch]
func (c *ExamPaperController) PublishExamPaper(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	paper, err := c.examPaperService.PublishExamPaper(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(paper))
}

// GetOngoingCount handles counting exam papers in progress
// @Summary Count ongoing exam papers
// @Tags exam-papers
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CountResponse}
// @Security BearerAuth
// @Router /exam-papers/ongoing/count [get]
func (c *ExamPaperController) GetOngoingCount(ctx *gin.Context) {
	c.respondCount(ctx, c.examPaperService.GetOngoingCount)
}

// GetUpcomingCount handles counting exam papers that have not started
// @Summary Count upcoming exam papers
// @Tags exam-papers
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CountResponse}
// @Security BearerAuth
// @Router /exam-papers/upcoming/count [get]
func (c *ExamPaperController) GetUpcomingCount(ctx *gin.Context) {
	c.respondCount(ctx, c.examPaperService.GetUpcomingCount)
}

// CountAllExamPapers handles counting every exam paper
// @Summary Count all exam papers
// @Tags exam-papers
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CountResponse}
// @Security BearerAuth
// @Router /exam-papers/count [get]
func (c *ExamPaperController) CountAllExamPapers(ctx *gin.Context) {
	c.respondCount(ctx, c.examPaperService.CountAllExamPapers)
}

// GetDashboardStats handles the combined exam paper counters
// @Summary Exam paper dashboard counters
// @Tags exam-papers
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStatsResponse}
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /exam-papers/stats [get]
func (c *ExamPaperController) GetDashboardStats(ctx *gin.Context) {
	stats, err := c.examPaperService.GetDashboardStats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

type countFunc func(ctx context.Context) (int64, error)

func (c *ExamPaperController) respondCount(ctx *gin.Context, count countFunc) {
	n, err := count(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CountResponse{Count: n}))
}

// uuidParam parses a UUID path parameter, writing a 400 response when it is malformed
func uuidParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		middleware.BadRequest(ctx, "Invalid "+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// bodyTooLarge reports whether err comes from the upload size limit. The multipart
// reader does not always wrap the underlying error.
func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
