package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/services"
	"github.com/yigit/exampapers/internal/middleware"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

// AssessmentController handles manually authored assessments and student exam listings
type AssessmentController struct {
	assessmentService services.ManualAssessmentService
}

// NewAssessmentController creates a new AssessmentController
func NewAssessmentController(assessmentService services.ManualAssessmentService) *AssessmentController {
	return &AssessmentController{
		assessmentService: assessmentService,
	}
}

// CreateAssessment handles creating an assessment with inline questions
// @Summary Create a manual assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param request body dto.CreateAssessmentRequest true "Assessment with questions"
// @Success 201 {object} dto.APIResponse{data=dto.ExamPaperResponse} "Assessment created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or schedule"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Security BearerAuth
// @Router /assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	viewer, ok := middleware.CurrentViewer(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	var req dto.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	assessment, err := c.assessmentService.CreateManualAssessment(ctx.Request.Context(), viewer.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(assessment))
}

// GetAssessment handles retrieving an assessment with its questions
// @Summary Get a manual assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID" format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.ExamPaperResponse}
// @Failure 404 {object} dto.ErrorResponse "Assessment not found"
// @Security BearerAuth
// @Router /assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	assessment, err := c.assessmentService.GetManualAssessment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assessment))
}

// UpdateAssessment handles partially updating an assessment
// @Summary Update a manual assessment
// @Description Omitted fields keep their value; present fields overwrite it, zero values included. Sending questions replaces the whole set.
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID" format(uuid)
// @Param request body dto.UpdateAssessmentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ExamPaperResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request or schedule"
// @Failure 404 {object} dto.ErrorResponse "Assessment or course not found"
// @Failure 409 {object} dto.ErrorResponse "Published assessment cannot return to draft"
// @Security BearerAuth
// @Router /assessments/{id} [patch]
func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	assessment, err := c.assessmentService.UpdateManualAssessment(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assessment))
}

// GetMyUpcomingExams handles the caller's upcoming exams
// @Summary My upcoming exams
// @Description Published exams of the caller's courses from now on, earliest first
// @Tags students
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.UpcomingExamResponse}
// @Security BearerAuth
// @Router /students/me/upcoming-exams [get]
func (c *AssessmentController) GetMyUpcomingExams(ctx *gin.Context) {
	viewer, ok := middleware.CurrentViewer(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}
	c.respondUpcoming(ctx, viewer.UserID)
}

// CountMyUpcomingExams handles counting the caller's upcoming exams
// @Summary Count my upcoming exams
// @Tags students
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CountResponse}
// @Security BearerAuth
// @Router /students/me/upcoming-exams/count [get]
func (c *AssessmentController) CountMyUpcomingExams(ctx *gin.Context) {
	viewer, ok := middleware.CurrentViewer(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenInvalid)
		return
	}

	n, err := c.assessmentService.CountUpcomingExams(ctx.Request.Context(), viewer.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CountResponse{Count: n}))
}

// GetStudentUpcomingExams handles a student's upcoming exams for instructors
// @Summary Upcoming exams of a student
// @Tags students
// @Produce json
// @Param studentId path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.UpcomingExamResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Security BearerAuth
// @Router /students/{studentId}/upcoming-exams [get]
func (c *AssessmentController) GetStudentUpcomingExams(ctx *gin.Context) {
	studentID, err := strconv.ParseInt(ctx.Param("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		middleware.BadRequest(ctx, "Invalid student ID", "Student ID must be a positive number")
		return
	}
	c.respondUpcoming(ctx, studentID)
}

func (c *AssessmentController) respondUpcoming(ctx *gin.Context, studentID int64) {
	exams, err := c.assessmentService.FindUpcomingExams(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(exams))
}
