package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/exampapers/internal/app/controllers"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	examPaperController *controllers.ExamPaperController,
	assessmentController *controllers.AssessmentController,
	authMiddleware *middleware.AuthMiddleware,
) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// API version group
	v1 := router.Group("/api/v1")

	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	instructorOnly := authMiddleware.RoleRequired(models.RoleInstructor)
	studentOnly := authMiddleware.RoleRequired(models.RoleStudent)

	examPapers := authenticated.Group("/exam-papers")
	{
		// any authenticated role
		examPapers.GET("/ongoing/count", examPaperController.GetOngoingCount)
		examPapers.GET("/upcoming/count", examPaperController.GetUpcomingCount)
		examPapers.GET("/:id/questions/student-view", examPaperController.QuestionsWithoutAnswer)

		instructor := examPapers.Group("")
		instructor.Use(instructorOnly)
		{
			instructor.POST("/upload", examPaperController.UploadExamPaper)
			instructor.GET("", examPaperController.ListExamPapers)
			instructor.GET("/stats", examPaperController.GetDashboardStats)
			instructor.GET("/count", examPaperController.CountAllExamPapers)
			instructor.GET("/:id", examPaperController.PreviewExamPaper)
			instructor.DELETE("/:id", examPaperController.DeleteExamPaper)
			instructor.PATCH("/:id/publish", examPaperController.PublishExamPaper)
			instructor.GET("/:id/questions", examPaperController.PreviewQuestions)
			instructor.DELETE("/:id/questions", examPaperController.DeleteAllQuestions)
			instructor.PATCH("/:id/questions/:questionId", examPaperController.UpdateQuestion)
			instructor.DELETE("/:id/questions/:questionId", examPaperController.DeleteQuestion)
		}
	}

	assessments := authenticated.Group("/assessments")
	assessments.Use(instructorOnly)
	{
		assessments.POST("", assessmentController.CreateAssessment)
		assessments.GET("/:id", assessmentController.GetAssessment)
		assessments.PATCH("/:id", assessmentController.UpdateAssessment)
	}

	students := authenticated.Group("/students")
	{
		students.GET("/me/upcoming-exams", studentOnly, assessmentController.GetMyUpcomingExams)
		students.GET("/me/upcoming-exams/count", studentOnly, assessmentController.CountMyUpcomingExams)
		students.GET("/:studentId/upcoming-exams", instructorOnly, assessmentController.GetStudentUpcomingExams)
	}
}
