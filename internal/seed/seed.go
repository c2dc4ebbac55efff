package seed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	appModels "github.com/yigit/exampapers/internal/app/models"
	appRepos "github.com/yigit/exampapers/internal/app/repositories"
	"github.com/yigit/exampapers/internal/pkg/auth"
)

// Demo identities used by the development seed
const (
	DemoInstructorID int64 = 1
	DemoStudentID    int64 = 1001
)

var defaultCourses = []appModels.Course{
	{Code: "CENG302", Name: "Operating Systems"},
	{Code: "CENG351", Name: "Database Management Systems"},
}

// CreateDefaultData creates the demo courses and enrolls the demo student in them.
// Running it again is harmless.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	courseRepo := appRepos.NewCourseRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data (Courses/Enrollments)...")
	var finalErr error

	for _, c := range defaultCourses {
		course := c
		if err := courseRepo.Upsert(ctx, &course); err != nil {
			lgr.Error().Err(err).Str("code", course.Code).Msg("Error creating course")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if err := courseRepo.Enroll(ctx, course.ID, DemoStudentID); err != nil {
			lgr.Error().Err(err).Str("code", course.Code).Msg("Error enrolling demo student")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Info().Int64("courseId", course.ID).Str("code", course.Code).Msg("Default course ready")
	}

	return finalErr
}

// LogDevelopmentTokens prints short-lived tokens for the demo identities so the API can
// be tried without an identity provider.
func LogDevelopmentTokens(jwtService *auth.JWTService, lgr zerolog.Logger) {
	identities := []struct {
		userID int64
		email  string
		role   appModels.RoleType
	}{
		{DemoInstructorID, "instructor@exampapers.local", appModels.RoleInstructor},
		{DemoStudentID, "student@exampapers.local", appModels.RoleStudent},
	}

	for _, id := range identities {
		token, err := jwtService.GenerateToken(id.userID, id.email, string(id.role), 24*time.Hour)
		if err != nil {
			lgr.Error().Err(err).Str("role", string(id.role)).Msg("Failed to generate development token")
			continue
		}
		lgr.Info().Str("role", string(id.role)).Int64("userId", id.userID).Str("token", token).Msg("Development token")
	}
}
