package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	AssessmentRepository *AssessmentRepository
	CourseRepository     *CourseRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		AssessmentRepository: NewAssessmentRepository(db),
		CourseRepository:     NewCourseRepository(db),
	}
}
