package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/cache"
)

// memoryStore is an in-memory AssessmentStore with the same numbering rules as the
// PostgreSQL repository.
type memoryStore struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]models.Assessment
	questions   map[uuid.UUID][]models.Question
	enrollments map[int64][]int64 // student -> courses
	courses     map[int64]models.Course
	creates     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assessments: map[uuid.UUID]models.Assessment{},
		questions:   map[uuid.UUID][]models.Question{},
		enrollments: map[int64][]int64{},
		courses: map[int64]models.Course{
			1: {ID: 1, Code: "CENG302", Name: "Operating Systems"},
			2: {ID: 2, Code: "CENG351", Name: "Databases"},
		},
	}
}

func (m *memoryStore) CreateWithQuestions(_ context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[a.CourseID]; !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	numbered := models.NumberSequentially(a.ID, questions)
	m.assessments[a.ID] = *a
	m.questions[a.ID] = append([]models.Question(nil), numbered...)
	m.creates++
	return numbered, nil
}

func (m *memoryStore) GetAssessment(_ context.Context, id uuid.UUID) (*models.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, apperrors.ErrAssessmentNotFound
	}
	course := m.courses[a.CourseID]
	a.Course = &course
	return &a, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, id uuid.UUID) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs := append([]models.Question{}, m.questions[id]...)
	sort.Slice(qs, func(i, j int) bool { return qs[i].QuestionNumber < qs[j].QuestionNumber })
	return qs, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, assessmentID, questionID uuid.UUID) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions[assessmentID] {
		if q.ID == questionID {
			return &q, nil
		}
	}
	return nil, apperrors.ErrQuestionNotFound
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs := m.questions[q.AssessmentID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i].Content, qs[i].Options, qs[i].Answer = q.Content, q.Options, q.Answer
			return nil
		}
	}
	return apperrors.ErrQuestionNotFound
}

func (m *memoryStore) DeleteQuestionAndRenumber(_ context.Context, assessmentID, questionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[assessmentID]; !ok {
		return apperrors.ErrAssessmentNotFound
	}
	qs := m.questions[assessmentID]
	sort.Slice(qs, func(i, j int) bool { return qs[i].QuestionNumber < qs[j].QuestionNumber })

	survivors := make([]models.Question, 0, len(qs))
	for _, q := range qs {
		if q.ID != questionID {
			survivors = append(survivors, q)
		}
	}
	if len(survivors) == len(qs) {
		return apperrors.ErrQuestionNotFound
	}

	byID := map[uuid.UUID]int{}
	for i, q := range survivors {
		byID[q.ID] = i
	}
	for _, move := range models.Renumber(survivors) {
		survivors[byID[move.QuestionID]].QuestionNumber = move.To
	}
	m.questions[assessmentID] = survivors
	return nil
}

func (m *memoryStore) DeleteAllQuestions(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return 0, apperrors.ErrAssessmentNotFound
	}
	n := int64(len(m.questions[id]))
	delete(m.questions, id)
	return n, nil
}

func (m *memoryStore) DeleteAssessment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return apperrors.ErrAssessmentNotFound
	}
	if len(m.questions[id]) > 0 {
		return apperrors.ErrHasDependentQuestions
	}
	delete(m.assessments, id)
	return nil
}

func (m *memoryStore) Publish(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return apperrors.ErrAssessmentNotFound
	}
	a.IsDraft = false
	m.assessments[id] = a
	return nil
}

func (m *memoryStore) UpdateAssessment(_ context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[a.ID]; !ok {
		return nil, apperrors.ErrAssessmentNotFound
	}
	stored := *a
	stored.Course = nil
	m.assessments[a.ID] = stored
	if questions == nil {
		return nil, nil
	}
	numbered := models.NumberSequentially(a.ID, questions)
	m.questions[a.ID] = append([]models.Question{}, numbered...)
	return numbered, nil
}

func (m *memoryStore) ListAssessments(_ context.Context, filter models.AssessmentFilter) ([]models.Assessment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assessment
	for _, a := range m.assessments {
		if filter.CourseID != nil && a.CourseID != *filter.CourseID {
			continue
		}
		if filter.IsDraft != nil && a.IsDraft != *filter.IsDraft {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (m *memoryStore) countWhere(pred func(models.Assessment) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.assessments {
		if pred(a) {
			n++
		}
	}
	return n
}

func (m *memoryStore) CountOngoing(_ context.Context, now time.Time) (int64, error) {
	return m.countWhere(func(a models.Assessment) bool {
		return !a.StartTime.After(now) && a.EndTime.After(now)
	}), nil
}

func (m *memoryStore) CountUpcoming(_ context.Context, now time.Time) (int64, error) {
	return m.countWhere(func(a models.Assessment) bool { return a.StartTime.After(now) }), nil
}

func (m *memoryStore) CountAll(_ context.Context) (int64, error) {
	return m.countWhere(func(models.Assessment) bool { return true }), nil
}

func (m *memoryStore) upcomingFor(studentID int64, now time.Time) []models.Assessment {
	enrolled := map[int64]bool{}
	for _, c := range m.enrollments[studentID] {
		enrolled[c] = true
	}
	var out []models.Assessment
	for _, a := range m.assessments {
		if enrolled[a.CourseID] && !a.IsDraft && !a.ScheduledDate.Before(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out
}

func (m *memoryStore) CountUpcomingForStudent(_ context.Context, studentID int64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.upcomingFor(studentID, now))), nil
}

func (m *memoryStore) FindUpcomingForStudent(_ context.Context, studentID int64, now time.Time) ([]models.UpcomingExam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exams := []models.UpcomingExam{}
	for _, a := range m.upcomingFor(studentID, now) {
		c := m.courses[a.CourseID]
		exams = append(exams, models.UpcomingExam{
			ID: a.ID, Title: a.Title, CourseID: a.CourseID, CourseCode: c.Code, CourseName: c.Name,
			CourseUnit: a.CourseUnit, CourseUnitCode: a.CourseUnitCode, Duration: a.Duration,
			ScheduledDate: a.ScheduledDate, StartTime: a.StartTime, EndTime: a.EndTime,
		})
	}
	return exams, nil
}

// GetByID and IsEnrolled make memoryStore a CourseDirectory as well
func (m *memoryStore) GetByID(_ context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return &c, nil
}

func (m *memoryStore) IsEnrolled(_ context.Context, courseID, studentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.enrollments[studentID] {
		if c == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) enroll(studentID, courseID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[studentID] = append(m.enrollments[studentID], courseID)
}

// memoryCache backs a cache.Cache for invalidation tests
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newTestCache() *cache.Cache {
	return cache.New(&memoryCache{data: map[string][]byte{}}, "test", zerolog.Nop())
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}
