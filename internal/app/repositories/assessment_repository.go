package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/db"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/dberrors"
	"github.com/yigit/exampapers/internal/pkg/helpers"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

const (
	fkAssessmentCourse = "fk_assessments_course"
	uqQuestionNumber   = "uq_questions_assessment_number"
)

var assessmentColumns = []string{
	"a.id", "a.title", "a.description", "a.course_id", "a.course_unit", "a.course_unit_code",
	"a.duration", "a.scheduled_date", "a.start_time", "a.end_time", "a.created_by",
	"a.is_draft", "a.source", "a.created_at", "a.updated_at",
}

var questionColumns = []string{"id", "assessment_id", "question_number", "content", "options", "answer"}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// AssessmentRepository handles database operations for assessments and their questions
type AssessmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAssessmentRepository creates a new AssessmentRepository
func NewAssessmentRepository(db *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateWithQuestions inserts the assessment and its questions in one transaction.
// Questions are numbered 1..N in slice order regardless of their incoming numbers.
func (r *AssessmentRepository) CreateWithQuestions(ctx context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	numbered := models.NumberSequentially(a.ID, questions)

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("assessments").
			Columns("id", "title", "description", "course_id", "course_unit", "course_unit_code",
				"duration", "scheduled_date", "start_time", "end_time", "created_by",
				"is_draft", "source", "created_at", "updated_at").
			Values(a.ID, a.Title, a.Description, a.CourseID, a.CourseUnit, a.CourseUnitCode,
				a.Duration, a.ScheduledDate, a.StartTime, a.EndTime, a.CreatedBy,
				a.IsDraft, string(a.Source), a.CreatedAt, a.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsForeignKeyViolation(err, fkAssessmentCourse) {
				return apperrors.ErrCourseNotFound
			}
			return fmt.Errorf("error inserting assessment: %w", err)
		}

		return r.insertQuestions(ctx, tx, numbered)
	})
	err = numberingConflict(err)
	if err != nil {
		logger.Error().Err(err).Str("assessmentID", a.ID.String()).Msg("Failed to create assessment")
		return nil, err
	}

	return numbered, nil
}

// numberingConflict reports a clash on the deferred (assessment_id, question_number)
// constraint, which surfaces at commit, as a conflict.
func numberingConflict(err error) error {
	if dberrors.IsDuplicateConstraintError(err, uqQuestionNumber) {
		return fmt.Errorf("question numbers changed concurrently: %w", apperrors.ErrConflict)
	}
	return err
}

// insertQuestions pipelines one INSERT per question through a single batch
func (r *AssessmentRepository) insertQuestions(ctx context.Context, tx pgx.Tx, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := encodeOptions(q.Options)
		if err != nil {
			return err
		}
		sql, args, err := r.sb.Insert("questions").
			Columns(questionColumns...).
			Values(q.ID, q.AssessmentID, q.QuestionNumber, q.Content, options, q.Answer).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		batch.Queue(sql, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range questions {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("error inserting question %d: %w", questions[i].QuestionNumber, err)
		}
	}
	return results.Close()
}

// GetAssessment retrieves an assessment with its course summary
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	sql, args, err := r.sb.Select(assessmentColumns...).
		Columns("c.code", "c.name").
		From("assessments a").
		Join("courses c ON c.id = a.course_id").
		Where("a.id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	course := &models.Course{}
	a, err := scanAssessment(r.db.QueryRow(ctx, sql, args...), &course.Code, &course.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	course.ID = a.CourseID
	a.Course = course

	return a, nil
}

// ListQuestions returns the questions of an assessment ordered by number
func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]models.Question, error) {
	return r.listQuestions(ctx, r.db, assessmentID, false)
}

func (r *AssessmentRepository) listQuestions(ctx context.Context, q querier, assessmentID uuid.UUID, forUpdate bool) ([]models.Question, error) {
	query := r.sb.Select(questionColumns...).
		From("questions").
		Where("assessment_id = ?", assessmentID).
		OrderBy("question_number ASC")
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		questions = append(questions, *question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return questions, nil
}

// GetQuestion retrieves one question of an assessment
func (r *AssessmentRepository) GetQuestion(ctx context.Context, assessmentID, questionID uuid.UUID) (*models.Question, error) {
	sql, args, err := r.sb.Select(questionColumns...).
		From("questions").
		Where("id = ? AND assessment_id = ?", questionID, assessmentID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	q, err := scanQuestion(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return q, nil
}

// UpdateQuestion overwrites the content, options and answer of a question
func (r *AssessmentRepository) UpdateQuestion(ctx context.Context, q *models.Question) error {
	options, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Update("questions").
		Set("content", q.Content).
		Set("options", options).
		Set("answer", q.Answer).
		Where("id = ? AND assessment_id = ?", q.ID, q.AssessmentID).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("questionID", q.ID.String()).Msg("Failed to update question")
		return fmt.Errorf("error executing query: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrQuestionNotFound
	}
	return nil
}

// DeleteQuestionAndRenumber removes a question and closes the gap it leaves so the
// remaining questions keep the dense sequence 1..N-1 in their previous order.
func (r *AssessmentRepository) DeleteQuestionAndRenumber(ctx context.Context, assessmentID, questionID uuid.UUID) error {
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.lockAssessment(ctx, tx, assessmentID); err != nil {
			return err
		}

		questions, err := r.listQuestions(ctx, tx, assessmentID, true)
		if err != nil {
			return err
		}

		survivors := make([]models.Question, 0, len(questions))
		found := false
		for _, q := range questions {
			if q.ID == questionID {
				found = true
				continue
			}
			survivors = append(survivors, q)
		}
		if !found {
			return apperrors.ErrQuestionNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
			return fmt.Errorf("error deleting question: %w", err)
		}

		for _, move := range models.Renumber(survivors) {
			if _, err := tx.Exec(ctx, `UPDATE questions SET question_number = $1 WHERE id = $2`, move.To, move.QuestionID); err != nil {
				return fmt.Errorf("error renumbering question %d to %d: %w", move.From, move.To, err)
			}
		}

		return r.touch(ctx, tx, assessmentID)
	})
	err = numberingConflict(err)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		logger.Error().Err(err).
			Str("assessmentID", assessmentID.String()).
			Str("questionID", questionID.String()).
			Msg("Failed to delete and renumber question")
	}
	return err
}

// DeleteAllQuestions removes every question of an assessment and returns how many were removed
func (r *AssessmentRepository) DeleteAllQuestions(ctx context.Context, assessmentID uuid.UUID) (int64, error) {
	var removed int64
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.lockAssessment(ctx, tx, assessmentID); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `DELETE FROM questions WHERE assessment_id = $1`, assessmentID)
		if err != nil {
			return fmt.Errorf("error deleting questions: %w", err)
		}
		removed = result.RowsAffected()
		return r.touch(ctx, tx, assessmentID)
	})
	return removed, err
}

// DeleteAssessment removes an assessment that owns no questions
func (r *AssessmentRepository) DeleteAssessment(ctx context.Context, id uuid.UUID) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := r.lockAssessment(ctx, tx, id); err != nil {
			return err
		}

		var count int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE assessment_id = $1`, id).Scan(&count); err != nil {
			return fmt.Errorf("error counting questions: %w", err)
		}
		if count > 0 {
			return apperrors.NewCustomError(apperrors.ErrHasDependentQuestions,
				fmt.Sprintf("assessment still has %d questions; delete them first", count)).
				WithCode(apperrors.ErrHasDependentQuestions.Code).
				WithDetails(map[string]interface{}{"questionCount": count})
		}

		if _, err := tx.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("error deleting assessment: %w", err)
		}
		return nil
	})
}

// Publish marks an assessment as published. Publishing twice is not an error.
func (r *AssessmentRepository) Publish(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.sb.Update("assessments").
		Set("is_draft", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAssessmentNotFound
	}
	return nil
}

// UpdateAssessment overwrites the assessment metadata. A non-nil questions slice replaces
// the stored questions in the same transaction, numbered 1..N in slice order; nil keeps them.
func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, a *models.Assessment, questions []models.Question) ([]models.Question, error) {
	var numbered []models.Question
	if questions != nil {
		numbered = models.NumberSequentially(a.ID, questions)
	}

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("assessments").
			Set("title", a.Title).
			Set("description", a.Description).
			Set("course_id", a.CourseID).
			Set("course_unit", a.CourseUnit).
			Set("course_unit_code", a.CourseUnitCode).
			Set("duration", a.Duration).
			Set("scheduled_date", a.ScheduledDate).
			Set("start_time", a.StartTime).
			Set("end_time", a.EndTime).
			Set("is_draft", a.IsDraft).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where("id = ?", a.ID).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&a.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrAssessmentNotFound
			}
			if dberrors.IsForeignKeyViolation(err, fkAssessmentCourse) {
				return apperrors.ErrCourseNotFound
			}
			return fmt.Errorf("error updating assessment: %w", err)
		}

		if numbered == nil {
			return nil
		}
		return r.replaceQuestions(ctx, tx, a.ID, numbered)
	})
	err = numberingConflict(err)
	if err != nil {
		return nil, err
	}
	return numbered, nil
}

func (r *AssessmentRepository) replaceQuestions(ctx context.Context, tx pgx.Tx, assessmentID uuid.UUID, numbered []models.Question) error {
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE assessment_id = $1`, assessmentID); err != nil {
		return fmt.Errorf("error clearing questions: %w", err)
	}
	return r.insertQuestions(ctx, tx, numbered)
}

// ListAssessments retrieves assessments matching the filter, newest first, with the
// total number of matches. The total is counted separately so a page past the end still
// reports it.
func (r *AssessmentRepository) ListAssessments(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int64, error) {
	var pred squirrel.And
	if filter.CourseID != nil {
		pred = append(pred, squirrel.Eq{"a.course_id": *filter.CourseID})
	}
	if filter.IsDraft != nil {
		pred = append(pred, squirrel.Eq{"a.is_draft": *filter.IsDraft})
	}
	if filter.CreatedBy != nil {
		pred = append(pred, squirrel.Eq{"a.created_by": *filter.CreatedBy})
	}
	if filter.Source != nil {
		pred = append(pred, squirrel.Eq{"a.source": string(*filter.Source)})
	}

	var where squirrel.Sqlizer
	if len(pred) > 0 {
		where = pred
	}
	total, err := r.count(ctx, where)
	if err != nil {
		return nil, 0, err
	}

	query := r.sb.Select(assessmentColumns...).
		Columns("c.code", "c.name").
		From("assessments a").
		Join("courses c ON c.id = a.course_id")
	if where != nil {
		query = query.Where(where)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Size)
	sql, args, err := query.
		OrderBy("a.scheduled_date DESC", "a.created_at DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	assessments := []models.Assessment{}
	for rows.Next() {
		course := &models.Course{}
		a, err := scanAssessment(rows, &course.Code, &course.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		course.ID = a.CourseID
		a.Course = course
		assessments = append(assessments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return assessments, total, nil
}

// CountOngoing counts assessments whose window contains now
func (r *AssessmentRepository) CountOngoing(ctx context.Context, now time.Time) (int64, error) {
	return r.count(ctx, squirrel.And{
		squirrel.LtOrEq{"a.start_time": now},
		squirrel.Gt{"a.end_time": now},
	})
}

// CountUpcoming counts assessments that have not started yet
func (r *AssessmentRepository) CountUpcoming(ctx context.Context, now time.Time) (int64, error) {
	return r.count(ctx, squirrel.Gt{"a.start_time": now})
}

// CountAll counts every assessment
func (r *AssessmentRepository) CountAll(ctx context.Context) (int64, error) {
	return r.count(ctx, nil)
}

// CountUpcomingForStudent counts published assessments ahead of now in the student's courses
func (r *AssessmentRepository) CountUpcomingForStudent(ctx context.Context, studentID int64, now time.Time) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("assessments a").
		Join("course_enrollments e ON e.course_id = a.course_id").
		Where(squirrel.Eq{"e.student_id": studentID, "a.is_draft": false}).
		Where(squirrel.GtOrEq{"a.scheduled_date": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// FindUpcomingForStudent lists published assessments scheduled at or after now in the
// courses the student is enrolled in, earliest first
func (r *AssessmentRepository) FindUpcomingForStudent(ctx context.Context, studentID int64, now time.Time) ([]models.UpcomingExam, error) {
	sql, args, err := r.sb.Select(
		"a.id", "a.title", "a.course_id", "c.code", "c.name", "a.course_unit", "a.course_unit_code",
		"a.duration", "a.scheduled_date", "a.start_time", "a.end_time").
		From("assessments a").
		Join("course_enrollments e ON e.course_id = a.course_id").
		Join("courses c ON c.id = a.course_id").
		Where(squirrel.Eq{"e.student_id": studentID, "a.is_draft": false}).
		Where(squirrel.GtOrEq{"a.scheduled_date": now}).
		OrderBy("a.scheduled_date ASC", "a.start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	exams := []models.UpcomingExam{}
	for rows.Next() {
		var e models.UpcomingExam
		if err := rows.Scan(
			&e.ID, &e.Title, &e.CourseID, &e.CourseCode, &e.CourseName, &e.CourseUnit, &e.CourseUnitCode,
			&e.Duration, &e.ScheduledDate, &e.StartTime, &e.EndTime,
		); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return exams, nil
}

func (r *AssessmentRepository) count(ctx context.Context, pred squirrel.Sqlizer) (int64, error) {
	query := r.sb.Select("COUNT(*)").From("assessments a")
	if pred != nil {
		query = query.Where(pred)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

// lockAssessment takes a row lock that serialises question mutations of one assessment
func (r *AssessmentRepository) lockAssessment(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM assessments WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrAssessmentNotFound
	}
	if err != nil {
		return fmt.Errorf("error locking assessment: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) touch(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `UPDATE assessments SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error touching assessment: %w", err)
	}
	return nil
}

func scanAssessment(row scanner, extra ...any) (*models.Assessment, error) {
	var a models.Assessment
	var source string
	dest := []any{
		&a.ID, &a.Title, &a.Description, &a.CourseID, &a.CourseUnit, &a.CourseUnitCode,
		&a.Duration, &a.ScheduledDate, &a.StartTime, &a.EndTime, &a.CreatedBy,
		&a.IsDraft, &source, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Source = models.AssessmentSource(source)
	return &a, nil
}

func scanQuestion(row scanner) (*models.Question, error) {
	var q models.Question
	var options []byte
	if err := row.Scan(&q.ID, &q.AssessmentID, &q.QuestionNumber, &q.Content, &options, &q.Answer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("question %s has malformed options: %w", q.ID, err)
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	return &q, nil
}

func encodeOptions(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	b, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("error encoding options: %w", err)
	}
	return string(b), nil
}
