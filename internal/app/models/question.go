package models

import "github.com/google/uuid"

// Question is a single exam item positioned by a dense 1-based number
type Question struct {
	ID             uuid.UUID `db:"id"`
	AssessmentID   uuid.UUID `db:"assessment_id"`
	QuestionNumber int       `db:"question_number"`
	Content        string    `db:"content"`
	Options        []string  `db:"options"`
	Answer         string    `db:"answer"`
}

// NumberAssignment moves one question to a new number
type NumberAssignment struct {
	QuestionID uuid.UUID
	From       int
	To         int
}

// Renumber computes the assignments that turn survivors, already ordered by their
// previous number, into the dense sequence 1..len(survivors). Questions that already
// hold their target number are left out.
func Renumber(survivors []Question) []NumberAssignment {
	assignments := make([]NumberAssignment, 0, len(survivors))
	for i, q := range survivors {
		target := i + 1
		if q.QuestionNumber == target {
			continue
		}
		assignments = append(assignments, NumberAssignment{
			QuestionID: q.ID,
			From:       q.QuestionNumber,
			To:         target,
		})
	}
	return assignments
}

// NumberSequentially assigns 1..N in slice order, ignoring any incoming numbering.
func NumberSequentially(assessmentID uuid.UUID, questions []Question) []Question {
	numbered := make([]Question, len(questions))
	for i, q := range questions {
		q.AssessmentID = assessmentID
		q.QuestionNumber = i + 1
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.Options == nil {
			q.Options = []string{}
		}
		numbered[i] = q
	}
	return numbered
}
