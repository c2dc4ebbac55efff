package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/exampapers/internal/app/csvimport"
	"github.com/yigit/exampapers/internal/app/models"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/app/schedule"
	"github.com/yigit/exampapers/internal/pkg/apperrors"
	"github.com/yigit/exampapers/internal/pkg/cache"
	"github.com/yigit/exampapers/internal/pkg/filestorage"
	"github.com/yigit/exampapers/internal/pkg/patch"
)

const twoQuestionCSV = "content,answer,options\n" +
	"\"What is 2+2?\",4,\"[\"\"A\"\",\"\"B\"\"]\"\n" +
	"\"Pick one\",,\"[\"\"C\"\"]\"\n"

type examPaperFixture struct {
	store   *memoryStore
	spool   string
	service *examPaperServiceImpl
}

func newExamPaperFixture(t *testing.T, previewCache *cache.Cache) *examPaperFixture {
	t.Helper()
	dir := t.TempDir()
	spool, err := filestorage.NewLocalSpool(dir)
	if err != nil {
		t.Fatalf("NewLocalSpool: %v", err)
	}
	store := newMemoryStore()
	svc := NewExamPaperService(
		store,
		store,
		csvimport.NewParser(nil, zerolog.Nop()),
		schedule.NewValidator(nil),
		spool,
		previewCache,
		time.Minute,
	).(*examPaperServiceImpl)
	return &examPaperFixture{store: store, spool: dir, service: svc}
}

func uploadRequest() *dto.UploadExamPaperRequest {
	return &dto.UploadExamPaperRequest{
		Title:         "Midterm",
		CourseID:      1,
		Duration:      120,
		ScheduledDate: "2025-01-01 00:00:00",
		StartTime:     "09:00:00",
		EndTime:       "11:00:00",
	}
}

func csvUpload(name, body string) filestorage.Upload {
	return filestorage.Upload{Filename: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func (f *examPaperFixture) upload(t *testing.T, body string) *dto.ExamPaperResponse {
	t.Helper()
	resp, err := f.service.UploadExamPaper(context.Background(), 7, uploadRequest(), csvUpload("paper.csv", body))
	if err != nil {
		t.Fatalf("UploadExamPaper: %v", err)
	}
	return resp
}

func (f *examPaperFixture) assertSpoolEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.spool)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("spool still holds %d file(s)", len(entries))
	}
}

func TestUploadExamPaperCreatesNumberedDraft(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())

	resp := f.upload(t, twoQuestionCSV)

	if !resp.IsDraft || resp.Source != string(models.SourceUpload) || resp.CreatedBy != 7 {
		t.Errorf("unexpected paper metadata: %+v", resp)
	}
	if resp.ScheduledDate != "2025-01-01 00:00:00" || resp.StartTime != "09:00:00" || resp.EndTime != "11:00:00" {
		t.Errorf("schedule = %s %s-%s", resp.ScheduledDate, resp.StartTime, resp.EndTime)
	}
	if resp.Course == nil || resp.Course.Code != "CENG302" {
		t.Errorf("course = %+v", resp.Course)
	}
	if resp.QuestionCount != 2 || len(resp.Questions) != 2 {
		t.Fatalf("got %d questions", len(resp.Questions))
	}

	first, second := resp.Questions[0], resp.Questions[1]
	if first.QuestionNumber != 1 || first.Content != "What is 2+2?" || first.Answer != "4" {
		t.Errorf("first question = %+v", first)
	}
	if len(first.Options) != 2 || first.Options[0] != "A" || first.Options[1] != "B" {
		t.Errorf("first options = %v", first.Options)
	}
	if second.QuestionNumber != 2 || second.Answer != "" || len(second.Options) != 1 || second.Options[0] != "C" {
		t.Errorf("second question = %+v", second)
	}

	f.assertSpoolEmpty(t)
}

func TestUploadExamPaperHonoursExplicitDraftFlag(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	req := uploadRequest()
	published := false
	req.IsDraft = &published

	resp, err := f.service.UploadExamPaper(context.Background(), 7, req, csvUpload("paper.csv", twoQuestionCSV))
	if err != nil {
		t.Fatalf("UploadExamPaper: %v", err)
	}
	if resp.IsDraft {
		t.Errorf("isDraft=false was ignored")
	}
}

func TestUploadExamPaperRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		body     string
		mutate   func(*dto.UploadExamPaperRequest)
		want     error
	}{
		{
			name:     "not a csv file",
			filename: "paper.txt",
			body:     twoQuestionCSV,
			want:     apperrors.ErrInvalidFile,
		},
		{
			name:     "every row has broken options",
			filename: "paper.csv",
			body:     "content,answer,options\nQ1,A,[\"unterminated\nQ2,B,not-a-list\n",
			want:     apperrors.ErrEmptyQuestionSet,
		},
		{
			name:     "malformed scheduled date",
			filename: "paper.csv",
			body:     twoQuestionCSV,
			mutate:   func(r *dto.UploadExamPaperRequest) { r.ScheduledDate = "2025-13-40" },
			want:     apperrors.ErrInvalidScheduleFormat,
		},
		{
			name:     "malformed time of day",
			filename: "paper.csv",
			body:     twoQuestionCSV,
			mutate:   func(r *dto.UploadExamPaperRequest) { r.StartTime = "9am" },
			want:     apperrors.ErrInvalidTimeFormat,
		},
		{
			name:     "start after end",
			filename: "paper.csv",
			body:     twoQuestionCSV,
			mutate:   func(r *dto.UploadExamPaperRequest) { r.StartTime, r.EndTime = "11:00:00", "09:00:00" },
			want:     apperrors.ErrInvalidTimeRange,
		},
		{
			name:     "unknown course",
			filename: "paper.csv",
			body:     twoQuestionCSV,
			mutate:   func(r *dto.UploadExamPaperRequest) { r.CourseID = 404 },
			want:     apperrors.ErrCourseNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExamPaperFixture(t, cache.Nop())
			req := uploadRequest()
			if tc.mutate != nil {
				tc.mutate(req)
			}

			_, err := f.service.UploadExamPaper(context.Background(), 7, req, csvUpload(tc.filename, tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if f.store.creates != 0 {
				t.Errorf("an assessment was persisted despite the error")
			}
			f.assertSpoolEmpty(t)
		})
	}
}

func TestUploadExamPaperWithoutFile(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())

	_, err := f.service.UploadExamPaper(context.Background(), 7, uploadRequest(), filestorage.Upload{Filename: "paper.csv"})
	if !errors.Is(err, apperrors.ErrInvalidFile) {
		t.Errorf("got %v, want ErrInvalidFile", err)
	}
}

func TestDeleteQuestionKeepsNumbersDense(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	resp := f.upload(t, "content,answer,options\nfirst,a,[]\nsecond,b,[]\nthird,c,[]\n")
	ctx := context.Background()

	if err := f.service.DeleteQuestion(ctx, resp.ID, resp.Questions[1].ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}

	questions, err := f.service.PreviewQuestions(ctx, resp.ID)
	if err != nil {
		t.Fatalf("PreviewQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions", len(questions))
	}
	if questions[0].Content != "first" || questions[0].QuestionNumber != 1 {
		t.Errorf("first = %+v", questions[0])
	}
	if questions[1].Content != "third" || questions[1].QuestionNumber != 2 {
		t.Errorf("second = %+v", questions[1])
	}

	err = f.service.DeleteQuestion(ctx, resp.ID, uuid.New())
	if !errors.Is(err, apperrors.ErrQuestionNotFound) {
		t.Errorf("deleting an unknown question: %v", err)
	}
}

func TestDeleteQuestionRepeatedlyFromAnyPosition(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	var body strings.Builder
	body.WriteString("content,answer,options\n")
	for i := 0; i < 8; i++ {
		body.WriteString("q" + string(rune('a'+i)) + ",x,[]\n")
	}
	resp := f.upload(t, body.String())
	ctx := context.Background()

	// last, first, middle
	for _, pick := range []func(n int) int{
		func(n int) int { return n - 1 },
		func(int) int { return 0 },
		func(n int) int { return n / 2 },
		func(n int) int { return n / 2 },
	} {
		questions, err := f.service.PreviewQuestions(ctx, resp.ID)
		if err != nil {
			t.Fatalf("PreviewQuestions: %v", err)
		}
		if err := f.service.DeleteQuestion(ctx, resp.ID, questions[pick(len(questions))].ID); err != nil {
			t.Fatalf("DeleteQuestion: %v", err)
		}

		remaining, _ := f.service.PreviewQuestions(ctx, resp.ID)
		if len(remaining) != len(questions)-1 {
			t.Fatalf("expected %d questions, got %d", len(questions)-1, len(remaining))
		}
		for i, q := range remaining {
			if q.QuestionNumber != i+1 {
				t.Fatalf("numbers not dense after delete: position %d has %d", i, q.QuestionNumber)
			}
		}
	}
}

func TestUpdateQuestionPartialSemantics(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	resp := f.upload(t, twoQuestionCSV)
	ctx := context.Background()
	target := resp.Questions[0]

	t.Run("content only clears the answer", func(t *testing.T) {
		got, err := f.service.UpdateQuestion(ctx, resp.ID, target.ID, &dto.UpdateQuestionRequest{
			Content: patch.Of("What is 3+3?"),
		})
		if err != nil {
			t.Fatalf("UpdateQuestion: %v", err)
		}
		if got.Content != "What is 3+3?" || got.Answer != "" {
			t.Errorf("got %+v", got)
		}
		if len(got.Options) != 2 || got.Options[0] != "A" {
			t.Errorf("options should be preserved, got %v", got.Options)
		}
	})

	t.Run("options and answer", func(t *testing.T) {
		var req dto.UpdateQuestionRequest
		if err := json.Unmarshal([]byte(`{"options":["5","6"],"answer":"6"}`), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got, err := f.service.UpdateQuestion(ctx, resp.ID, target.ID, &req)
		if err != nil {
			t.Fatalf("UpdateQuestion: %v", err)
		}
		if got.Content != "What is 3+3?" || got.Answer != "6" || len(got.Options) != 2 || got.Options[1] != "6" {
			t.Errorf("got %+v", got)
		}
		if got.QuestionNumber != 1 {
			t.Errorf("question number changed to %d", got.QuestionNumber)
		}
	})

	t.Run("null options become empty", func(t *testing.T) {
		var req dto.UpdateQuestionRequest
		if err := json.Unmarshal([]byte(`{"options":null,"answer":"6"}`), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got, err := f.service.UpdateQuestion(ctx, resp.ID, target.ID, &req)
		if err != nil {
			t.Fatalf("UpdateQuestion: %v", err)
		}
		if got.Options == nil || len(got.Options) != 0 {
			t.Errorf("options = %#v", got.Options)
		}
	})

	t.Run("unknown question", func(t *testing.T) {
		_, err := f.service.UpdateQuestion(ctx, resp.ID, uuid.New(), &dto.UpdateQuestionRequest{})
		if !errors.Is(err, apperrors.ErrQuestionNotFound) {
			t.Errorf("got %v", err)
		}
	})
}

func TestPreviewIsInvalidatedByMutations(t *testing.T) {
	f := newExamPaperFixture(t, newTestCache())
	resp := f.upload(t, twoQuestionCSV)
	ctx := context.Background()

	before, err := f.service.PreviewExamPaper(ctx, resp.ID)
	if err != nil {
		t.Fatalf("PreviewExamPaper: %v", err)
	}
	if before.Questions[0].Content != "What is 2+2?" {
		t.Fatalf("unexpected preview: %+v", before.Questions[0])
	}

	if _, err := f.service.UpdateQuestion(ctx, resp.ID, resp.Questions[0].ID, &dto.UpdateQuestionRequest{
		Content: patch.Of("Rewritten"),
	}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	after, err := f.service.PreviewExamPaper(ctx, resp.ID)
	if err != nil {
		t.Fatalf("PreviewExamPaper: %v", err)
	}
	if after.Questions[0].Content != "Rewritten" {
		t.Errorf("stale preview served: %q", after.Questions[0].Content)
	}

	published, err := f.service.PublishExamPaper(ctx, resp.ID)
	if err != nil {
		t.Fatalf("PublishExamPaper: %v", err)
	}
	if published.IsDraft {
		t.Errorf("publish not reflected in preview")
	}
}

func TestDeleteExamPaperRequiresNoQuestions(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	resp := f.upload(t, twoQuestionCSV)
	ctx := context.Background()

	err := f.service.DeleteExamPaper(ctx, resp.ID)
	if !errors.Is(err, apperrors.ErrHasDependentQuestions) {
		t.Fatalf("got %v, want ErrHasDependentQuestions", err)
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("dependent questions should be a conflict")
	}

	removed, err := f.service.DeleteAllQuestions(ctx, resp.ID)
	if err != nil || removed.Deleted != 2 {
		t.Fatalf("DeleteAllQuestions = %+v, %v", removed, err)
	}

	if err := f.service.DeleteExamPaper(ctx, resp.ID); err != nil {
		t.Fatalf("DeleteExamPaper: %v", err)
	}
	if _, err := f.service.PreviewExamPaper(ctx, resp.ID); !errors.Is(err, apperrors.ErrAssessmentNotFound) {
		t.Errorf("preview after delete: %v", err)
	}
}

func TestPublishExamPaperIsIdempotent(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	resp := f.upload(t, twoQuestionCSV)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := f.service.PublishExamPaper(ctx, resp.ID)
		if err != nil {
			t.Fatalf("publish #%d: %v", i+1, err)
		}
		if got.IsDraft {
			t.Errorf("publish #%d left the paper as draft", i+1)
		}
	}

	if _, err := f.service.PublishExamPaper(ctx, uuid.New()); !errors.Is(err, apperrors.ErrAssessmentNotFound) {
		t.Errorf("publishing unknown paper: %v", err)
	}
}

func TestQuestionsWithoutAnswer(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	resp := f.upload(t, twoQuestionCSV)
	ctx := context.Background()
	instructor := models.Viewer{UserID: 7, Role: models.RoleInstructor}
	student := models.Viewer{UserID: 100, Role: models.RoleStudent}

	questions, err := f.service.QuestionsWithoutAnswer(ctx, resp.ID, instructor)
	if err != nil {
		t.Fatalf("instructor view of draft: %v", err)
	}
	raw, _ := json.Marshal(questions)
	if strings.Contains(string(raw), `"answer"`) {
		t.Errorf("answer leaked: %s", raw)
	}
	if len(questions) != 2 || questions[1].QuestionNumber != 2 {
		t.Errorf("unexpected questions: %+v", questions)
	}

	if _, err := f.service.QuestionsWithoutAnswer(ctx, resp.ID, student); !errors.Is(err, apperrors.ErrAssessmentNotFound) {
		t.Errorf("student view of a draft: %v", err)
	}

	if _, err := f.service.PublishExamPaper(ctx, resp.ID); err != nil {
		t.Fatalf("PublishExamPaper: %v", err)
	}
	if _, err := f.service.QuestionsWithoutAnswer(ctx, resp.ID, student); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("student outside the course: %v", err)
	}

	f.store.enroll(student.UserID, 1)
	questions, err = f.service.QuestionsWithoutAnswer(ctx, resp.ID, student)
	if err != nil {
		t.Fatalf("enrolled student: %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("got %d questions", len(questions))
	}
}

func TestDashboardStatsUsesOneInstant(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }

	schedules := []struct{ date, start, end string }{
		{"2025-01-01 00:00:00", "09:00:00", "11:00:00"}, // ongoing
		{"2025-01-01 00:00:00", "12:00:00", "13:00:00"}, // upcoming
		{"2025-01-02 00:00:00", "09:00:00", "11:00:00"}, // upcoming
		{"2024-12-31 00:00:00", "09:00:00", "11:00:00"}, // past
	}
	for _, s := range schedules {
		req := uploadRequest()
		req.ScheduledDate, req.StartTime, req.EndTime = s.date, s.start, s.end
		if _, err := f.service.UploadExamPaper(ctx, 7, req, csvUpload("paper.csv", twoQuestionCSV)); err != nil {
			t.Fatalf("UploadExamPaper: %v", err)
		}
	}

	stats, err := f.service.GetDashboardStats(ctx)
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if stats.Total != 4 || stats.Ongoing != 1 || stats.Upcoming != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if n, _ := f.service.GetOngoingCount(ctx); n != 1 {
		t.Errorf("ongoing = %d", n)
	}
	if n, _ := f.service.GetUpcomingCount(ctx); n != 2 {
		t.Errorf("upcoming = %d", n)
	}
	if n, _ := f.service.CountAllExamPapers(ctx); n != 4 {
		t.Errorf("total = %d", n)
	}
}

func TestListExamPapersPagination(t *testing.T) {
	f := newExamPaperFixture(t, cache.Nop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.upload(t, twoQuestionCSV)
	}

	list, err := f.service.ListExamPapers(ctx, &dto.ListExamPapersQuery{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("ListExamPapers: %v", err)
	}
	if list.Pagination.TotalItems != 3 || list.Pagination.TotalPages != 2 || list.Pagination.PageSize != 2 {
		t.Errorf("pagination = %+v", list.Pagination)
	}
	for _, p := range list.ExamPapers {
		if p.Questions != nil {
			t.Errorf("listing should not embed questions")
		}
	}
}
