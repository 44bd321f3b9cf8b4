package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// TableStore is the remote table store used by the login gate and the
// session controllers. Storing a result also queues its grade-book entry.
type TableStore struct {
	students  *StudentRepository
	exams     *ExamRepository
	questions *QuestionRepository
	results   *ExamResultRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

var _ proctor.Store = (*TableStore)(nil)

// NewTableStore creates a TableStore over the repositories.
func NewTableStore(
	students *StudentRepository,
	exams *ExamRepository,
	questions *QuestionRepository,
	results *ExamResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TableStore {
	return &TableStore{
		students:  students,
		exams:     exams,
		questions: questions,
		results:   results,
		rdb:       rdb,
		log:       log.With().Str("component", "table_store").Logger(),
	}
}

func (s *TableStore) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, examID)
}

func (s *TableStore) LookupStudent(ctx context.Context, nis string) (*model.Student, error) {
	return s.students.GetByNIS(ctx, nis)
}

func (s *TableStore) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByExam(ctx, examID)
}

func (s *TableStore) StudentHasResult(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	return s.results.Exists(ctx, studentID, examID)
}

// CreateResult stores res and queues the grade-book update. The result is
// committed once the insert returns, so a failed enqueue is only logged.
func (s *TableStore) CreateResult(ctx context.Context, res *model.ExamResult) (uuid.UUID, error) {
	id, err := s.results.Create(ctx, res)
	if err != nil {
		return uuid.Nil, err
	}

	entry, _ := json.Marshal(model.GradebookEntry{
		StudentID: res.StudentID,
		ExamID:    res.ExamID.String(),
		Score:     res.Score,
		Timestamp: res.SubmittedAt.Unix(),
	})
	// The request context may already be close to its deadline.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.rdb.RPush(qctx, config.WorkerKey.PersistGradebookQueue, entry).Err(); err != nil {
		s.log.Error().Err(err).
			Str("result_id", id.String()).
			Int("student_id", res.StudentID).
			Msg("Failed to queue grade-book entry")
	}
	return id, nil
}
