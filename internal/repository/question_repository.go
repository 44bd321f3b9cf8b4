package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, prompt, image_url, options, correct_index, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Prompt, &q.ImageURL, &q.Options, &q.CorrectIndex, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateBatch bulk-loads questions with COPY. IDs are generated client side.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) (int64, error) {
	rows := make([][]interface{}, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			q.ID, q.ExamID, q.Prompt, q.ImageURL, q.Options, q.CorrectIndex, q.OrderNum,
		})
	}

	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "exam_id", "prompt", "image_url", "options", "correct_index", "order_num"},
		pgx.CopyFromRows(rows),
	)
}
