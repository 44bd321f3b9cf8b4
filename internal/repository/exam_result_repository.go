package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ExamResultRepository stores finished exam results. A result is written
// once per (exam, student) and never updated.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

// Exists reports whether the student already has a result for the exam.
func (r *ExamResultRepository) Exists(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_results WHERE exam_id = $1 AND student_id = $2)`,
		examID, studentID,
	).Scan(&exists)
	return exists, err
}

// Create inserts res. The unique (exam_id, student_id) constraint turns a
// second submission into proctor.ErrAlreadyTaken.
func (r *ExamResultRepository) Create(ctx context.Context, res *model.ExamResult) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_results (exam_id, student_id, nis, student_name, class_name, answers,
		                           score, started_at, submitted_at, violation_count, finish_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		res.ExamID, res.StudentID, res.NIS, res.StudentName, res.ClassName, res.Answers,
		res.Score, res.StartedAt, res.SubmittedAt, res.ViolationCount, res.FinishReason,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, proctor.ErrAlreadyTaken
		}
		return uuid.Nil, err
	}
	return id, nil
}

// ListByExam returns all results of an exam, best score first.
func (r *ExamResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, nis, student_name, class_name, answers,
		        score, started_at, submitted_at, violation_count, finish_reason
		 FROM exam_results WHERE exam_id = $1
		 ORDER BY score DESC, submitted_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]model.ExamResult, 0)
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(&res.ID, &res.ExamID, &res.StudentID, &res.NIS, &res.StudentName, &res.ClassName,
			&res.Answers, &res.Score, &res.StartedAt, &res.SubmittedAt, &res.ViolationCount, &res.FinishReason); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
