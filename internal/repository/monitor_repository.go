package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorSummary is the per-student state a proctor sees when the feed opens.
type MonitorSummary struct {
	StudentID      int    `json:"student_id"`
	StudentName    string `json:"student_name"`
	ClassName      string `json:"class_name"`
	Submitted      bool   `json:"submitted"`
	Score          *int   `json:"score,omitempty"`
	FinishReason   string `json:"finish_reason,omitempty"`
	ViolationCount int64  `json:"violation_count"`
}

// MonitorRepository provides data access for the live exam monitoring feature.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetSubmitted returns one summary per student with a stored result.
func (r *MonitorRepository) GetSubmitted(ctx context.Context, examID uuid.UUID) (map[int]*MonitorSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, student_name, class_name, score, finish_reason
		 FROM exam_results WHERE exam_id = $1`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]*MonitorSummary)
	for rows.Next() {
		s := &MonitorSummary{Submitted: true}
		var score int
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.ClassName, &score, &s.FinishReason); err != nil {
			return nil, err
		}
		s.Score = &score
		out[s.StudentID] = s
	}
	return out, rows.Err()
}

// GetViolationCounts returns the number of audited violations per student.
func (r *MonitorRepository) GetViolationCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*)
		 FROM exam_violations
		 WHERE exam_id = $1
		 GROUP BY student_id`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var sid int
		var count int64
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}

	return counts, rows.Err()
}
