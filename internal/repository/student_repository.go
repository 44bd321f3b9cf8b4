package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByNIS retrieves a student by school number. Returns (nil, nil) when
// no student matches.
func (r *StudentRepository) GetByNIS(ctx context.Context, nis string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, nis, name, class_name FROM students WHERE nis = $1`, nis,
	).Scan(&s.ID, &s.NIS, &s.Name, &s.ClassName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert inserts a student or refreshes name and class of an existing NIS.
func (r *StudentRepository) Upsert(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (nis, name, class_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (nis) DO UPDATE
		 SET name = EXCLUDED.name, class_name = EXCLUDED.class_name
		 RETURNING id`,
		s.NIS, s.Name, s.ClassName,
	).Scan(&s.ID)
}
