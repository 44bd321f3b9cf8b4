package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ViolationWorker persists the violation audit log queued by the event
// publisher into exam_violations.
type ViolationWorker struct {
	db  DB
	log zerolog.Logger
	q   *queue[model.ViolationRecord]
}

func NewViolationWorker(db DB, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	w := &ViolationWorker{
		db:  db,
		log: log.With().Str("component", "violation_worker").Logger(),
	}
	w.q = &queue[model.ViolationRecord]{
		rdb:     rdb,
		key:     config.WorkerKey.PersistViolationsQueue,
		log:     w.log,
		flush:   w.flush,
		backoff: requeueBackoff,
	}
	return w
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")
	w.q.run(ctx)
}

// flush tries a COPY of the whole batch, then falls back to row inserts.
func (w *ViolationWorker) flush(ctx context.Context, batch []model.ViolationRecord) []model.ViolationRecord {
	err := w.bulkInsert(ctx, batch)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	return w.fallbackInsert(ctx, batch)
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []model.ViolationRecord) error {
	rows := make([][]any, 0, len(batch))
	for _, v := range batch {
		examID, err := uuid.Parse(v.ExamID)
		if err != nil {
			// The fallback drops the bad row individually.
			return err
		}
		rows = append(rows, []any{examID, v.StudentID, v.Kind, v.Sequence, time.Unix(v.Timestamp, 0)})
	}

	_, err := w.db.CopyFrom(ctx,
		pgx.Identifier{"exam_violations"},
		[]string{"exam_id", "student_id", "kind", "sequence", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []model.ViolationRecord) []model.ViolationRecord {
	var failed []model.ViolationRecord
	for _, v := range batch {
		examID, err := uuid.Parse(v.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", v.ExamID).Msg("Dropping violation with invalid exam id")
			continue
		}

		_, err = w.db.Exec(ctx,
			`INSERT INTO exam_violations (exam_id, student_id, kind, sequence, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (exam_id, student_id, sequence) DO NOTHING`,
			examID, v.StudentID, v.Kind, v.Sequence, time.Unix(v.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Int("student_id", v.StudentID).Msg("Insert failed, requeueing")
			failed = append(failed, v)
		}
	}
	return failed
}
