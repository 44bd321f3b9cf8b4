package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// GradebookWorker upserts stored scores into grade_book, the table the
// school's report cards read from.
type GradebookWorker struct {
	db  DB
	log zerolog.Logger
	q   *queue[model.GradebookEntry]
}

func NewGradebookWorker(db DB, rdb *redis.Client, log zerolog.Logger) *GradebookWorker {
	w := &GradebookWorker{
		db:  db,
		log: log.With().Str("component", "gradebook_worker").Logger(),
	}
	w.q = &queue[model.GradebookEntry]{
		rdb:     rdb,
		key:     config.WorkerKey.PersistGradebookQueue,
		log:     w.log,
		flush:   w.flush,
		backoff: requeueBackoff,
	}
	return w
}

func (w *GradebookWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradebookWorker started")
	w.q.run(ctx)
}

// ─── Batch upsert ──────────────────────────────────────────────────────

const gradebookUpsert = `
	INSERT INTO grade_book (student_id, exam_id, subject, semester, score, recorded_at)
	SELECT u.student_id, u.exam_id, e.subject, e.semester, u.score, u.recorded_at
	FROM UNNEST(
		$1::int[],
		$2::uuid[],
		$3::int[],
		$4::timestamptz[]
	) AS u (student_id, exam_id, score, recorded_at)
	JOIN exams e ON e.id = u.exam_id
	ON CONFLICT (student_id, exam_id) DO UPDATE
	SET score = EXCLUDED.score,
	    recorded_at = EXCLUDED.recorded_at`

func (w *GradebookWorker) flush(ctx context.Context, batch []model.GradebookEntry) []model.GradebookEntry {
	valid := batch[:0:0]
	for _, e := range batch {
		if _, err := uuid.Parse(e.ExamID); err != nil {
			w.log.Error().Str("exam_id", e.ExamID).Msg("Dropping grade-book entry with invalid exam id")
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil
	}

	err := w.upsert(ctx, valid)
	if err == nil {
		return nil
	}
	w.log.Warn().Err(err).Int("count", len(valid)).Msg("Bulk grade-book upsert failed, using fallback")

	var failed []model.GradebookEntry
	for _, e := range valid {
		if err := w.upsert(ctx, []model.GradebookEntry{e}); err != nil {
			w.log.Error().Err(err).Int("student_id", e.StudentID).Msg("Grade-book upsert failed, requeueing")
			failed = append(failed, e)
		}
	}
	return failed
}

func (w *GradebookWorker) upsert(ctx context.Context, batch []model.GradebookEntry) error {
	n := len(batch)
	students := make([]int, n)
	exams := make([]uuid.UUID, n)
	scores := make([]int, n)
	recorded := make([]time.Time, n)
	for i, e := range batch {
		students[i] = e.StudentID
		exams[i] = uuid.MustParse(e.ExamID)
		scores[i] = e.Score
		recorded[i] = time.Unix(e.Timestamp, 0)
	}

	_, err := w.db.Exec(ctx, gradebookUpsert, students, exams, scores, recorded)
	return err
}
