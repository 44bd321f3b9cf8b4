package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// examListTTL bounds how stale the lobby may be after an exam closes.
const examListTTL = 30 * time.Second

// ExamReader is the read side of the exam table.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListOpen(ctx context.Context, now time.Time) ([]model.Exam, error)
}

// ExamSummary is the lobby entry of an exam. The grade lets a student pick
// the right exam; rules are only shown after login.
type ExamSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	Semester        string     `json:"semester"`
	Grade           string     `json:"grade"`
	DurationMinutes int        `json:"duration_minutes"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// ExamService serves the exam lobby through a short-lived Redis cache.
type ExamService struct {
	exams ExamReader
	rdb   *redis.Client
	log   zerolog.Logger
	now   func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamReader, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams: exams,
		rdb:   rdb,
		log:   log.With().Str("component", "exam_service").Logger(),
		now:   time.Now,
	}
}

// GetByID returns the exam, or (nil, nil) when it does not exist.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// ListOpen returns the open exams. A cache failure falls through to the
// database and is only logged.
func (s *ExamService) ListOpen(ctx context.Context) ([]ExamSummary, error) {
	key := config.CacheKey.ExamListKey()

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []ExamSummary
		if jerr := json.Unmarshal(data, &cached); jerr == nil {
			return s.dropClosed(cached), nil
		}
		s.log.Warn().Msg("Corrupt exam list cache, reloading")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Msg("Exam list cache unavailable")
	}

	exams, err := s.exams.ListOpen(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list open exams: %w", err)
	}

	list := make([]ExamSummary, 0, len(exams))
	for _, e := range exams {
		list = append(list, ExamSummary{
			ID:              e.ID.String(),
			Title:           e.Title,
			Subject:         e.Subject,
			Semester:        e.Semester,
			Grade:           e.Grade,
			DurationMinutes: e.DurationMinutes,
			Deadline:        e.Deadline,
		})
	}

	if payload, err := json.Marshal(list); err == nil {
		if err := s.rdb.Set(ctx, key, payload, examListTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache exam list")
		}
	}
	return list, nil
}

// Invalidate drops the cached lobby, e.g. after seeding a new exam.
func (s *ExamService) Invalidate(ctx context.Context) error {
	return s.rdb.Del(ctx, config.CacheKey.ExamListKey()).Err()
}

// dropClosed filters exams whose deadline passed while cached.
func (s *ExamService) dropClosed(list []ExamSummary) []ExamSummary {
	now := s.now()
	out := list[:0]
	for _, e := range list {
		if e.Deadline != nil && !now.Before(*e.Deadline) {
			continue
		}
		out = append(out, e)
	}
	return out
}
