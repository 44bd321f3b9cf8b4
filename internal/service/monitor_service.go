package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// MonitorSource provides the stored state of an exam for the proctor feed.
type MonitorSource interface {
	GetSubmitted(ctx context.Context, examID uuid.UUID) (map[int]*repository.MonitorSummary, error)
	GetViolationCounts(ctx context.Context, examID uuid.UUID) (map[int]int64, error)
}

// MonitorService orchestrates live exam monitoring business logic.
type MonitorService struct {
	source MonitorSource
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(source MonitorSource) *MonitorService {
	return &MonitorService{source: source}
}

// MonitorSnapshot is sent when a proctor opens the feed. Live events follow.
type MonitorSnapshot struct {
	ExamID          string                      `json:"exam_id"`
	Students        []repository.MonitorSummary `json:"students"`
	TotalViolations int64                       `json:"total_violations"`
}

// Snapshot merges submitted results with audited violation counts. Both
// fetches run concurrently; violation counts are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		submitted    map[int]*repository.MonitorSummary
		counts       map[int]int64
		submittedErr error
		countsErr    error
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		submitted, submittedErr = s.source.GetSubmitted(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = s.source.GetViolationCounts(ctx, examID)
	}()
	wg.Wait()

	if submittedErr != nil {
		return nil, submittedErr
	}
	if submitted == nil {
		submitted = make(map[int]*repository.MonitorSummary)
	}

	snap := &MonitorSnapshot{ExamID: examID.String(), Students: make([]repository.MonitorSummary, 0, len(submitted))}
	if countsErr == nil {
		for sid, n := range counts {
			snap.TotalViolations += n
			if _, ok := submitted[sid]; !ok {
				// In progress: only violations are known until the result lands.
				submitted[sid] = &repository.MonitorSummary{StudentID: sid}
			}
			submitted[sid].ViolationCount = n
		}
	}
	for _, sum := range submitted {
		snap.Students = append(snap.Students, *sum)
	}
	sort.Slice(snap.Students, func(i, j int) bool {
		return snap.Students[i].StudentID < snap.Students[j].StudentID
	})
	return snap, nil
}
