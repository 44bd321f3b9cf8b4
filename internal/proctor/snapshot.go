package proctor

import (
	"context"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// SnapshotVersion is bumped whenever the persisted layout changes.
const SnapshotVersion = 2

// Snapshot is the persisted form of an in-progress session.
type Snapshot struct {
	Version        int              `json:"version"`
	Student        model.Student    `json:"student"`
	Exam           model.Exam       `json:"exam"`
	Questions      []model.Question `json:"questions"`
	Answers        map[string]int   `json:"answers"`
	Flagged        []string         `json:"flagged"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	ViolationCount int              `json:"violation_count"`
	CurrentIndex   int              `json:"current_index"`
	Prompt         Prompt           `json:"prompt"`
	LastViolation  ViolationKind    `json:"last_violation,omitempty"`
	// Set while a graded result awaits a retry after a failed submission.
	PendingReason model.FinishReason `json:"pending_reason,omitempty"`
	PendingAt     *time.Time         `json:"pending_at,omitempty"`
	SubmitError   string             `json:"submit_error,omitempty"`
}

// SessionRepository is the single in-progress session slot of one device.
// Load returns (nil, nil) when the slot is empty.
type SessionRepository interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Clear(ctx context.Context) error
}
