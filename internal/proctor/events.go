package proctor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// EventType enumerates lifecycle events published for proctors.
type EventType string

const (
	EventStarted   EventType = "started"
	EventResumed   EventType = "resumed"
	EventViolation EventType = "violation"
	EventSubmitted EventType = "submitted"
)

// Event describes a session lifecycle change.
type Event struct {
	Type           EventType          `json:"type"`
	ExamID         uuid.UUID          `json:"exam_id"`
	StudentID      int                `json:"student_id"`
	StudentName    string             `json:"student_name"`
	ClassName      string             `json:"class_name"`
	ViolationCount int                `json:"violation_count"`
	Violation      ViolationKind      `json:"violation,omitempty"`
	Score          *int               `json:"score,omitempty"`
	Reason         model.FinishReason `json:"reason,omitempty"`
	At             time.Time          `json:"at"`
}

// EventSink receives lifecycle events. Publish is called with the
// controller lock held and must not block or call back into the controller.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}
