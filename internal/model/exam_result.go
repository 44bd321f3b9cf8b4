package model

import (
	"time"

	"github.com/google/uuid"
)

// FinishReason records why a session was submitted.
type FinishReason string

const (
	FinishConfirmed    FinishReason = "confirmed"
	FinishTimeout      FinishReason = "timeout"
	FinishDisqualified FinishReason = "disqualified"
)

// ExamResult is created once per session and is immutable afterwards.
type ExamResult struct {
	ID             uuid.UUID      `json:"id"`
	ExamID         uuid.UUID      `json:"exam_id"`
	StudentID      int            `json:"student_id"`
	NIS            string         `json:"nis"`
	StudentName    string         `json:"student_name"`
	ClassName      string         `json:"class_name"`
	Answers        map[string]int `json:"answers"`
	Score          int            `json:"score"`
	StartedAt      time.Time      `json:"started_at"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	ViolationCount int            `json:"violation_count"`
	FinishReason   FinishReason   `json:"finish_reason"`
}
