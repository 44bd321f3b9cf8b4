package model

import (
	"time"

	"github.com/google/uuid"
)

// Semester values accepted by the login gate. SemesterUnset is what an
// untouched selector submits.
const (
	SemesterUnset = ""
	SemesterOdd   = "ganjil"
	SemesterEven  = "genap"
)

// Exam represents an exam definition.
type Exam struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Subject            string     `json:"subject"`
	Semester           string     `json:"semester"`
	Grade              string     `json:"grade"`
	DurationMinutes    int        `json:"duration_minutes"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	Rules              string     `json:"rules,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Duration returns the exam length as a time.Duration.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Closed reports whether the exam deadline has passed at now.
func (e *Exam) Closed(now time.Time) bool {
	return e.Deadline != nil && !now.Before(*e.Deadline)
}

// AcknowledgeRequest confirms or cancels the exam rules prompt.
type AcknowledgeRequest struct {
	Confirmed *bool `json:"confirmed" binding:"required"`
}
