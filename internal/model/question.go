package model

import (
	"github.com/google/uuid"
)

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

// Question represents a single multiple-choice exam question.
// CorrectIndex never leaves the server; see QuestionForStudent.
type Question struct {
	ID           uuid.UUID `json:"id"`
	ExamID       uuid.UUID `json:"exam_id"`
	Prompt       string    `json:"prompt"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	OrderNum     int       `json:"order_num"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	ImageURL *string   `json:"image_url,omitempty"`
	Options  []string  `json:"options"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionForStudent{
		ID:       q.ID,
		Prompt:   q.Prompt,
		ImageURL: q.ImageURL,
		Options:  opts,
	}
}
