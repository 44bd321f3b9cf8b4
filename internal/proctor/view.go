package proctor

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// View is the read model rendered by the exam page.
type View struct {
	Status             Status                    `json:"status"`
	Prompt             Prompt                    `json:"prompt"`
	ExamID             uuid.UUID                 `json:"exam_id"`
	ExamTitle          string                    `json:"exam_title"`
	Student            model.Student             `json:"student"`
	CurrentIndex       int                       `json:"current_index"`
	TotalQuestions     int                       `json:"total_questions"`
	CurrentQuestion    *model.QuestionForStudent `json:"current_question,omitempty"`
	TimeLeft           int                       `json:"time_left"`
	EndsAt             time.Time                 `json:"ends_at"`
	ViolationCount     int                       `json:"violation_count"`
	ViolationThreshold int                       `json:"violation_threshold"`
	LastViolation      ViolationKind             `json:"last_violation,omitempty"`
	DetectorArmed      bool                      `json:"detector_armed"`
	Answers            map[string]int            `json:"answers"`
	Flagged            []string                  `json:"flagged"`
	Finish             *FinishSummary            `json:"finish,omitempty"`
	Score              *int                      `json:"score,omitempty"`
	SubmitError        string                    `json:"submit_error,omitempty"`
}

// View returns the current read model.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Status:             c.status,
		Prompt:             c.prompt,
		ExamID:             c.exam.ID,
		ExamTitle:          c.exam.Title,
		Student:            c.student,
		CurrentIndex:       c.current,
		TotalQuestions:     len(c.questions),
		EndsAt:             c.endTime,
		ViolationCount:     c.violations,
		ViolationThreshold: c.opts.ViolationThreshold,
		LastViolation:      c.lastViolation,
		DetectorArmed:      c.armed && c.status == StatusActive && !c.finalizing,
		Answers:            make(map[string]int, len(c.answers)),
		Flagged:            c.flaggedLocked(),
		SubmitError:        c.submitErr,
	}
	for k, a := range c.answers {
		v.Answers[k] = a
	}
	if c.current >= 0 && c.current < len(c.questions) {
		q := c.questions[c.current].ForStudent()
		v.CurrentQuestion = &q
	}
	if c.status == StatusActive {
		v.TimeLeft = secondsLeft(Remaining(c.deps.Clock.Now(), c.endTime))
	}
	if c.prompt == PromptFinish {
		s := c.summaryLocked()
		v.Finish = &s
	}
	if c.result != nil {
		score := c.result.Score
		v.Score = &score
	}
	return v
}
