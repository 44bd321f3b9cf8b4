package proctor

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Store is the remote table store the exam module talks to.
// Lookups return (nil, nil) when the record does not exist.
type Store interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	LookupStudent(ctx context.Context, nis string) (*model.Student, error)
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	StudentHasResult(ctx context.Context, studentID int, examID uuid.UUID) (bool, error)
	ResultSink
}

// ResultSink receives finished results. A duplicate (student, exam) pair
// must be reported as ErrAlreadyTaken.
type ResultSink interface {
	CreateResult(ctx context.Context, result *model.ExamResult) (uuid.UUID, error)
}

// Admission is what a successful login hands to the rules prompt.
type Admission struct {
	Student   model.Student
	Exam      model.Exam
	Questions []model.Question
}

// Gate runs the eligibility checks that precede any session state.
type Gate struct {
	store Store
	now   func() time.Time
}

// NewGate creates a Gate over store. now may be nil.
func NewGate(store Store, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, now: now}
}

// AttemptLogin verifies the student may start the exam. Checks run in
// order and the first failure is returned; nothing is written.
func (g *Gate) AttemptLogin(ctx context.Context, examID uuid.UUID, nis, semester string) (*Admission, error) {
	semester = strings.TrimSpace(semester)
	nis = strings.TrimSpace(nis)

	if semester == model.SemesterUnset {
		return nil, ErrSemesterRequired
	}

	exam, err := g.store.GetExam(ctx, examID)
	if err != nil {
		return nil, storeErr("get exam", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if !strings.EqualFold(semester, exam.Semester) {
		return nil, ErrSemesterMismatch
	}
	if nis == "" {
		return nil, ErrIdentifierRequired
	}

	student, err := g.store.LookupStudent(ctx, nis)
	if err != nil {
		return nil, storeErr("lookup student", err)
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	if !strings.EqualFold(GradeOf(student.ClassName), strings.TrimSpace(exam.Grade)) {
		return nil, ErrGradeMismatch
	}

	taken, err := g.store.StudentHasResult(ctx, student.ID, exam.ID)
	if err != nil {
		return nil, storeErr("check result", err)
	}
	if taken {
		return nil, ErrAlreadyTaken
	}

	questions, err := g.store.ListQuestions(ctx, exam.ID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	if exam.Closed(g.now()) {
		return nil, ErrExamClosed
	}

	return &Admission{Student: *student, Exam: *exam, Questions: questions}, nil
}

// GradeOf extracts the grade prefix of a class name: the leading digits
// ("10 IPA 2" -> "10") or the leading roman numeral ("XI-RPL" -> "XI").
func GradeOf(className string) string {
	s := strings.ToUpper(strings.TrimSpace(className))
	if s == "" {
		return ""
	}
	end := 0
	if unicode.IsDigit(rune(s[0])) {
		for end < len(s) && unicode.IsDigit(rune(s[end])) {
			end++
		}
		return s[:end]
	}
	for end < len(s) && strings.IndexByte("IVX", s[end]) >= 0 {
		end++
	}
	if end > 0 {
		return s[:end]
	}
	// Not a recognized grade notation: compare the first token verbatim.
	if i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '.' }); i > 0 {
		return s[:i]
	}
	return s
}
