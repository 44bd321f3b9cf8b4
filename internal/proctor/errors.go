package proctor

import (
	"errors"
	"fmt"
)

// Eligibility and session errors. Handlers match them with errors.Is.
var (
	ErrValidation        = errors.New("invalid login fields")
	ErrNotFound          = errors.New("not found")
	ErrGradeMismatch     = errors.New("student grade does not match exam grade")
	ErrAlreadyTaken      = errors.New("exam already taken by this student")
	ErrNoQuestions       = errors.New("exam has no questions")
	ErrExamClosed        = errors.New("exam deadline has passed")
	ErrNetwork           = errors.New("table store unavailable")
	ErrSessionExpired    = errors.New("session expired")
	ErrNoSession         = errors.New("no session in progress")
	ErrSessionInProgress = errors.New("another session is in progress on this device")

	ErrNotActive          = errors.New("session is not active")
	ErrTimeUp             = errors.New("exam time is up")
	ErrPromptPending      = errors.New("a prompt must be answered first")
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrInvalidOption      = errors.New("option index out of range")
	ErrIndexOutOfRange    = errors.New("question index out of range")
	ErrNoPendingViolation = errors.New("no violation awaiting acknowledgment")
	ErrFinishNotRequested = errors.New("finish was not requested")
	ErrSubmitting         = errors.New("submission already in progress")
)

// Login field errors, all matching ErrValidation.
var (
	ErrSemesterRequired   = fmt.Errorf("%w: semester is required", ErrValidation)
	ErrSemesterMismatch   = fmt.Errorf("%w: semester does not match the exam", ErrValidation)
	ErrIdentifierRequired = fmt.Errorf("%w: student number is required", ErrValidation)
)

// Lookup misses, both matching ErrNotFound.
var (
	ErrExamNotFound    = fmt.Errorf("%w: exam", ErrNotFound)
	ErrStudentNotFound = fmt.Errorf("%w: student", ErrNotFound)
)

// StoreError wraps a failed call to the table store. It matches ErrNetwork.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrNetwork }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
