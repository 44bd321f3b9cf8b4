package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ErrNoPendingLogin is returned when the rules prompt is answered without a
// preceding successful login, or after it timed out.
var ErrNoPendingLogin = errors.New("no login awaiting acknowledgment")

// DeviceSlots opens the persisted session slot of a device.
type DeviceSlots interface {
	Slot(deviceID string) proctor.SessionRepository
	Occupied(ctx context.Context, deviceID string) (bool, error)
}

var _ DeviceSlots = (*repository.SessionStore)(nil)

// AdmissionSummary is shown in the rules prompt after a successful login.
type AdmissionSummary struct {
	ExamID             uuid.UUID     `json:"exam_id"`
	ExamTitle          string        `json:"exam_title"`
	Subject            string        `json:"subject"`
	DurationMinutes    int           `json:"duration_minutes"`
	QuestionCount      int           `json:"question_count"`
	Rules              string        `json:"rules,omitempty"`
	ViolationThreshold int           `json:"violation_threshold"`
	Student            model.Student `json:"student"`
	ExpiresAt          time.Time     `json:"expires_at"`
}

// SessionTicket is returned when a session starts or is restored.
type SessionTicket struct {
	Token     string                     `json:"token"`
	ExpiresAt time.Time                  `json:"expires_at"`
	Session   proctor.View               `json:"session"`
	Paper     []model.QuestionForStudent `json:"paper"`
}

type pendingLogin struct {
	adm     *proctor.Admission
	expires time.Time
}

// ExamSessionService owns the live session controllers, one per device.
type ExamSessionService struct {
	gate       *proctor.Gate
	store      proctor.Store
	slots      DeviceSlots
	events     proctor.EventSink
	auth       *AuthService
	opts       proctor.Options
	clock      proctor.Clock
	ackTimeout time.Duration
	grace      time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingLogin
	active  map[string]*proctor.Controller
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	cfg *config.Config,
	store proctor.Store,
	slots DeviceSlots,
	events proctor.EventSink,
	auth *AuthService,
	log zerolog.Logger,
) *ExamSessionService {
	opts := proctor.DefaultOptions()
	opts.ViolationThreshold = cfg.ViolationThreshold
	opts.FocusGrace = cfg.FocusGrace
	opts.ResumeDelay = cfg.ResumeDelay
	opts.SubmitTimeout = cfg.SubmitTimeout

	clock := proctor.SystemClock()
	return &ExamSessionService{
		gate:       proctor.NewGate(store, clock.Now),
		store:      store,
		slots:      slots,
		events:     events,
		auth:       auth,
		opts:       opts,
		clock:      clock,
		ackTimeout: cfg.AckTimeout,
		grace:      cfg.SessionGrace,
		log:        log.With().Str("component", "exam_session_service").Logger(),
		pending:    make(map[string]*pendingLogin),
		active:     make(map[string]*proctor.Controller),
	}
}

// Login runs the eligibility checks for deviceID. On success the admission
// waits for the rules prompt to be acknowledged; no session exists yet.
func (s *ExamSessionService) Login(ctx context.Context, deviceID string, examID uuid.UUID, nis, semester string) (*AdmissionSummary, error) {
	if c := s.lookup(deviceID); c != nil && c.Status() == proctor.StatusActive {
		return nil, proctor.ErrSessionInProgress
	}
	occupied, err := s.slots.Occupied(ctx, deviceID)
	if err != nil {
		return nil, &proctor.StoreError{Op: "check device slot", Err: err}
	}
	if occupied {
		// The key outlives the session by the grace period; only a session
		// that restores as active holds the device.
		c, err := s.Controller(ctx, deviceID)
		switch {
		case errors.Is(err, proctor.ErrNoSession), errors.Is(err, proctor.ErrSessionExpired):
		case err != nil:
			return nil, err
		case c.Status() == proctor.StatusActive:
			return nil, proctor.ErrSessionInProgress
		}
	}

	adm, err := s.gate.AttemptLogin(ctx, examID, nis, semester)
	if err != nil {
		return nil, err
	}

	expires := s.clock.Now().Add(s.ackTimeout)
	s.mu.Lock()
	s.pending[deviceID] = &pendingLogin{adm: adm, expires: expires}
	s.mu.Unlock()

	s.log.Info().
		Str("device_id", deviceID).
		Str("exam_id", examID.String()).
		Int("student_id", adm.Student.ID).
		Msg("Login admitted, awaiting rules acknowledgment")

	return &AdmissionSummary{
		ExamID:             adm.Exam.ID,
		ExamTitle:          adm.Exam.Title,
		Subject:            adm.Exam.Subject,
		DurationMinutes:    adm.Exam.DurationMinutes,
		QuestionCount:      len(adm.Questions),
		Rules:              adm.Exam.Rules,
		ViolationThreshold: s.opts.ViolationThreshold,
		Student:            adm.Student,
		ExpiresAt:          expires,
	}, nil
}

// Acknowledge answers the rules prompt. A cancel discards the admission and
// returns (nil, nil); a confirm starts the session.
func (s *ExamSessionService) Acknowledge(ctx context.Context, deviceID string, examID uuid.UUID, confirmed bool) (*SessionTicket, error) {
	s.mu.Lock()
	p, ok := s.pending[deviceID]
	delete(s.pending, deviceID)
	s.mu.Unlock()

	if !ok || p.adm.Exam.ID != examID || s.clock.Now().After(p.expires) {
		return nil, ErrNoPendingLogin
	}
	if !confirmed {
		return nil, nil
	}

	c := proctor.NewController(s.opts, s.deps(deviceID))
	if err := c.Start(ctx, p.adm); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if old := s.active[deviceID]; old != nil {
		old.Close()
	}
	s.active[deviceID] = c
	s.mu.Unlock()

	return s.ticket(deviceID, c)
}

// Resume returns the live session of deviceID, restoring it from the device
// slot when this process does not hold it.
func (s *ExamSessionService) Resume(ctx context.Context, deviceID string) (*SessionTicket, error) {
	c, err := s.Controller(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if c.Status() != proctor.StatusActive {
		return nil, proctor.ErrNoSession
	}
	return s.ticket(deviceID, c)
}

// Controller returns the controller of deviceID. A submitted controller is
// still returned so its final view can be read.
func (s *ExamSessionService) Controller(ctx context.Context, deviceID string) (*proctor.Controller, error) {
	if c := s.lookup(deviceID); c != nil {
		return c, nil
	}

	c, err := proctor.Restore(ctx, s.opts, s.deps(deviceID))
	if err != nil {
		if errors.Is(err, proctor.ErrNoSession) || errors.Is(err, proctor.ErrSessionExpired) {
			return nil, err
		}
		return nil, &proctor.StoreError{Op: "restore session", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have restored the same slot meanwhile.
	if existing := s.active[deviceID]; existing != nil {
		c.Close()
		return existing, nil
	}
	s.active[deviceID] = c
	c.AnnounceResumed(ctx)
	return c, nil
}

// Sweep drops submitted controllers and expired admissions.
func (s *ExamSessionService) Sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for device, p := range s.pending {
		if now.After(p.expires) {
			delete(s.pending, device)
		}
	}
	for device, c := range s.active {
		if c.Status() == proctor.StatusSubmitted {
			c.Close()
			delete(s.active, device)
		}
	}
}

// Run sweeps periodically until ctx is cancelled.
func (s *ExamSessionService) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown stops every controller. Persisted slots stay in place so the
// sessions resume on the next process.
func (s *ExamSessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for device, c := range s.active {
		c.Close()
		delete(s.active, device)
	}
	s.log.Info().Msg("Session controllers stopped")
}

// ActiveCount returns the number of sessions held by this process.
func (s *ExamSessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *ExamSessionService) lookup(deviceID string) *proctor.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[deviceID]
}

func (s *ExamSessionService) deps(deviceID string) proctor.Deps {
	return proctor.Deps{
		Clock:   s.clock,
		Repo:    s.slots.Slot(deviceID),
		Results: s.store,
		Events:  s.events,
		Log:     s.log.With().Str("device_id", deviceID).Logger(),
	}
}

func (s *ExamSessionService) ticket(deviceID string, c *proctor.Controller) (*SessionTicket, error) {
	expires := c.EndTime().Add(s.grace)
	token, err := s.auth.GenerateSessionToken(deviceID, c.StudentID(), c.ExamID(), expires)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &SessionTicket{
		Token:     token,
		ExpiresAt: expires,
		Session:   c.View(),
		Paper:     c.Paper(),
	}, nil
}
