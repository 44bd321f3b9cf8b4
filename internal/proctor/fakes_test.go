package proctor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/require"
)

// ─── Clock ─────────────────────────────────────────────────────────────

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires due callbacks in time order from Advance. Callbacks run
// without the clock lock so they may schedule new timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		live := c.timers[:0]
		for _, t := range c.timers {
			if t.stopped || t.fired {
				continue
			}
			live = append(live, t)
			if t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		c.timers = live
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// ─── Session slot ──────────────────────────────────────────────────────

type memRepo struct {
	mu    sync.Mutex
	data  []byte
	saves int
	err   error
}

func (r *memRepo) Save(_ context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	r.data = b
	r.saves++
	return nil
}

func (r *memRepo) Load(context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(r.data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *memRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	return nil
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memRepo) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data == nil
}

// ─── Table store ───────────────────────────────────────────────────────

type memStore struct {
	mu        sync.Mutex
	exams     map[uuid.UUID]*model.Exam
	students  map[string]*model.Student
	questions map[uuid.UUID][]model.Question
	results   map[string]*model.ExamResult
	createErr error
	lookupErr error
	creates   int
}

func newMemStore() *memStore {
	return &memStore{
		exams:     make(map[uuid.UUID]*model.Exam),
		students:  make(map[string]*model.Student),
		questions: make(map[uuid.UUID][]model.Question),
		results:   make(map[string]*model.ExamResult),
	}
}

func resultKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d/%s", studentID, examID)
}

func (s *memStore) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.exams[id], nil
}

func (s *memStore) LookupStudent(_ context.Context, nis string) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.students[nis], nil
}

func (s *memStore) ListQuestions(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[examID], nil
}

func (s *memStore) StudentHasResult(_ context.Context, studentID int, examID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.results[resultKey(studentID, examID)]
	return ok, nil
}

func (s *memStore) CreateResult(_ context.Context, res *model.ExamResult) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return uuid.Nil, s.createErr
	}
	key := resultKey(res.StudentID, res.ExamID)
	if _, ok := s.results[key]; ok {
		return uuid.Nil, ErrAlreadyTaken
	}
	cp := *res
	s.results[key] = &cp
	return uuid.New(), nil
}

func (s *memStore) result(studentID int, examID uuid.UUID) *model.ExamResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[resultKey(studentID, examID)]
}

func (s *memStore) setCreateErr(err error) {
	s.mu.Lock()
	s.createErr = err
	s.mu.Unlock()
}

// ─── Events ────────────────────────────────────────────────────────────

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Publish(_ context.Context, ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

// ─── Fixture ───────────────────────────────────────────────────────────

type fixture struct {
	clock  *fakeClock
	repo   *memRepo
	store  *memStore
	events *recordSink
	exam   *model.Exam
	stud   *model.Student
	opts   Options
}

func newFixture(t *testing.T, numQuestions int) *fixture {
	t.Helper()
	f := &fixture{
		clock:  newFakeClock(),
		repo:   &memRepo{},
		store:  newMemStore(),
		events: &recordSink{},
		opts: Options{
			ViolationThreshold: 3,
			FocusGrace:         300 * time.Millisecond,
			ResumeDelay:        500 * time.Millisecond,
			TickInterval:       time.Second,
			SubmitTimeout:      time.Second,
		},
	}
	f.exam = &model.Exam{
		ID:              uuid.New(),
		Title:           "Matematika Wajib",
		Subject:         "Matematika",
		Semester:        model.SemesterOdd,
		Grade:           "10",
		DurationMinutes: 60,
	}
	f.stud = &model.Student{ID: 42, NIS: "10231", Name: "Siti Aminah", ClassName: "10 IPA 2"}
	f.store.exams[f.exam.ID] = f.exam
	f.store.students[f.stud.NIS] = f.stud

	questions := make([]model.Question, numQuestions)
	for i := range questions {
		questions[i] = model.Question{
			ID:           uuid.New(),
			ExamID:       f.exam.ID,
			Prompt:       fmt.Sprintf("Soal %d", i+1),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % model.OptionCount,
			OrderNum:     i + 1,
		}
	}
	f.store.questions[f.exam.ID] = questions
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Clock:   f.clock,
		Repo:    f.repo,
		Results: f.store,
		Events:  f.events,
		Log:     zerolog.Nop(),
	}
}

// start logs the fixture student in and starts a session.
func (f *fixture) start(t *testing.T) *Controller {
	t.Helper()
	gate := NewGate(f.store, f.clock.Now)
	adm, err := gate.AttemptLogin(context.Background(), f.exam.ID, f.stud.NIS, model.SemesterOdd)
	require.NoError(t, err)

	c := NewController(f.opts, f.deps())
	require.NoError(t, c.Start(context.Background(), adm))
	t.Cleanup(c.Close)
	return c
}

// tabSwitch emits the signals a real tab switch produces: hidden, then blur.
func tabSwitch(ctx context.Context, c *Controller) {
	c.Signal(ctx, Signal{Kind: SignalVisibility, Hidden: true})
	c.Signal(ctx, Signal{Kind: SignalBlur})
}

// tabReturn emits the signals of coming back to the exam tab.
func tabReturn(ctx context.Context, c *Controller) {
	c.Signal(ctx, Signal{Kind: SignalVisibility, Hidden: false})
	c.Signal(ctx, Signal{Kind: SignalFocus})
}
