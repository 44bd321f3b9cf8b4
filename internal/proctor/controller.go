package proctor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusSubmitted  Status = "submitted"
)

// Prompt is the blocking prompt currently shown to the student.
type Prompt string

const (
	PromptNone        Prompt = "none"
	PromptViolation   Prompt = "violation"
	PromptFinish      Prompt = "finish_confirm"
	PromptSubmitError Prompt = "submit_error"
)

// ErrAlreadyStarted is returned by Start on a controller that left not_started.
var ErrAlreadyStarted = errors.New("session already started")

// Deps are the collaborators of a Controller.
type Deps struct {
	Clock   Clock
	Repo    SessionRepository
	Results ResultSink
	Events  EventSink
	Log     zerolog.Logger
}

// FinishSummary is shown in the finish confirmation prompt.
type FinishSummary struct {
	Total      int `json:"total"`
	Unanswered int `json:"unanswered"`
	Flagged    int `json:"flagged"`
}

// Controller owns one student's attempt at one exam.
//
// All state is guarded by mu. Timer callbacks and client actions take the
// lock, so they never interleave mid-step. finalizing is set under the lock
// before the result is sent to the store and makes every timer and signal
// callback a no-op until the submission returns.
type Controller struct {
	mu   sync.Mutex
	opts Options
	deps Deps
	log  zerolog.Logger

	status    Status
	prompt    Prompt
	student   model.Student
	exam      model.Exam
	questions []model.Question
	position  map[string]int
	answers   map[string]int
	flagged   map[string]struct{}
	startTime time.Time
	endTime   time.Time
	current   int

	violations    int
	lastViolation ViolationKind
	armed         bool
	det           detector

	finalizing bool
	pending    *model.ExamResult
	submitErr  string
	result     *model.ExamResult

	ticker    Timer
	tickGen   uint64
	resume    Timer
	resumeGen uint64

	subs    map[int]func(View)
	nextSub int
}

// NewController returns a controller in the not_started state.
func NewController(opts Options, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Events == nil {
		deps.Events = nopSink{}
	}
	return &Controller{
		opts:   opts.withDefaults(),
		deps:   deps,
		log:    deps.Log.With().Str("component", "exam_session").Logger(),
		status: StatusNotStarted,
		prompt: PromptNone,
		det:    newDetector(),
		subs:   make(map[int]func(View)),
	}
}

// Start moves the controller from not_started to active. It is called once
// the student has acknowledged the exam rules.
func (c *Controller) Start(ctx context.Context, adm *Admission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusNotStarted {
		return ErrAlreadyStarted
	}
	if len(adm.Questions) == 0 {
		return ErrNoQuestions
	}

	questions := make([]model.Question, len(adm.Questions))
	copy(questions, adm.Questions)
	if adm.Exam.RandomizeQuestions {
		c.opts.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	now := c.deps.Clock.Now()
	c.student = adm.Student
	c.exam = adm.Exam
	c.setQuestionsLocked(questions)
	c.answers = make(map[string]int)
	c.flagged = make(map[string]struct{})
	c.startTime = now
	c.endTime = now.Add(adm.Exam.Duration())
	c.current = 0
	c.violations = 0
	c.lastViolation = ViolationNone
	c.status = StatusActive
	c.prompt = PromptNone
	c.armed = true

	c.log = c.log.With().
		Str("exam_id", c.exam.ID.String()).
		Int("student_id", c.student.ID).
		Logger()

	c.persistLocked(ctx)
	c.startTickerLocked()
	c.publishLocked(ctx, EventStarted)
	c.log.Info().Time("ends_at", c.endTime).Int("questions", len(questions)).Msg("Session started")
	c.notifyLocked()
	return nil
}

// Restore rehydrates the session persisted in deps.Repo. A session whose end
// time has passed is cleared and reported as ErrSessionExpired; it is never
// submitted from here. The caller announces the session with AnnounceResumed
// once it owns the controller.
func Restore(ctx context.Context, opts Options, deps Deps) (*Controller, error) {
	c := NewController(opts, deps)

	snap, err := c.deps.Repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	// Version 1 lacks only the pending-result fields and reads as is.
	if snap == nil || snap.Version < 1 || snap.Version > SnapshotVersion || len(snap.Questions) == 0 {
		if snap != nil {
			_ = c.deps.Repo.Clear(ctx)
		}
		return nil, ErrNoSession
	}

	if Remaining(c.deps.Clock.Now(), snap.EndTime) <= 0 {
		if err := c.deps.Repo.Clear(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Failed to clear expired session")
		}
		return nil, ErrSessionExpired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.student = snap.Student
	c.exam = snap.Exam
	c.setQuestionsLocked(snap.Questions)
	c.answers = make(map[string]int, len(snap.Answers))
	for k, v := range snap.Answers {
		c.answers[k] = v
	}
	c.flagged = make(map[string]struct{}, len(snap.Flagged))
	for _, id := range snap.Flagged {
		c.flagged[id] = struct{}{}
	}
	c.startTime = snap.StartTime
	c.endTime = snap.EndTime
	c.current = snap.CurrentIndex
	if c.current < 0 || c.current >= len(c.questions) {
		c.current = 0
	}
	c.violations = snap.ViolationCount
	c.lastViolation = snap.LastViolation
	c.status = StatusActive

	switch {
	case snap.Prompt == PromptSubmitError && snap.PendingReason != "":
		// The graded result is retried as it was, with its original reason.
		at := snap.EndTime
		if snap.PendingAt != nil {
			at = *snap.PendingAt
		}
		c.pending = c.gradeLocked(snap.PendingReason, at)
		c.prompt = PromptSubmitError
		c.submitErr = snap.SubmitError
		c.armed = false
	case snap.Prompt == PromptViolation || c.violations >= c.opts.ViolationThreshold:
		// A counted violation must still be acknowledged; at the threshold
		// that acknowledgment is the disqualifying submission.
		c.prompt = PromptViolation
		c.armed = false
	default:
		c.prompt = PromptNone
		c.armed = true
	}

	c.log = c.log.With().
		Str("exam_id", c.exam.ID.String()).
		Int("student_id", c.student.ID).
		Logger()

	if c.prompt != PromptSubmitError {
		c.startTickerLocked()
	}
	c.log.Info().
		Int("answered", len(c.answers)).
		Int("violations", c.violations).
		Msg("Session restored")
	return c, nil
}

// ─── Answer / navigation ───────────────────────────────────────────────

// SelectAnswer stores option as the answer to questionID.
func (c *Controller) SelectAnswer(ctx context.Context, questionID string, option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return err
	}
	pos, ok := c.position[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if option < 0 || option >= len(c.questions[pos].Options) {
		return ErrInvalidOption
	}

	c.answers[questionID] = option
	c.persistLocked(ctx)
	c.notifyLocked()
	return nil
}

// ToggleFlag marks or unmarks questionID as unsure and returns the new mark.
func (c *Controller) ToggleFlag(ctx context.Context, questionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return false, err
	}
	if _, ok := c.position[questionID]; !ok {
		return false, ErrUnknownQuestion
	}

	_, marked := c.flagged[questionID]
	if marked {
		delete(c.flagged, questionID)
	} else {
		c.flagged[questionID] = struct{}{}
	}
	c.persistLocked(ctx)
	c.notifyLocked()
	return !marked, nil
}

// Navigate moves the cursor to index.
func (c *Controller) Navigate(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.questions) {
		return ErrIndexOutOfRange
	}

	c.current = index
	c.persistLocked(ctx)
	c.notifyLocked()
	return nil
}

// ─── Finish flow ───────────────────────────────────────────────────────

// RequestFinish opens the finish confirmation prompt. The detector is
// disarmed so the prompt's own focus changes are not counted.
func (c *Controller) RequestFinish(ctx context.Context) (FinishSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.liveLocked(); err != nil {
		return FinishSummary{}, err
	}
	switch c.prompt {
	case PromptFinish:
		return c.summaryLocked(), nil
	case PromptNone:
	default:
		return FinishSummary{}, ErrPromptPending
	}

	c.disarmLocked()
	c.prompt = PromptFinish
	c.persistLocked(ctx)
	c.notifyLocked()
	return c.summaryLocked(), nil
}

// CancelFinish closes the finish prompt and re-arms the detector after the
// resume delay.
func (c *Controller) CancelFinish(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.liveLocked(); err != nil {
		return err
	}
	if c.prompt != PromptFinish {
		return ErrFinishNotRequested
	}

	c.prompt = PromptNone
	c.scheduleResumeLocked()
	c.persistLocked(ctx)
	c.notifyLocked()
	return nil
}

// ConfirmFinish grades and submits the session regardless of unanswered or
// flagged questions. After a failed submission it retries with the result
// computed the first time.
func (c *Controller) ConfirmFinish(ctx context.Context) (*model.ExamResult, error) {
	c.mu.Lock()
	if err := c.liveLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	var res *model.ExamResult
	switch c.prompt {
	case PromptFinish:
		res = c.beginSubmitLocked(model.FinishConfirmed)
	case PromptSubmitError:
		res = c.beginSubmitLocked(c.pending.FinishReason)
	default:
		c.mu.Unlock()
		return nil, ErrFinishNotRequested
	}
	c.mu.Unlock()

	return c.submit(ctx, res)
}

// ─── Violations ────────────────────────────────────────────────────────

// Signal feeds a browser event to the violation detector.
func (c *Controller) Signal(ctx context.Context, sig Signal) Reaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive {
		return ReactionNone
	}

	kind, grace := c.det.observe(sig)
	if grace {
		gen := c.det.blurGen
		c.det.blur = c.deps.Clock.AfterFunc(c.opts.FocusGrace, func() {
			c.onFocusGrace(gen)
		})
	}
	if kind != ViolationNone {
		c.registerViolationLocked(ctx, kind)
	}

	if sig.Kind == SignalBackNavigation {
		return ReactionRepushHistory
	}
	return ReactionNone
}

// AcknowledgeViolation closes the violation prompt. At the threshold it
// submits the session as disqualified and returns the result.
func (c *Controller) AcknowledgeViolation(ctx context.Context) (*model.ExamResult, error) {
	c.mu.Lock()
	if err := c.liveLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.prompt != PromptViolation {
		c.mu.Unlock()
		return nil, ErrNoPendingViolation
	}

	if c.violations >= c.opts.ViolationThreshold {
		res := c.beginSubmitLocked(model.FinishDisqualified)
		c.mu.Unlock()
		return c.submit(ctx, res)
	}

	c.prompt = PromptNone
	c.scheduleResumeLocked()
	c.persistLocked(ctx)
	c.notifyLocked()
	c.mu.Unlock()
	return nil, nil
}

func (c *Controller) onFocusGrace(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive || !c.det.focusLost(gen) {
		return
	}
	c.registerViolationLocked(context.Background(), ViolationFocusLost)
}

// registerViolationLocked counts one violation unless the detector is
// disarmed. Disarming on the first hit collapses the signals of a single
// real event (a tab switch fires both visibility and blur) into one count.
func (c *Controller) registerViolationLocked(ctx context.Context, kind ViolationKind) bool {
	if c.status != StatusActive || c.finalizing || !c.armed {
		return false
	}

	c.disarmLocked()
	c.violations++
	c.lastViolation = kind
	c.prompt = PromptViolation

	c.log.Warn().
		Str("violation", string(kind)).
		Int("count", c.violations).
		Msg("Integrity violation")

	c.persistLocked(ctx)
	c.publishLocked(ctx, EventViolation)
	c.notifyLocked()
	return true
}

// ─── Timer ─────────────────────────────────────────────────────────────

func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()
	c.scheduleTickLocked(c.tickGen)
}

func (c *Controller) scheduleTickLocked(gen uint64) {
	next := c.opts.TickInterval
	if rem := Remaining(c.deps.Clock.Now(), c.endTime); rem < next {
		next = rem
	}
	c.ticker = c.deps.Clock.AfterFunc(next, func() { c.onTick(gen) })
}

func (c *Controller) stopTickerLocked() {
	c.tickGen++
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	if gen != c.tickGen || c.status != StatusActive || c.finalizing {
		c.mu.Unlock()
		return
	}

	if Remaining(c.deps.Clock.Now(), c.endTime) <= 0 {
		c.log.Info().Msg("Time is up, submitting")
		res := c.beginSubmitLocked(model.FinishTimeout)
		c.mu.Unlock()
		if _, err := c.submit(context.Background(), res); err != nil {
			c.log.Error().Err(err).Msg("Automatic submission failed")
		}
		return
	}

	c.notifyLocked()
	c.scheduleTickLocked(gen)
	c.mu.Unlock()
}

// ─── Submission ────────────────────────────────────────────────────────

// beginSubmitLocked stops the countdown and the detector, then grades the
// session. The result is kept so a failed submission can be retried.
func (c *Controller) beginSubmitLocked(reason model.FinishReason) *model.ExamResult {
	c.stopTickerLocked()
	c.disarmLocked()
	c.det.cancelBlur()
	c.finalizing = true

	if c.pending == nil {
		c.pending = c.gradeLocked(reason, c.deps.Clock.Now())
	}
	return c.pending
}

// gradeLocked builds the result of the current answers.
func (c *Controller) gradeLocked(reason model.FinishReason, at time.Time) *model.ExamResult {
	answers := make(map[string]int, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	return &model.ExamResult{
		ExamID:         c.exam.ID,
		StudentID:      c.student.ID,
		NIS:            c.student.NIS,
		StudentName:    c.student.Name,
		ClassName:      c.student.ClassName,
		Answers:        answers,
		Score:          Score(c.questions, answers),
		StartedAt:      c.startTime,
		SubmittedAt:    at,
		ViolationCount: c.violations,
		FinishReason:   reason,
	}
}

func (c *Controller) submit(ctx context.Context, res *model.ExamResult) (*model.ExamResult, error) {
	sctx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
	id, err := c.deps.Results.CreateResult(sctx, res)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalizing = false

	if err != nil && !errors.Is(err, ErrAlreadyTaken) {
		c.prompt = PromptSubmitError
		c.submitErr = err.Error()
		c.log.Error().Err(err).Str("reason", string(res.FinishReason)).Msg("Result submission failed")
		c.persistLocked(context.Background())
		c.notifyLocked()
		if errors.Is(err, ErrNetwork) {
			return nil, err
		}
		return nil, storeErr("create result", err)
	}

	c.status = StatusSubmitted
	c.prompt = PromptNone
	c.submitErr = ""
	c.pending = nil
	c.stopResumeLocked()

	if err := c.deps.Repo.Clear(context.Background()); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear persisted session")
	}

	if err != nil {
		c.log.Warn().Msg("Result already exists for this student, session closed")
		c.notifyLocked()
		return nil, ErrAlreadyTaken
	}

	res.ID = id
	c.result = res
	c.publishLocked(ctx, EventSubmitted)
	c.log.Info().
		Int("score", res.Score).
		Str("reason", string(res.FinishReason)).
		Int("violations", res.ViolationCount).
		Msg("Session submitted")
	c.notifyLocked()
	return res, nil
}

// ─── Detector arming ───────────────────────────────────────────────────

func (c *Controller) disarmLocked() {
	c.armed = false
	c.stopResumeLocked()
}

func (c *Controller) stopResumeLocked() {
	c.resumeGen++
	if c.resume != nil {
		c.resume.Stop()
		c.resume = nil
	}
}

// scheduleResumeLocked re-arms the detector after the resume delay so the
// blur caused by a closing prompt is not counted.
func (c *Controller) scheduleResumeLocked() {
	c.stopResumeLocked()
	if c.opts.ResumeDelay == 0 {
		c.armed = true
		return
	}
	gen := c.resumeGen
	c.resume = c.deps.Clock.AfterFunc(c.opts.ResumeDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.resumeGen || c.status != StatusActive || c.finalizing || c.prompt != PromptNone {
			return
		}
		c.resume = nil
		c.armed = true
		c.notifyLocked()
	})
}

// AnnounceResumed publishes the resumed event of a restored session.
func (c *Controller) AnnounceResumed(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusActive {
		c.publishLocked(ctx, EventResumed)
	}
}

// ─── Accessors ─────────────────────────────────────────────────────────

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ExamID returns the exam of the session.
func (c *Controller) ExamID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exam.ID
}

// StudentID returns the student of the session.
func (c *Controller) StudentID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.student.ID
}

// EndTime returns the absolute expiry of the session.
func (c *Controller) EndTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endTime
}

// Result returns the submitted result, or nil before submission.
func (c *Controller) Result() *model.ExamResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Paper returns the frozen question order without the answer key.
func (c *Controller) Paper() []model.QuestionForStudent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.QuestionForStudent, len(c.questions))
	for i := range c.questions {
		out[i] = c.questions[i].ForStudent()
	}
	return out
}

// Subscribe registers fn to receive a View after every change and every
// tick. fn runs with the controller lock held and must not block.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops every timer. Persisted state is left in place so the session
// can be restored later.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
	c.stopResumeLocked()
	c.det.cancelBlur()
}

// ─── Internal helpers ──────────────────────────────────────────────────

func (c *Controller) setQuestionsLocked(questions []model.Question) {
	c.questions = questions
	c.position = make(map[string]int, len(questions))
	for i := range questions {
		c.position[questions[i].ID.String()] = i
	}
}

// liveLocked allows actions on an active session that is not being finalized.
func (c *Controller) liveLocked() error {
	if c.status != StatusActive {
		return ErrNotActive
	}
	if c.finalizing {
		return ErrSubmitting
	}
	return nil
}

// mutableLocked additionally requires time left and no open prompt.
func (c *Controller) mutableLocked() error {
	if err := c.liveLocked(); err != nil {
		return err
	}
	if Remaining(c.deps.Clock.Now(), c.endTime) <= 0 {
		return ErrTimeUp
	}
	if c.prompt != PromptNone {
		return ErrPromptPending
	}
	return nil
}

func (c *Controller) summaryLocked() FinishSummary {
	return FinishSummary{
		Total:      len(c.questions),
		Unanswered: unansweredCount(c.questions, c.answers),
		Flagged:    len(c.flagged),
	}
}

func (c *Controller) snapshotLocked() *Snapshot {
	answers := make(map[string]int, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	snap := &Snapshot{
		Version:        SnapshotVersion,
		Student:        c.student,
		Exam:           c.exam,
		Questions:      c.questions,
		Answers:        answers,
		Flagged:        c.flaggedLocked(),
		StartTime:      c.startTime,
		EndTime:        c.endTime,
		ViolationCount: c.violations,
		CurrentIndex:   c.current,
		Prompt:         c.prompt,
		LastViolation:  c.lastViolation,
	}
	if c.pending != nil {
		at := c.pending.SubmittedAt
		snap.PendingReason = c.pending.FinishReason
		snap.PendingAt = &at
		snap.SubmitError = c.submitErr
	}
	return snap
}

func (c *Controller) flaggedLocked() []string {
	out := make([]string, 0, len(c.flagged))
	for id := range c.flagged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// persistLocked mirrors the session to the device slot. A failed write is
// logged: the in-memory state stays authoritative.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.deps.Repo.Save(ctx, c.snapshotLocked()); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist session")
	}
}

func (c *Controller) publishLocked(ctx context.Context, typ EventType) {
	ev := Event{
		Type:           typ,
		ExamID:         c.exam.ID,
		StudentID:      c.student.ID,
		StudentName:    c.student.Name,
		ClassName:      c.student.ClassName,
		ViolationCount: c.violations,
		At:             c.deps.Clock.Now(),
	}
	switch typ {
	case EventViolation:
		ev.Violation = c.lastViolation
	case EventSubmitted:
		if c.result != nil {
			score := c.result.Score
			ev.Score = &score
			ev.Reason = c.result.FinishReason
		}
	}
	c.deps.Events.Publish(ctx, ev)
}

func (c *Controller) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	v := c.viewLocked()
	for _, fn := range c.subs {
		fn(v)
	}
}
