package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_InitialState(t *testing.T) {
	f := newFixture(t, 10)
	c := f.start(t)

	v := c.View()
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, PromptNone, v.Prompt)
	assert.Equal(t, 0, v.CurrentIndex)
	assert.Equal(t, 10, v.TotalQuestions)
	assert.Equal(t, 3600, v.TimeLeft)
	assert.Equal(t, f.clock.Now().Add(time.Hour), v.EndsAt)
	assert.True(t, v.DetectorArmed)
	assert.Empty(t, v.Answers)
	assert.Empty(t, v.Flagged)
	require.NotNil(t, v.CurrentQuestion)

	assert.False(t, f.repo.empty(), "session must be persisted at start")
	assert.Equal(t, []EventType{EventStarted}, f.events.types())
	assert.ErrorIs(t, c.Start(context.Background(), &Admission{}), ErrAlreadyStarted)
}

func TestStart_ShuffleOnceWhenRandomized(t *testing.T) {
	f := newFixture(t, 5)
	f.exam.RandomizeQuestions = true
	calls := 0
	f.opts.Shuffle = func(n int, swap func(i, j int)) {
		calls++
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	c := f.start(t)

	original := f.store.questions[f.exam.ID]
	paper := c.Paper()
	require.Len(t, paper, 5)
	assert.Equal(t, 1, calls)
	assert.Equal(t, original[4].ID, paper[0].ID)
	assert.Equal(t, original[0].ID, paper[4].ID)

	// Order stays frozen across actions and ticks.
	require.NoError(t, c.Navigate(context.Background(), 3))
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, paper, c.Paper())
	assert.Equal(t, 1, calls)
}

func TestStart_NoShuffleWhenNotRandomized(t *testing.T) {
	f := newFixture(t, 5)
	f.opts.Shuffle = func(int, func(i, j int)) { t.Fatal("shuffle must not run") }
	c := f.start(t)

	original := f.store.questions[f.exam.ID]
	for i, q := range c.Paper() {
		assert.Equal(t, original[i].ID, q.ID)
	}
}

func TestSelectAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	qid := c.Paper()[1].ID.String()

	require.NoError(t, c.SelectAnswer(ctx, qid, 2))
	require.NoError(t, c.SelectAnswer(ctx, qid, 1))
	assert.Equal(t, map[string]int{qid: 1}, c.View().Answers)

	assert.ErrorIs(t, c.SelectAnswer(ctx, qid, 4), ErrInvalidOption)
	assert.ErrorIs(t, c.SelectAnswer(ctx, qid, -1), ErrInvalidOption)
	assert.ErrorIs(t, c.SelectAnswer(ctx, "nope", 0), ErrUnknownQuestion)

	snap, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Answers[qid])
}

func TestToggleFlagAndNavigate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	qid := c.Paper()[0].ID.String()

	marked, err := c.ToggleFlag(ctx, qid)
	require.NoError(t, err)
	assert.True(t, marked)
	assert.Equal(t, []string{qid}, c.View().Flagged)

	marked, err = c.ToggleFlag(ctx, qid)
	require.NoError(t, err)
	assert.False(t, marked)
	assert.Empty(t, c.View().Flagged)

	require.NoError(t, c.Navigate(ctx, 2))
	assert.Equal(t, 2, c.View().CurrentIndex)
	assert.Equal(t, c.Paper()[2].ID, c.View().CurrentQuestion.ID)
	assert.ErrorIs(t, c.Navigate(ctx, 3), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Navigate(ctx, -1), ErrIndexOutOfRange)
	assert.Equal(t, 2, c.View().CurrentIndex)
}

func TestTimer_TicksDoNotPersist(t *testing.T) {
	f := newFixture(t, 3)
	c := f.start(t)
	saves := f.repo.saveCount()

	var views []View
	unsubscribe := c.Subscribe(func(v View) { views = append(views, v) })
	f.clock.Advance(10 * time.Second)
	unsubscribe()

	assert.Equal(t, saves, f.repo.saveCount())
	require.Len(t, views, 10)
	assert.Equal(t, 3599, views[0].TimeLeft)
	assert.Equal(t, 3590, views[9].TimeLeft)

	f.clock.Advance(5 * time.Second)
	assert.Len(t, views, 10, "unsubscribed callback must not run")
}

func TestTimer_MonotonicAndExpiry(t *testing.T) {
	f := newFixture(t, 3)
	f.exam.DurationMinutes = 1
	c := f.start(t)

	last := c.View().TimeLeft
	c.Subscribe(func(v View) {
		if v.Status != StatusActive {
			return
		}
		assert.LessOrEqual(t, v.TimeLeft, last)
		last = v.TimeLeft
	})
	f.clock.Advance(2 * time.Minute)

	assert.Equal(t, StatusSubmitted, c.Status())
	assert.Equal(t, 0, c.View().TimeLeft)
	assert.ErrorIs(t, c.SelectAnswer(context.Background(), c.Paper()[0].ID.String(), 0), ErrNotActive)
}

// Scenario A: answer everything and finish normally.
func TestScenarioFinishAllAnswered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	c := f.start(t)

	original := f.store.questions[f.exam.ID]
	for i, q := range original {
		ans := q.CorrectIndex
		if i >= 8 {
			ans = (q.CorrectIndex + 1) % model.OptionCount
		}
		require.NoError(t, c.SelectAnswer(ctx, q.ID.String(), ans))
	}

	summary, err := c.RequestFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, FinishSummary{Total: 10, Unanswered: 0, Flagged: 0}, summary)
	assert.Equal(t, PromptFinish, c.View().Prompt)
	assert.False(t, c.View().DetectorArmed)

	res, err := c.ConfirmFinish(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 80, res.Score)
	assert.Equal(t, model.FinishConfirmed, res.FinishReason)
	assert.Len(t, res.Answers, 10)

	assert.Equal(t, StatusSubmitted, c.Status())
	assert.True(t, f.repo.empty(), "persisted session must be cleared")
	stored := f.store.result(f.stud.ID, f.exam.ID)
	require.NotNil(t, stored)
	assert.Equal(t, 80, stored.Score)
	require.NotNil(t, c.View().Score)
	assert.Equal(t, 80, *c.View().Score)
	assert.Equal(t, EventSubmitted, f.events.types()[len(f.events.types())-1])
}

// Scenario B: idle until time runs out with 4 of 10 answered.
func TestScenarioTimeoutAutoSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.exam.DurationMinutes = 2
	c := f.start(t)

	for _, q := range f.store.questions[f.exam.ID][:4] {
		require.NoError(t, c.SelectAnswer(ctx, q.ID.String(), q.CorrectIndex))
	}

	f.clock.Advance(119 * time.Second)
	assert.Equal(t, StatusActive, c.Status())
	assert.Equal(t, 1, c.View().TimeLeft)

	f.clock.Advance(time.Second)
	require.Equal(t, StatusSubmitted, c.Status())

	res := c.Result()
	require.NotNil(t, res)
	assert.Equal(t, 40, res.Score)
	assert.Equal(t, model.FinishTimeout, res.FinishReason)
	assert.True(t, f.repo.empty())
	assert.Equal(t, 1, f.store.creates)

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.store.creates, "expiry must submit exactly once")
}

// Scenario C: three tab switches disqualify the student on the third acknowledgment.
func TestScenarioThreeTabSwitches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	c := f.start(t)

	for i := 1; i <= 3; i++ {
		tabSwitch(ctx, c)
		f.clock.Advance(time.Second)
		tabReturn(ctx, c)

		v := c.View()
		require.Equal(t, PromptViolation, v.Prompt)
		require.Equal(t, i, v.ViolationCount, "one tab switch counts once")
		assert.Equal(t, ViolationTabHidden, v.LastViolation)

		res, err := c.AcknowledgeViolation(ctx)
		require.NoError(t, err)
		if i < 3 {
			assert.Nil(t, res)
			assert.Equal(t, StatusActive, c.Status())
			f.clock.Advance(time.Second)
			require.True(t, c.View().DetectorArmed)
			continue
		}
		require.NotNil(t, res)
		assert.Equal(t, model.FinishDisqualified, res.FinishReason)
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, 3, res.ViolationCount)
	}

	assert.Equal(t, StatusSubmitted, c.Status())
	assert.True(t, f.repo.empty())
	assert.Equal(t, 3, c.View().ViolationCount)
}

func TestViolation_CountsOnlyWhenArmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)

	c.Signal(ctx, Signal{Kind: SignalKeyUp, Key: "PrintScreen"})
	require.Equal(t, 1, c.View().ViolationCount)
	assert.Equal(t, ViolationScreenshot, c.View().LastViolation)

	// Prompt open: nothing else counts.
	c.Signal(ctx, Signal{Kind: SignalTouchStart, Touches: 3})
	tabSwitch(ctx, c)
	f.clock.Advance(time.Second)
	tabReturn(ctx, c)
	assert.Equal(t, 1, c.View().ViolationCount)

	_, err := c.AcknowledgeViolation(ctx)
	require.NoError(t, err)

	// Inside the resume delay the detector is still disarmed.
	f.clock.Advance(200 * time.Millisecond)
	assert.False(t, c.View().DetectorArmed)
	c.Signal(ctx, Signal{Kind: SignalTouchStart, Touches: 4})
	assert.Equal(t, 1, c.View().ViolationCount)

	f.clock.Advance(400 * time.Millisecond)
	assert.True(t, c.View().DetectorArmed)
	c.Signal(ctx, Signal{Kind: SignalTouchStart, Touches: 4})
	assert.Equal(t, 2, c.View().ViolationCount)
	assert.Equal(t, ViolationMultiTouch, c.View().LastViolation)
}

func TestViolation_BlurGrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)

	c.Signal(ctx, Signal{Kind: SignalBlur})
	f.clock.Advance(100 * time.Millisecond)
	c.Signal(ctx, Signal{Kind: SignalFocus})
	f.clock.Advance(time.Second)
	assert.Equal(t, 0, c.View().ViolationCount, "a short blur is not a violation")

	c.Signal(ctx, Signal{Kind: SignalBlur})
	f.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, c.View().ViolationCount)
	assert.Equal(t, ViolationFocusLost, c.View().LastViolation)
}

func TestViolation_BackNavigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)

	assert.Equal(t, ReactionRepushHistory, c.Signal(ctx, Signal{Kind: SignalBackNavigation}))
	assert.Equal(t, ReactionNone, c.Signal(ctx, Signal{Kind: SignalKeyUp, Key: "a"}))
	assert.Equal(t, 0, c.View().ViolationCount)
}

func TestViolation_PromptBlocksActions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	qid := c.Paper()[0].ID.String()

	c.Signal(ctx, Signal{Kind: SignalKeyUp, Key: "s", Meta: true, Shift: true})
	assert.ErrorIs(t, c.SelectAnswer(ctx, qid, 0), ErrPromptPending)
	assert.ErrorIs(t, c.Navigate(ctx, 1), ErrPromptPending)
	_, err := c.ToggleFlag(ctx, qid)
	assert.ErrorIs(t, err, ErrPromptPending)
	_, err = c.RequestFinish(ctx)
	assert.ErrorIs(t, err, ErrPromptPending)

	_, err = c.AcknowledgeViolation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SelectAnswer(ctx, qid, 0))
	_, err = c.AcknowledgeViolation(ctx)
	assert.ErrorIs(t, err, ErrNoPendingViolation)
}

func TestFinish_CancelRearmsAfterDelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	c := f.start(t)
	qid := c.Paper()[0].ID.String()
	require.NoError(t, c.SelectAnswer(ctx, qid, 0))
	_, err := c.ToggleFlag(ctx, qid)
	require.NoError(t, err)

	summary, err := c.RequestFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, FinishSummary{Total: 4, Unanswered: 3, Flagged: 1}, summary)

	again, err := c.RequestFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary, again)

	// Interacting with the prompt does not count.
	tabSwitch(ctx, c)
	f.clock.Advance(time.Second)
	tabReturn(ctx, c)
	assert.Equal(t, 0, c.View().ViolationCount)

	require.NoError(t, c.CancelFinish(ctx))
	assert.Equal(t, PromptNone, c.View().Prompt)
	assert.False(t, c.View().DetectorArmed)
	assert.ErrorIs(t, c.CancelFinish(ctx), ErrFinishNotRequested)

	f.clock.Advance(500 * time.Millisecond)
	assert.True(t, c.View().DetectorArmed)

	_, err = c.ConfirmFinish(ctx)
	assert.ErrorIs(t, err, ErrFinishNotRequested)
}

func TestSubmit_FailureKeepsResultForRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	c := f.start(t)
	q := f.store.questions[f.exam.ID][0]
	require.NoError(t, c.SelectAnswer(ctx, q.ID.String(), q.CorrectIndex))

	f.store.setCreateErr(errors.New("connection refused"))
	_, err := c.RequestFinish(ctx)
	require.NoError(t, err)
	res, err := c.ConfirmFinish(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Nil(t, res)

	v := c.View()
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, PromptSubmitError, v.Prompt)
	assert.NotEmpty(t, v.SubmitError)
	assert.Equal(t, map[string]int{q.ID.String(): q.CorrectIndex}, v.Answers)

	snap, err := f.repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap, "answers must survive a failed submission")

	firstAttempt := f.clock.Now()
	f.clock.Advance(30 * time.Second)
	f.store.setCreateErr(nil)

	res, err = c.ConfirmFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, firstAttempt, res.SubmittedAt)
	assert.Equal(t, model.FinishConfirmed, res.FinishReason)
	assert.Equal(t, StatusSubmitted, c.Status())
	assert.Equal(t, 2, f.store.creates)
}

func TestSubmit_AlreadyTakenClosesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	c := f.start(t)

	// Another tab submitted first.
	_, err := f.store.CreateResult(ctx, &model.ExamResult{ExamID: f.exam.ID, StudentID: f.stud.ID})
	require.NoError(t, err)

	_, err = c.RequestFinish(ctx)
	require.NoError(t, err)
	_, err = c.ConfirmFinish(ctx)
	assert.ErrorIs(t, err, ErrAlreadyTaken)
	assert.Equal(t, StatusSubmitted, c.Status())
	assert.Nil(t, c.Result())
	assert.True(t, f.repo.empty())
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.exam.RandomizeQuestions = true
	c := f.start(t)
	paper := c.Paper()

	require.NoError(t, c.SelectAnswer(ctx, paper[2].ID.String(), 3))
	_, err := c.ToggleFlag(ctx, paper[4].ID.String())
	require.NoError(t, err)
	require.NoError(t, c.Navigate(ctx, 4))
	c.Signal(ctx, Signal{Kind: SignalTouchStart, Touches: 3})
	_, err = c.AcknowledgeViolation(ctx)
	require.NoError(t, err)
	endsAt := c.EndTime()
	c.Close()

	f.clock.Advance(10 * time.Minute)
	f.opts.Shuffle = func(int, func(i, j int)) { t.Fatal("restore must not reshuffle") }
	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	v := r.View()
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, paper, r.Paper())
	assert.Equal(t, map[string]int{paper[2].ID.String(): 3}, v.Answers)
	assert.Equal(t, []string{paper[4].ID.String()}, v.Flagged)
	assert.Equal(t, 4, v.CurrentIndex)
	assert.Equal(t, 1, v.ViolationCount)
	assert.Equal(t, endsAt, v.EndsAt)
	assert.Equal(t, 50*60, v.TimeLeft)
	assert.True(t, v.DetectorArmed)

	// The owner announces the session, not Restore itself.
	assert.NotContains(t, f.events.types(), EventResumed)
	r.AnnounceResumed(ctx)
	assert.Contains(t, f.events.types(), EventResumed)
}

func TestRestore_ViolationPromptSurvives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	c.Signal(ctx, Signal{Kind: SignalKeyUp, Key: "PrintScreen"})
	c.Close()

	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Equal(t, PromptViolation, r.View().Prompt)
	assert.False(t, r.View().DetectorArmed)

	_, err = r.AcknowledgeViolation(ctx)
	require.NoError(t, err)
	assert.Equal(t, PromptNone, r.View().Prompt)
}

func TestRestore_FailedDisqualificationStaysTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	for i := 1; i <= 3; i++ {
		tabSwitch(ctx, c)
		f.clock.Advance(time.Second)
		tabReturn(ctx, c)
		if i < 3 {
			_, err := c.AcknowledgeViolation(ctx)
			require.NoError(t, err)
			f.clock.Advance(time.Second)
		}
	}

	f.store.setCreateErr(errors.New("connection refused"))
	_, err := c.AcknowledgeViolation(ctx)
	require.ErrorIs(t, err, ErrNetwork)
	c.Close()

	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	v := r.View()
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, PromptSubmitError, v.Prompt)
	assert.Equal(t, 3, v.ViolationCount)
	assert.False(t, v.DetectorArmed)
	assert.NotEmpty(t, v.SubmitError)
	assert.ErrorIs(t, r.SelectAnswer(ctx, r.Paper()[0].ID.String(), 0), ErrPromptPending)

	f.store.setCreateErr(nil)
	res, err := r.ConfirmFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.FinishDisqualified, res.FinishReason)
	assert.Equal(t, 3, res.ViolationCount)
	assert.Equal(t, StatusSubmitted, r.Status())
}

func TestRestore_ThresholdReachedWithoutPromptForcesViolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	c.Close()

	// A slot at the threshold whose prompt was lost.
	snap, err := f.repo.Load(ctx)
	require.NoError(t, err)
	snap.ViolationCount = 3
	snap.Prompt = PromptNone
	require.NoError(t, f.repo.Save(ctx, snap))

	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Equal(t, PromptViolation, r.View().Prompt)
	assert.False(t, r.View().DetectorArmed)

	res, err := r.AcknowledgeViolation(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.FinishDisqualified, res.FinishReason)
}

func TestRestore_SubmitErrorKeepsPendingResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	c := f.start(t)
	q := f.store.questions[f.exam.ID][0]
	require.NoError(t, c.SelectAnswer(ctx, q.ID.String(), q.CorrectIndex))
	_, err := c.RequestFinish(ctx)
	require.NoError(t, err)

	f.store.setCreateErr(errors.New("timeout"))
	firstAttempt := f.clock.Now()
	_, err = c.ConfirmFinish(ctx)
	require.Error(t, err)
	c.Close()

	f.clock.Advance(time.Minute)
	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Equal(t, PromptSubmitError, r.View().Prompt)

	// The countdown stays stopped while the retry prompt is shown, so the
	// end time passing does not trigger a timeout submission.
	creates := f.store.creates
	f.clock.Advance(time.Hour)
	assert.Equal(t, creates, f.store.creates)
	assert.Equal(t, PromptSubmitError, r.View().Prompt)

	f.store.setCreateErr(nil)
	res, err := r.ConfirmFinish(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.FinishConfirmed, res.FinishReason)
	assert.Equal(t, 50, res.Score)
	assert.True(t, firstAttempt.Equal(res.SubmittedAt))
}

func TestRestore_FinishPromptResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	_, err := c.RequestFinish(ctx)
	require.NoError(t, err)
	c.Close()

	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Equal(t, PromptNone, r.View().Prompt)
	assert.True(t, r.View().DetectorArmed)
}

func TestRestore_ExpiredIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	require.NoError(t, c.SelectAnswer(ctx, c.Paper()[0].ID.String(), 1))
	c.Close()

	f.clock.Advance(61 * time.Minute)
	_, err := Restore(ctx, f.opts, f.deps())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, f.repo.empty())
	assert.Equal(t, 0, f.store.creates, "an expired session is never submitted")
}

func TestRestore_AcceptsVersionOneSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)
	require.NoError(t, c.SelectAnswer(ctx, c.Paper()[0].ID.String(), 1))
	c.Close()

	snap, err := f.repo.Load(ctx)
	require.NoError(t, err)
	snap.Version = 1
	require.NoError(t, f.repo.Save(ctx, snap))

	r, err := Restore(ctx, f.opts, f.deps())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	assert.Len(t, r.View().Answers, 1)

	snap.Version = SnapshotVersion + 1
	require.NoError(t, f.repo.Save(ctx, snap))
	_, err = Restore(ctx, f.opts, f.deps())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.True(t, f.repo.empty())
}

func TestRestore_Empty(t *testing.T) {
	f := newFixture(t, 3)
	_, err := Restore(context.Background(), f.opts, f.deps())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestPersistFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	c := f.start(t)

	f.repo.mu.Lock()
	f.repo.err = errors.New("redis down")
	f.repo.mu.Unlock()

	require.NoError(t, c.SelectAnswer(ctx, c.Paper()[0].ID.String(), 2))
	assert.Len(t, c.View().Answers, 1)
}
