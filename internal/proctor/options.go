package proctor

import (
	"math/rand/v2"
	"time"
)

// DefaultViolationThreshold is the violation count that disqualifies a session.
const DefaultViolationThreshold = 3

// Options tunes timing and policy of a Controller.
type Options struct {
	ViolationThreshold int
	// FocusGrace is how long a blur may last before it counts.
	FocusGrace time.Duration
	// ResumeDelay is how long the detector stays disarmed after a prompt closes.
	ResumeDelay   time.Duration
	TickInterval  time.Duration
	SubmitTimeout time.Duration
	// Shuffle permutes question order once at start when the exam asks for it.
	Shuffle func(n int, swap func(i, j int))
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		ViolationThreshold: DefaultViolationThreshold,
		FocusGrace:         300 * time.Millisecond,
		ResumeDelay:        500 * time.Millisecond,
		TickInterval:       time.Second,
		SubmitTimeout:      15 * time.Second,
		Shuffle:            rand.Shuffle,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ViolationThreshold <= 0 {
		o.ViolationThreshold = d.ViolationThreshold
	}
	if o.FocusGrace <= 0 {
		o.FocusGrace = d.FocusGrace
	}
	if o.ResumeDelay < 0 {
		o.ResumeDelay = 0
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = d.SubmitTimeout
	}
	if o.Shuffle == nil {
		o.Shuffle = d.Shuffle
	}
	return o
}
