package proctor

import "strings"

// SignalKind names a raw browser event forwarded by the exam page.
type SignalKind string

const (
	SignalVisibility     SignalKind = "visibility"
	SignalBlur           SignalKind = "blur"
	SignalFocus          SignalKind = "focus"
	SignalKeyUp          SignalKind = "keyup"
	SignalTouchStart     SignalKind = "touchstart"
	SignalBackNavigation SignalKind = "popstate"
)

// Signal is one integrity-relevant event reported by the client.
type Signal struct {
	Kind    SignalKind `json:"type" binding:"required,oneof=visibility blur focus keyup touchstart popstate"`
	Hidden  bool       `json:"hidden,omitempty"`
	Key     string     `json:"key,omitempty"`
	Ctrl    bool       `json:"ctrl,omitempty"`
	Meta    bool       `json:"meta,omitempty"`
	Shift   bool       `json:"shift,omitempty"`
	Touches int        `json:"touches,omitempty"`
}

// ViolationKind classifies a registered violation.
type ViolationKind string

const (
	ViolationNone       ViolationKind = ""
	ViolationTabHidden  ViolationKind = "tab_hidden"
	ViolationFocusLost  ViolationKind = "focus_lost"
	ViolationScreenshot ViolationKind = "screenshot"
	ViolationMultiTouch ViolationKind = "multi_touch"
)

// Reaction tells the client what to do after a signal.
type Reaction string

const (
	ReactionNone Reaction = "none"
	// ReactionRepushHistory asks the page to push its history entry back so
	// a back-navigation leaves the student on the exam.
	ReactionRepushHistory Reaction = "repush_history"
)

// IsScreenshotKey reports whether a key-release is a screenshot shortcut:
// PrintScreen, or Cmd/Ctrl+Shift with 3, 4, 5 or S.
func IsScreenshotKey(sig Signal) bool {
	if sig.Kind != SignalKeyUp {
		return false
	}
	if strings.EqualFold(sig.Key, "PrintScreen") {
		return true
	}
	if !(sig.Meta || sig.Ctrl) || !sig.Shift {
		return false
	}
	switch strings.ToLower(sig.Key) {
	case "3", "4", "5", "s":
		return true
	}
	return false
}

// IsMultiTouch reports a touch-start with more than two contact points.
func IsMultiTouch(sig Signal) bool {
	return sig.Kind == SignalTouchStart && sig.Touches > 2
}

// detector tracks page focus and visibility and classifies signals.
// It is owned by a Controller and only touched under the controller lock.
type detector struct {
	focused bool
	hidden  bool
	blurGen uint64
	blur    Timer
}

func newDetector() detector {
	return detector{focused: true}
}

// observe updates focus state for sig. It returns the violation sig
// constitutes immediately, and whether a focus-grace check must be scheduled.
func (d *detector) observe(sig Signal) (ViolationKind, bool) {
	switch sig.Kind {
	case SignalVisibility:
		d.hidden = sig.Hidden
		if sig.Hidden {
			return ViolationTabHidden, false
		}
	case SignalFocus:
		d.focused = true
		d.cancelBlur()
	case SignalBlur:
		d.focused = false
		d.cancelBlur()
		return ViolationNone, true
	case SignalKeyUp:
		if IsScreenshotKey(sig) {
			return ViolationScreenshot, false
		}
	case SignalTouchStart:
		if IsMultiTouch(sig) {
			return ViolationMultiTouch, false
		}
	}
	return ViolationNone, false
}

// focusLost is evaluated when the grace period of blur generation gen ends.
// A blur that overlaps a hidden page was already counted as tab_hidden.
func (d *detector) focusLost(gen uint64) bool {
	if gen != d.blurGen {
		return false
	}
	d.blur = nil
	return !d.focused && !d.hidden
}

func (d *detector) cancelBlur() {
	d.blurGen++
	if d.blur != nil {
		d.blur.Stop()
		d.blur = nil
	}
}
