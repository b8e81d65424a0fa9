package store

import (
	"sync"
	"time"

	"ideaclient/application/ports"
)

// DefaultFeedbackDelay is how long a message stays visible after it is reported
const DefaultFeedbackDelay = 5 * time.Second

// FeedbackState is the user-facing outcome of the latest action.
// At most one of Message and Error is set.
type FeedbackState struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Empty reports whether nothing is being shown
func (f FeedbackState) Empty() bool {
	return f.Message == "" && f.Error == ""
}

// Feedback holds one scope's transient message. Every report restarts the
// clear timer; a timer only clears the report that scheduled it.
type Feedback struct {
	scope    string
	delay    time.Duration
	notifier ports.Notifier

	mu       sync.Mutex
	state    FeedbackState
	seq      uint64
	timer    *time.Timer
	onChange func()
}

// NewFeedback creates the feedback slot for scope
func NewFeedback(scope string, delay time.Duration, notifier ports.Notifier) *Feedback {
	if delay <= 0 {
		delay = DefaultFeedbackDelay
	}
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	return &Feedback{
		scope:    scope,
		delay:    delay,
		notifier: notifier,
	}
}

// Success shows message and clears any error
func (f *Feedback) Success(message string) {
	if message == "" {
		return
	}
	f.report(FeedbackState{Message: message}, ports.LevelSuccess, message)
}

// Failure shows message as an error and clears any success message
func (f *Feedback) Failure(message string) {
	if message == "" {
		return
	}
	f.report(FeedbackState{Error: message}, ports.LevelError, message)
}

// Clear removes whatever is shown and cancels the pending timer
func (f *Feedback) Clear() {
	f.mu.Lock()
	f.seq++
	f.stopTimerLocked()
	wasEmpty := f.state.Empty()
	f.state = FeedbackState{}
	onChange := f.onChange
	f.mu.Unlock()

	if !wasEmpty && onChange != nil {
		onChange()
	}
}

// State returns what is currently shown
func (f *Feedback) State() FeedbackState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OnChange registers fn to run after every visible change
func (f *Feedback) OnChange(fn func()) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *Feedback) report(state FeedbackState, level ports.Level, text string) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.stopTimerLocked()
	f.state = state
	f.timer = time.AfterFunc(f.delay, func() { f.expire(seq) })
	onChange := f.onChange
	f.mu.Unlock()

	f.notifier.Notify(ports.Notification{Scope: f.scope, Level: level, Text: text})
	if onChange != nil {
		onChange()
	}
}

func (f *Feedback) expire(seq uint64) {
	f.mu.Lock()
	if seq != f.seq {
		f.mu.Unlock()
		return
	}
	f.state = FeedbackState{}
	f.timer = nil
	onChange := f.onChange
	f.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

func (f *Feedback) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
