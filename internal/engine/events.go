package engine

import "time"

// SessionRecord describes a finished (or skipped) phase for persistence and
// analytics. The engine owns nothing about the record after emitting it.
type SessionRecord struct {
	Phase           Phase `json:"phase"`
	DurationSeconds int   `json:"durationSeconds"`
	Cycle           int   `json:"cycle"`
	Completed       bool  `json:"completed"`
}

// PhaseEvent accompanies start, pause and resume notifications.
type PhaseEvent struct {
	Phase          Phase
	Cycle          int
	ElapsedSeconds int
	At             time.Time
}

// CompletionEvent accompanies complete and skip notifications.
type CompletionEvent struct {
	Record SessionRecord
	At     time.Time
}

// PhaseChangeEvent reports a phase-pointer advance.
type PhaseChangeEvent struct {
	From  Phase
	To    Phase
	Cycle int
	At    time.Time
}

// GoalEvent reports the daily work goal being reached.
type GoalEvent struct {
	Completed int
	Goal      int
	At        time.Time
}

// Listener receives engine notifications. Methods are invoked synchronously in
// the order the state machine produces them; embed NopListener to implement a
// subset.
type Listener interface {
	PhaseStarted(PhaseEvent)
	Paused(PhaseEvent)
	Resumed(PhaseEvent)
	Completed(CompletionEvent)
	Skipped(CompletionEvent)
	PhaseChanged(PhaseChangeEvent)
	GoalReached(GoalEvent)
}

// NopListener implements Listener with no-ops.
type NopListener struct{}

func (NopListener) PhaseStarted(PhaseEvent) {}
func (NopListener) Paused(PhaseEvent) {}
func (NopListener) Resumed(PhaseEvent) {}
func (NopListener) Completed(CompletionEvent) {}
func (NopListener) Skipped(CompletionEvent) {}
func (NopListener) PhaseChanged(PhaseChangeEvent) {}
func (NopListener) GoalReached(GoalEvent) {}

// dispatch runs one listener callback, swallowing panics so a faulty listener
// cannot unwind state the engine has already committed.
func dispatch(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

type fanout []Listener

func (f fanout) PhaseStarted(e PhaseEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.PhaseStarted(e) })
	}
}

func (f fanout) Paused(e PhaseEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.Paused(e) })
	}
}

func (f fanout) Resumed(e PhaseEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.Resumed(e) })
	}
}

func (f fanout) Completed(e CompletionEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.Completed(e) })
	}
}

func (f fanout) Skipped(e CompletionEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.Skipped(e) })
	}
}

func (f fanout) PhaseChanged(e PhaseChangeEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.PhaseChanged(e) })
	}
}

func (f fanout) GoalReached(e GoalEvent) {
	for _, l := range f {
		l := l
		dispatch(func() { l.GoalReached(e) })
	}
}
