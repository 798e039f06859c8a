package engine

import (
	"sync"
	"time"
)

// Engine is the focus-cycle state machine. It tracks the current phase, the
// cycle counter and elapsed time, advances through the work/break sequence and
// notifies listeners of transitions. One Engine instance drives one timer;
// callers sharing an instance across surfaces must serialize transitions.
type Engine struct {
	mu        sync.Mutex
	clock     Clock
	config    PhaseConfig
	listeners fanout

	phase           Phase
	cycle           int
	workCompletions int
	active          bool
	paused          bool

	// startedAt is non-zero iff the phase is running (active and not paused).
	// elapsed carries the frozen value while paused and the last known
	// non-negative value as a floor against backward clock jumps.
	startedAt     time.Time
	elapsed       time.Duration
	phaseDuration time.Duration

	progress *DailyProgress
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock substitutes the wall-clock source, typically for tests.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithListener registers a listener; may be given multiple times.
func WithListener(listener Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, listener)
	}
}

// WithDailyGoal sets the daily work-phase goal and an optional pre-existing
// completed count for today, as supplied by the daily-goal collaborator.
func WithDailyGoal(goal, completed int) Option {
	return func(e *Engine) {
		e.progress = NewDailyProgress(goal, completed)
	}
}

// New creates an idle engine positioned at the first Work phase.
func New(config PhaseConfig, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		clock:  SystemClock,
		config: config,
		phase:  PhaseWork,
		cycle:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.progress == nil {
		e.progress = NewDailyProgress(0, 0)
	}
	e.progress.anchor(e.clock.Now())
	return e, nil
}

// Start begins the current phase from zero elapsed time.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return ErrAlreadyActive
	}
	now := e.clock.Now()
	var events []func()
	e.startLocked(now, &events)
	e.mu.Unlock()

	e.fire(events)
	return nil
}

// Pause freezes elapsed time for the running phase.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if !e.active || e.paused {
		e.mu.Unlock()
		return ErrNotRunning
	}
	now := e.clock.Now()
	e.elapsed = e.computeElapsedLocked(now)
	e.paused = true
	e.startedAt = time.Time{}
	event := PhaseEvent{Phase: e.phase, Cycle: e.cycle, ElapsedSeconds: seconds(e.elapsed), At: now}
	e.mu.Unlock()

	e.listeners.Paused(event)
	return nil
}

// Resume continues a paused phase. The start timestamp is back-dated by the
// frozen elapsed time so elapsed derivation keeps working by subtraction.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if !e.active || !e.paused {
		e.mu.Unlock()
		return ErrNotPaused
	}
	now := e.clock.Now()
	e.startedAt = now.Add(-e.elapsed)
	e.paused = false
	event := PhaseEvent{Phase: e.phase, Cycle: e.cycle, ElapsedSeconds: seconds(e.elapsed), At: now}
	e.mu.Unlock()

	e.listeners.Resumed(event)
	return nil
}

// CompleteEarly finalizes the current phase immediately, reporting the actual
// elapsed time rather than the configured duration.
func (e *Engine) CompleteEarly() error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	now := e.clock.Now()
	elapsed := e.computeElapsedLocked(now)
	var events []func()
	e.finalizeLocked(now, seconds(elapsed), true, false, &events)
	e.mu.Unlock()

	e.fire(events)
	return nil
}

// Skip advances past the current phase without completing it. Work phases
// cannot be skipped in strict mode; breaks only when the configuration allows.
func (e *Engine) Skip() error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	if e.phase == PhaseWork {
		if e.config.StrictMode {
			e.mu.Unlock()
			return ErrSkipWorkStrict
		}
	} else if !e.config.AllowSkipBreaks {
		e.mu.Unlock()
		return ErrSkipBreakDisabled
	}
	now := e.clock.Now()
	elapsed := e.computeElapsedLocked(now)
	var events []func()
	e.finalizeLocked(now, seconds(elapsed), false, true, &events)
	e.mu.Unlock()

	e.fire(events)
	return nil
}

// Reset returns the engine to its initial state. It always succeeds.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.phase = PhaseWork
	e.cycle = 1
	e.workCompletions = 0
	e.active = false
	e.paused = false
	e.startedAt = time.Time{}
	e.elapsed = 0
	e.phaseDuration = 0
	e.mu.Unlock()
}

// Tick recomputes elapsed time from the clock and auto-completes the phase once
// the configured duration is reached. It is the single elapsed-computation code
// path: the periodic scheduler and the visibility-resume handler both call it.
func (e *Engine) Tick() {
	e.mu.Lock()
	var events []func()
	if e.active && !e.paused {
		now := e.clock.Now()
		elapsed := e.computeElapsedLocked(now)
		duration := e.currentDurationLocked()
		if duration > 0 && elapsed >= duration {
			e.finalizeLocked(now, seconds(duration), true, false, &events)
		}
	}
	e.mu.Unlock()

	e.fire(events)
}

// UpdateConfig merges a partial configuration update. Bounds violations leave
// the previous configuration in effect. A running phase keeps the duration it
// started with; new durations bind at the next phase entry.
func (e *Engine) UpdateConfig(patch ConfigPatch) error {
	e.mu.Lock()
	merged := patch.Apply(e.config)
	if err := merged.Validate(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.config = merged
	e.mu.Unlock()
	return nil
}

// SetDailyGoal replaces the daily work-phase goal.
func (e *Engine) SetDailyGoal(goal int) {
	e.mu.Lock()
	e.progress.setGoal(goal)
	e.mu.Unlock()
}

// Config returns the active configuration.
func (e *Engine) Config() PhaseConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Snapshot is the observable engine state.
type Snapshot struct {
	Phase            Phase         `json:"phase"`
	NextPhase        Phase         `json:"nextPhase"`
	Cycle            int           `json:"cycle"`
	Active           bool          `json:"active"`
	Paused           bool          `json:"paused"`
	ElapsedSeconds   int           `json:"elapsedSeconds"`
	RemainingSeconds int           `json:"remainingSeconds"`
	ProgressPercent  float64       `json:"progressPercent"`
	WorkCompletions  int           `json:"workCompletions"`
	Daily            DailySnapshot `json:"daily"`
}

// Snapshot captures the current state, recomputing elapsed time from the
// clock. It never advances the phase; pair it with Tick for that.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	elapsed := e.computeElapsedLocked(now)
	duration := e.currentDurationLocked()

	remaining := duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	var percent float64
	if duration > 0 {
		percent = float64(elapsed) / float64(duration) * 100
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
	}

	return Snapshot{
		Phase:            e.phase,
		NextPhase:        e.nextPhaseLocked(),
		Cycle:            e.cycle,
		Active:           e.active,
		Paused:           e.paused,
		ElapsedSeconds:   seconds(elapsed),
		RemainingSeconds: seconds(remaining),
		ProgressPercent:  percent,
		WorkCompletions:  e.workCompletions,
		Daily:            e.progress.snapshot(now),
	}
}

func (e *Engine) startLocked(now time.Time, events *[]func()) {
	e.active = true
	e.paused = false
	e.startedAt = now
	e.elapsed = 0
	e.phaseDuration = e.config.Duration(e.phase)

	event := PhaseEvent{Phase: e.phase, Cycle: e.cycle, At: now}
	*events = append(*events, func() { e.listeners.PhaseStarted(event) })
}

// finalizeLocked runs the phase-advance shared by auto-completion, early
// completion and skip: emit the session record, move the phase pointer,
// auto-start the next phase when configured, then report the change.
func (e *Engine) finalizeLocked(now time.Time, reportedSeconds int, completed, skipped bool, events *[]func()) {
	record := SessionRecord{
		Phase:           e.phase,
		DurationSeconds: reportedSeconds,
		Cycle:           e.cycle,
		Completed:       completed,
	}

	from := e.phase
	var next Phase
	if e.phase == PhaseWork {
		e.workCompletions++
		if e.workCompletions%e.config.LongBreakInterval == 0 {
			next = PhaseLongBreak
		} else {
			next = PhaseShortBreak
		}
		e.cycle++
	} else {
		next = PhaseWork
	}

	e.phase = next
	e.startedAt = time.Time{}
	e.elapsed = 0
	e.phaseDuration = 0

	completion := CompletionEvent{Record: record, At: now}
	if skipped {
		*events = append(*events, func() { e.listeners.Skipped(completion) })
	} else {
		*events = append(*events, func() { e.listeners.Completed(completion) })
	}

	if completed && record.Phase == PhaseWork {
		if e.progress.record(now) {
			goal := GoalEvent{Completed: e.progress.completed, Goal: e.progress.goal, At: now}
			*events = append(*events, func() { e.listeners.GoalReached(goal) })
		}
	}

	autoStart := (next == PhaseWork && e.config.AutoStartWork) ||
		(next.IsBreak() && e.config.AutoStartBreaks)
	if autoStart && e.active {
		e.startLocked(now, events)
	} else {
		e.active = false
		e.paused = false
	}

	change := PhaseChangeEvent{From: from, To: next, Cycle: e.cycle, At: now}
	*events = append(*events, func() { e.listeners.PhaseChanged(change) })
}

// computeElapsedLocked derives elapsed time from the wall-clock delta. A
// negative delta (host clock jumped backward) clamps to the last known value.
func (e *Engine) computeElapsedLocked(now time.Time) time.Duration {
	if !e.active || e.paused || e.startedAt.IsZero() {
		return e.elapsed
	}
	d := now.Sub(e.startedAt)
	if d < 0 {
		return e.elapsed
	}
	e.elapsed = d
	return d
}

func (e *Engine) currentDurationLocked() time.Duration {
	if e.active && e.phaseDuration > 0 {
		return e.phaseDuration
	}
	return e.config.Duration(e.phase)
}

func (e *Engine) nextPhaseLocked() Phase {
	if e.phase != PhaseWork {
		return PhaseWork
	}
	if (e.workCompletions+1)%e.config.LongBreakInterval == 0 {
		return PhaseLongBreak
	}
	return PhaseShortBreak
}

// fire dispatches queued notifications outside the lock, in order, so a
// listener may call back into the engine.
func (e *Engine) fire(events []func()) {
	for _, fn := range events {
		fn()
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
