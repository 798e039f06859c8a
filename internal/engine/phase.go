package engine

import (
	"fmt"
	"time"
)

// Phase represents the activity the timer is currently measuring.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// IsBreak reports whether the phase is a short or long break.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

const (
	MinWorkMinutes       = 1
	MaxWorkMinutes       = 180
	MinShortBreakMinutes = 1
	MaxShortBreakMinutes = 60
	MinLongBreakMinutes  = 1
	MaxLongBreakMinutes  = 120
	MinLongBreakInterval = 2
	MaxLongBreakInterval = 10
)

// PhaseConfig holds the durations and behavior flags for a focus cycle.
type PhaseConfig struct {
	WorkMinutes       int  `json:"workMinutes" yaml:"work_minutes"`
	ShortBreakMinutes int  `json:"shortBreakMinutes" yaml:"short_break_minutes"`
	LongBreakMinutes  int  `json:"longBreakMinutes" yaml:"long_break_minutes"`
	LongBreakInterval int  `json:"longBreakInterval" yaml:"long_break_interval"`
	AutoStartBreaks   bool `json:"autoStartBreaks" yaml:"auto_start_breaks"`
	AutoStartWork     bool `json:"autoStartWork" yaml:"auto_start_work"`
	AllowSkipBreaks   bool `json:"allowSkipBreaks" yaml:"allow_skip_breaks"`
	StrictMode        bool `json:"strictMode" yaml:"strict_mode"`
}

// DefaultPhaseConfig returns the classic 25/5/15 pomodoro configuration.
func DefaultPhaseConfig() PhaseConfig {
	return PhaseConfig{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		LongBreakInterval: 4,
		AllowSkipBreaks:   true,
	}
}

// Validate checks all durations and the long-break interval against their bounds.
func (c PhaseConfig) Validate() error {
	if c.WorkMinutes < MinWorkMinutes || c.WorkMinutes > MaxWorkMinutes {
		return fmt.Errorf("workMinutes must be between %d and %d", MinWorkMinutes, MaxWorkMinutes)
	}
	if c.ShortBreakMinutes < MinShortBreakMinutes || c.ShortBreakMinutes > MaxShortBreakMinutes {
		return fmt.Errorf("shortBreakMinutes must be between %d and %d", MinShortBreakMinutes, MaxShortBreakMinutes)
	}
	if c.LongBreakMinutes < MinLongBreakMinutes || c.LongBreakMinutes > MaxLongBreakMinutes {
		return fmt.Errorf("longBreakMinutes must be between %d and %d", MinLongBreakMinutes, MaxLongBreakMinutes)
	}
	if c.LongBreakInterval < MinLongBreakInterval || c.LongBreakInterval > MaxLongBreakInterval {
		return fmt.Errorf("longBreakInterval must be between %d and %d", MinLongBreakInterval, MaxLongBreakInterval)
	}
	return nil
}

// Duration returns the configured length of the given phase.
func (c PhaseConfig) Duration(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak:
		return time.Duration(c.ShortBreakMinutes) * time.Minute
	case PhaseLongBreak:
		return time.Duration(c.LongBreakMinutes) * time.Minute
	default:
		return time.Duration(c.WorkMinutes) * time.Minute
	}
}

// ConfigPatch is a partial PhaseConfig update; nil fields keep their current value.
type ConfigPatch struct {
	WorkMinutes       *int  `json:"workMinutes"`
	ShortBreakMinutes *int  `json:"shortBreakMinutes"`
	LongBreakMinutes  *int  `json:"longBreakMinutes"`
	LongBreakInterval *int  `json:"longBreakInterval"`
	AutoStartBreaks   *bool `json:"autoStartBreaks"`
	AutoStartWork     *bool `json:"autoStartWork"`
	AllowSkipBreaks   *bool `json:"allowSkipBreaks"`
	StrictMode        *bool `json:"strictMode"`
}

// Apply merges the patch over base and returns the result.
func (p ConfigPatch) Apply(base PhaseConfig) PhaseConfig {
	if p.WorkMinutes != nil {
		base.WorkMinutes = *p.WorkMinutes
	}
	if p.ShortBreakMinutes != nil {
		base.ShortBreakMinutes = *p.ShortBreakMinutes
	}
	if p.LongBreakMinutes != nil {
		base.LongBreakMinutes = *p.LongBreakMinutes
	}
	if p.LongBreakInterval != nil {
		base.LongBreakInterval = *p.LongBreakInterval
	}
	if p.AutoStartBreaks != nil {
		base.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartWork != nil {
		base.AutoStartWork = *p.AutoStartWork
	}
	if p.AllowSkipBreaks != nil {
		base.AllowSkipBreaks = *p.AllowSkipBreaks
	}
	if p.StrictMode != nil {
		base.StrictMode = *p.StrictMode
	}
	return base
}
