package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"focusflow/backend/internal/engine"
)

type timerDefaultsFile struct {
	WorkMinutes       int   `yaml:"work_minutes"`
	ShortBreakMinutes int   `yaml:"short_break_minutes"`
	LongBreakMinutes  int   `yaml:"long_break_minutes"`
	LongBreakInterval int   `yaml:"long_break_interval"`
	AutoStartBreaks   *bool `yaml:"auto_start_breaks"`
	AutoStartWork     *bool `yaml:"auto_start_work"`
	AllowSkipBreaks   *bool `yaml:"allow_skip_breaks"`
	StrictMode        *bool `yaml:"strict_mode"`
	DailyGoal         int   `yaml:"daily_goal"`
}

// TimerDefaults are the server-wide defaults used to seed preferences for new
// users.
type TimerDefaults struct {
	Config    engine.PhaseConfig
	DailyGoal int
}

// LoadTimerDefaults reads the optional YAML defaults file. A missing file
// yields the built-in defaults; out-of-bounds values are ignored field by
// field so a bad file cannot take the server down.
func LoadTimerDefaults(path string) (TimerDefaults, error) {
	defaults := TimerDefaults{
		Config:    engine.DefaultPhaseConfig(),
		DailyGoal: 8,
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("read timer defaults: %w", err)
	}

	var fileData timerDefaultsFile
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return defaults, fmt.Errorf("parse timer defaults yaml: %w", err)
	}

	applyTimerDefaults(&defaults, fileData)
	return defaults, nil
}

func applyTimerDefaults(defaults *TimerDefaults, fileData timerDefaultsFile) {
	if fileData.WorkMinutes >= engine.MinWorkMinutes && fileData.WorkMinutes <= engine.MaxWorkMinutes {
		defaults.Config.WorkMinutes = fileData.WorkMinutes
	}
	if fileData.ShortBreakMinutes >= engine.MinShortBreakMinutes && fileData.ShortBreakMinutes <= engine.MaxShortBreakMinutes {
		defaults.Config.ShortBreakMinutes = fileData.ShortBreakMinutes
	}
	if fileData.LongBreakMinutes >= engine.MinLongBreakMinutes && fileData.LongBreakMinutes <= engine.MaxLongBreakMinutes {
		defaults.Config.LongBreakMinutes = fileData.LongBreakMinutes
	}
	if fileData.LongBreakInterval >= engine.MinLongBreakInterval && fileData.LongBreakInterval <= engine.MaxLongBreakInterval {
		defaults.Config.LongBreakInterval = fileData.LongBreakInterval
	}
	if fileData.AutoStartBreaks != nil {
		defaults.Config.AutoStartBreaks = *fileData.AutoStartBreaks
	}
	if fileData.AutoStartWork != nil {
		defaults.Config.AutoStartWork = *fileData.AutoStartWork
	}
	if fileData.AllowSkipBreaks != nil {
		defaults.Config.AllowSkipBreaks = *fileData.AllowSkipBreaks
	}
	if fileData.StrictMode != nil {
		defaults.Config.StrictMode = *fileData.StrictMode
	}
	if fileData.DailyGoal > 0 {
		defaults.DailyGoal = fileData.DailyGoal
	}
}
