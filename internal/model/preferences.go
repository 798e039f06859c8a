package model

import (
	"time"

	"focusflow/backend/internal/engine"
)

// TimerPreferences holds a user's persisted phase configuration and daily
// goal. The live cycle state is process-lifetime and intentionally not stored.
type TimerPreferences struct {
	UserID    string             `json:"userId"`
	Config    engine.PhaseConfig `json:"config"`
	DailyGoal int                `json:"dailyGoal"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
