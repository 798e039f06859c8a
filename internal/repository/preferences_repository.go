package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/engine"
	"focusflow/backend/internal/model"
)

type PreferencesRepository struct {
	db *sql.DB
}

func NewPreferencesRepository(db *sql.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Create stores initial preferences for a new user.
func (r *PreferencesRepository) Create(ctx context.Context, prefs *model.TimerPreferences) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_preferences (
			user_id, work_minutes, short_break_minutes, long_break_minutes,
			long_break_interval, auto_start_breaks, auto_start_work,
			allow_skip_breaks, strict_mode, daily_goal, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prefs.UserID,
		prefs.Config.WorkMinutes,
		prefs.Config.ShortBreakMinutes,
		prefs.Config.LongBreakMinutes,
		prefs.Config.LongBreakInterval,
		prefs.Config.AutoStartBreaks,
		prefs.Config.AutoStartWork,
		prefs.Config.AllowSkipBreaks,
		prefs.Config.StrictMode,
		prefs.DailyGoal,
		prefs.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create preferences: %w", err)
	}
	return nil
}

func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*model.TimerPreferences, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, work_minutes, short_break_minutes, long_break_minutes,
		        long_break_interval, auto_start_breaks, auto_start_work,
		        allow_skip_breaks, strict_mode, daily_goal, updated_at
		 FROM timer_preferences WHERE user_id = ?`,
		userID,
	)

	prefs := model.TimerPreferences{Config: engine.PhaseConfig{}}
	var updatedAt string
	err := row.Scan(
		&prefs.UserID,
		&prefs.Config.WorkMinutes,
		&prefs.Config.ShortBreakMinutes,
		&prefs.Config.LongBreakMinutes,
		&prefs.Config.LongBreakInterval,
		&prefs.Config.AutoStartBreaks,
		&prefs.Config.AutoStartWork,
		&prefs.Config.AllowSkipBreaks,
		&prefs.Config.StrictMode,
		&prefs.DailyGoal,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	parsedUpdatedAt, parseErr := parseTimestamp(updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parse preferences updated_at: %w", parseErr)
	}
	prefs.UpdatedAt = parsedUpdatedAt

	return &prefs, nil
}

// Save writes the preferences, inserting the row if the user does not have one
// yet. A user whose engine was built from server defaults has no row until the
// first settings change.
func (r *PreferencesRepository) Save(ctx context.Context, prefs *model.TimerPreferences) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_preferences (
			user_id, work_minutes, short_break_minutes, long_break_minutes,
			long_break_interval, auto_start_breaks, auto_start_work,
			allow_skip_breaks, strict_mode, daily_goal, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			work_minutes = excluded.work_minutes,
			short_break_minutes = excluded.short_break_minutes,
			long_break_minutes = excluded.long_break_minutes,
			long_break_interval = excluded.long_break_interval,
			auto_start_breaks = excluded.auto_start_breaks,
			auto_start_work = excluded.auto_start_work,
			allow_skip_breaks = excluded.allow_skip_breaks,
			strict_mode = excluded.strict_mode,
			daily_goal = excluded.daily_goal,
			updated_at = excluded.updated_at`,
		prefs.UserID,
		prefs.Config.WorkMinutes,
		prefs.Config.ShortBreakMinutes,
		prefs.Config.LongBreakMinutes,
		prefs.Config.LongBreakInterval,
		prefs.Config.AutoStartBreaks,
		prefs.Config.AutoStartWork,
		prefs.Config.AllowSkipBreaks,
		prefs.Config.StrictMode,
		prefs.DailyGoal,
		prefs.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
