package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/engine"
	apperrors "focusflow/backend/internal/errors"
	"focusflow/backend/internal/model"
	"focusflow/backend/internal/repository"
)

// TimerService hosts one focus-cycle engine per user. Engine state lives for
// the process lifetime; preferences and completed sessions persist through the
// repositories. All transitions for a user are serialized behind the user
// timer's lock, so two devices can never race the state machine.
type TimerService struct {
	mu           sync.Mutex
	timers       map[string]*userTimer
	sessions     *repository.SessionRepository
	prefs        *repository.PreferencesRepository
	achievements *AchievementService
	defaults     config.TimerDefaults
}

type userTimer struct {
	mu      sync.Mutex
	engine  *engine.Engine
	monitor *engine.VisibilityMonitor
	version int
}

// StateView is the timer state returned to clients.
type StateView struct {
	engine.Snapshot
	Config     engine.PhaseConfig `json:"config"`
	Version    int                `json:"version"`
	ServerTime time.Time          `json:"serverTime"`
}

type UpdateSettingsInput struct {
	BaseVersion int
	Patch       engine.ConfigPatch
	DailyGoal   *int
}

// TodayStats summarizes today's progress for the dashboard.
type TodayStats struct {
	Completed     int     `json:"completed"`
	Goal          int     `json:"goal"`
	Percentage    float64 `json:"percentage"`
	FocusSeconds  int     `json:"focusSeconds"`
	CurrentStreak int     `json:"currentStreak"`
}

func NewTimerService(
	sessions *repository.SessionRepository,
	prefs *repository.PreferencesRepository,
	achievements *AchievementService,
	defaults config.TimerDefaults,
) *TimerService {
	return &TimerService{
		timers:       make(map[string]*userTimer),
		sessions:     sessions,
		prefs:        prefs,
		achievements: achievements,
		defaults:     defaults,
	}
}

// GetState resyncs the engine and returns the current view. Reads never bump
// the version.
func (s *TimerService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	timer, apiErr := s.timerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.engine.Tick()
	view := s.viewLocked(timer)
	return &view, nil
}

func (s *TimerService) Start(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error { return e.Start() })
}

func (s *TimerService) Pause(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error { return e.Pause() })
}

func (s *TimerService) Resume(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error { return e.Resume() })
}

func (s *TimerService) Complete(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error { return e.CompleteEarly() })
}

func (s *TimerService) Skip(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error { return e.Skip() })
}

func (s *TimerService) Reset(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(e *engine.Engine) error {
		e.Reset()
		return nil
	})
}

// Visibility records a foreground/background transition. On return to
// visibility the engine resyncs from wall-clock timestamps before the caller
// sees the state.
func (s *TimerService) Visibility(ctx context.Context, userID string, baseVersion int, hidden bool) (*StateView, int, *apperrors.APIError) {
	timer, apiErr := s.timerFor(ctx, userID)
	if apiErr != nil {
		return nil, 0, apiErr
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()

	if apiErr := s.ensureVersionLocked(timer, baseVersion); apiErr != nil {
		return nil, 0, apiErr
	}

	now := time.Now().UTC()
	hiddenSeconds := 0
	if hidden {
		timer.monitor.Hidden(now)
	} else {
		hiddenSeconds = timer.monitor.Visible(now)
	}
	timer.version++

	view := s.viewLocked(timer)
	return &view, hiddenSeconds, nil
}

// UpdateSettings persists the merged preferences, then applies them to the
// engine. A running phase keeps its bound duration; new durations take effect
// on the next phase entry.
func (s *TimerService) UpdateSettings(ctx context.Context, userID string, input UpdateSettingsInput) (*StateView, *apperrors.APIError) {
	timer, apiErr := s.timerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.engine.Tick()

	if apiErr := s.ensureVersionLocked(timer, input.BaseVersion); apiErr != nil {
		return nil, apiErr
	}

	merged := input.Patch.Apply(timer.engine.Config())
	if err := merged.Validate(); err != nil {
		return nil, apperrors.BadRequest("invalid_settings", err.Error())
	}

	goal := timer.engine.Snapshot().Daily.Goal
	if input.DailyGoal != nil {
		if *input.DailyGoal <= 0 {
			return nil, apperrors.BadRequest("invalid_daily_goal", "dailyGoal must be positive")
		}
		goal = *input.DailyGoal
	}

	prefs := model.TimerPreferences{
		UserID:    userID,
		Config:    merged,
		DailyGoal: goal,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.prefs.Save(ctx, &prefs); err != nil {
		return nil, apperrors.Internal("failed to save preferences")
	}

	if err := timer.engine.UpdateConfig(input.Patch); err != nil {
		return nil, apperrors.BadRequest("invalid_settings", err.Error())
	}
	timer.engine.SetDailyGoal(goal)
	timer.version++

	view := s.viewLocked(timer)
	return &view, nil
}

func (s *TimerService) GetHistory(ctx context.Context, userID string, limit int) ([]model.FocusSession, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return sessions, nil
}

func (s *TimerService) GetTodayStats(ctx context.Context, userID string) (*TodayStats, *apperrors.APIError) {
	timer, apiErr := s.timerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	timer.mu.Lock()
	timer.engine.Tick()
	daily := timer.engine.Snapshot().Daily
	timer.mu.Unlock()

	now := time.Now().UTC()
	focusSeconds, err := s.sessions.FocusSecondsOn(ctx, userID, now.Format("2006-01-02"))
	if err != nil {
		return nil, apperrors.Internal("failed to aggregate focus time")
	}

	streak, err := s.achievements.CurrentStreak(ctx, userID, now)
	if err != nil {
		return nil, apperrors.Internal("failed to compute streak")
	}

	return &TodayStats{
		Completed:     daily.Completed,
		Goal:          daily.Goal,
		Percentage:    daily.Percentage,
		FocusSeconds:  focusSeconds,
		CurrentStreak: streak,
	}, nil
}

// transition runs one engine operation under the user's lock, after a resync
// tick and a version check. Rejected transitions come back as 422 with the
// engine's reason code so the UI can explain the disabled control.
func (s *TimerService) transition(
	ctx context.Context,
	userID string,
	baseVersion int,
	op func(*engine.Engine) error,
) (*StateView, *apperrors.APIError) {
	timer, apiErr := s.timerFor(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.engine.Tick()

	if apiErr := s.ensureVersionLocked(timer, baseVersion); apiErr != nil {
		return nil, apiErr
	}

	if err := op(timer.engine); err != nil {
		if terr, ok := err.(*engine.TransitionError); ok {
			return nil, apperrors.UnprocessableEntity(terr.Code, terr.Message)
		}
		return nil, apperrors.Internal("timer operation failed")
	}
	timer.version++

	view := s.viewLocked(timer)
	return &view, nil
}

func (s *TimerService) timerFor(ctx context.Context, userID string) (*userTimer, *apperrors.APIError) {
	s.mu.Lock()
	if timer, ok := s.timers[userID]; ok {
		s.mu.Unlock()
		return timer, nil
	}
	s.mu.Unlock()

	// Build outside the registry lock; repository reads can be slow.
	timer, apiErr := s.buildTimer(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[userID]; ok {
		return existing, nil
	}
	s.timers[userID] = timer
	return timer, nil
}

func (s *TimerService) buildTimer(ctx context.Context, userID string) (*userTimer, *apperrors.APIError) {
	cfg := s.defaults.Config
	goal := s.defaults.DailyGoal
	prefs, err := s.prefs.Get(ctx, userID)
	if err == nil {
		cfg = prefs.Config
		goal = prefs.DailyGoal
	} else if err != repository.ErrNotFound {
		return nil, apperrors.Internal("failed to load preferences")
	}

	today := time.Now().UTC().Format("2006-01-02")
	completed, err := s.sessions.CountCompletedWork(ctx, userID, today)
	if err != nil {
		return nil, apperrors.Internal("failed to load daily progress")
	}

	eng, buildErr := engine.New(cfg,
		engine.WithDailyGoal(goal, completed),
		engine.WithListener(&sessionRecorder{
			userID:       userID,
			sessions:     s.sessions,
			achievements: s.achievements,
		}),
	)
	if buildErr != nil {
		return nil, apperrors.Internal("failed to initialize timer")
	}

	return &userTimer{
		engine:  eng,
		monitor: engine.NewVisibilityMonitor(eng),
		version: 1,
	}, nil
}

func (s *TimerService) ensureVersionLocked(timer *userTimer, baseVersion int) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == timer.version {
		return nil
	}
	view := s.viewLocked(timer)
	return apperrors.Conflict("state_conflict", "state changed on another device", map[string]interface{}{
		"state": view,
	})
}

func (s *TimerService) viewLocked(timer *userTimer) StateView {
	return StateView{
		Snapshot:   timer.engine.Snapshot(),
		Config:     timer.engine.Config(),
		Version:    timer.version,
		ServerTime: time.Now().UTC(),
	}
}

// sessionRecorder is the persistence/achievement collaborator bridge. Writes
// are fire and forget: a storage outage is logged and may lose a record, but
// the timer keeps functioning and the phase advance never rolls back.
type sessionRecorder struct {
	engine.NopListener
	userID       string
	sessions     *repository.SessionRepository
	achievements *AchievementService
}

func (r *sessionRecorder) record(event engine.CompletionEvent) {
	session := model.FocusSession{
		ID:              uuid.NewString(),
		UserID:          r.userID,
		Phase:           string(event.Record.Phase),
		DurationSeconds: event.Record.DurationSeconds,
		Cycle:           event.Record.Cycle,
		Completed:       event.Record.Completed,
		CreatedAt:       event.At,
	}
	ctx := context.Background()
	if err := r.sessions.Insert(ctx, &session); err != nil {
		log.Printf("record session for user %s: %v", r.userID, err)
		return
	}
	if event.Record.Completed && event.Record.Phase == engine.PhaseWork {
		if _, err := r.achievements.CurrentStreak(ctx, r.userID, event.At); err != nil {
			log.Printf("reevaluate achievements for user %s: %v", r.userID, err)
		}
	}
}

func (r *sessionRecorder) Completed(e engine.CompletionEvent) { r.record(e) }
func (r *sessionRecorder) Skipped(e engine.CompletionEvent) { r.record(e) }
