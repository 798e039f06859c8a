package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type stateEnvelope struct {
	State struct {
		Phase   string `json:"phase"`
		Cycle   int    `json:"cycle"`
		Active  bool   `json:"active"`
		Paused  bool   `json:"paused"`
		Version int    `json:"version"`
	} `json:"state"`
}

type historyEnvelope struct {
	Sessions []struct {
		Phase     string `json:"phase"`
		Completed bool   `json:"completed"`
	} `json:"sessions"`
}

type statsEnvelope struct {
	Stats struct {
		Completed int `json:"completed"`
		Goal      int `json:"goal"`
	} `json:"stats"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State struct {
				Version int `json:"version"`
			} `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

func TestTimerLifecycleAndConflict(t *testing.T) {
	engine := setupTestEngine(t)

	user1 := registerUser(t, engine, "user1@example.com", "123456")
	user2 := registerUser(t, engine, "user2@example.com", "123456")

	state1 := getState(t, engine, user1.Token)
	if state1.State.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", state1.State.Version)
	}
	if state1.State.Phase != "work" {
		t.Fatalf("expected initial phase work, got %s", state1.State.Phase)
	}

	// Start the timer with the current version.
	status, raw := requestJSON(t, engine, http.MethodPost, "/api/timer/start", user1.Token, map[string]int{
		"baseVersion": state1.State.Version,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", status, string(raw))
	}

	// Pause with the stale version from another device should conflict.
	status, rawConflict := requestJSON(t, engine, http.MethodPost, "/api/timer/pause", user1.Token, map[string]int{
		"baseVersion": state1.State.Version,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %d", status)
	}

	var conflictResp apiErrorEnvelope
	if err := json.Unmarshal(rawConflict, &conflictResp); err != nil {
		t.Fatalf("unmarshal conflict response: %v", err)
	}
	if conflictResp.Error.Code != "state_conflict" {
		t.Fatalf("expected state_conflict, got %s", conflictResp.Error.Code)
	}
	latestVersion := conflictResp.Error.Details.State.Version

	// Complete the work phase early; it should persist a completed record.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/complete", user1.Token, map[string]int{
		"baseVersion": latestVersion,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on complete, got %d: %s", status, string(raw))
	}

	var afterComplete stateEnvelope
	if err := json.Unmarshal(raw, &afterComplete); err != nil {
		t.Fatalf("unmarshal complete response: %v", err)
	}
	if afterComplete.State.Phase != "short_break" {
		t.Fatalf("expected short_break after work completion, got %s", afterComplete.State.Phase)
	}
	if afterComplete.State.Cycle != 2 {
		t.Fatalf("expected cycle 2 after work completion, got %d", afterComplete.State.Cycle)
	}

	status, user1HistoryRaw := requestJSON(t, engine, http.MethodGet, "/api/timer/history?limit=10", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user1 history, got %d", status)
	}
	var user1History historyEnvelope
	if err := json.Unmarshal(user1HistoryRaw, &user1History); err != nil {
		t.Fatalf("unmarshal user1 history: %v", err)
	}
	if len(user1History.Sessions) != 1 {
		t.Fatalf("expected one session for user1, got %d", len(user1History.Sessions))
	}
	if !user1History.Sessions[0].Completed || user1History.Sessions[0].Phase != "work" {
		t.Fatalf("unexpected session record: %+v", user1History.Sessions[0])
	}

	// User isolation: user2 should still have no history.
	status, user2HistoryRaw := requestJSON(t, engine, http.MethodGet, "/api/timer/history?limit=10", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user2 history, got %d", status)
	}
	var user2History historyEnvelope
	if err := json.Unmarshal(user2HistoryRaw, &user2History); err != nil {
		t.Fatalf("unmarshal user2 history: %v", err)
	}
	if len(user2History.Sessions) != 0 {
		t.Fatalf("expected no sessions for user2, got %d", len(user2History.Sessions))
	}

	status, statsRaw := requestJSON(t, engine, http.MethodGet, "/api/timer/stats/today", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for stats, got %d", status)
	}
	var stats statsEnvelope
	if err := json.Unmarshal(statsRaw, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Stats.Completed != 1 {
		t.Fatalf("expected one completed work phase today, got %d", stats.Stats.Completed)
	}
}

func TestSkipBreakRejectedWhenDisabled(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "strict@example.com", "123456")

	state := getState(t, engine, user.Token)
	version := state.State.Version

	// Disable break skipping.
	status, raw := requestJSON(t, engine, http.MethodPut, "/api/timer/settings", user.Token, map[string]interface{}{
		"baseVersion":     version,
		"allowSkipBreaks": false,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d: %s", status, string(raw))
	}
	version = decodeState(t, raw).State.Version

	// Work through to a break.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{"baseVersion": version})
	if status != http.StatusOK {
		t.Fatalf("start failed: %d", status)
	}
	version = decodeState(t, raw).State.Version

	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/complete", user.Token, map[string]int{"baseVersion": version})
	if status != http.StatusOK {
		t.Fatalf("complete failed: %d", status)
	}
	version = decodeState(t, raw).State.Version

	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{"baseVersion": version})
	if status != http.StatusOK {
		t.Fatalf("break start failed: %d", status)
	}
	version = decodeState(t, raw).State.Version

	// Skipping the break must be rejected with a reason code, not a silent no-op.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/skip", user.Token, map[string]int{"baseVersion": version})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for disabled break skip, got %d: %s", status, string(raw))
	}
	var rejection apiErrorEnvelope
	if err := json.Unmarshal(raw, &rejection); err != nil {
		t.Fatalf("unmarshal rejection: %v", err)
	}
	if rejection.Error.Code != "skip_breaks_disabled" {
		t.Fatalf("expected skip_breaks_disabled, got %s", rejection.Error.Code)
	}

	// The break is still in place.
	after := getState(t, engine, user.Token)
	if after.State.Phase != "short_break" {
		t.Fatalf("expected short_break to survive the rejected skip, got %s", after.State.Phase)
	}
}

func TestSettingsBoundsRejected(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "bounds@example.com", "123456")
	state := getState(t, engine, user.Token)

	status, raw := requestJSON(t, engine, http.MethodPut, "/api/timer/settings", user.Token, map[string]interface{}{
		"baseVersion": state.State.Version,
		"workMinutes": 500,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-bounds duration, got %d: %s", status, string(raw))
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	defaults, err := config.LoadTimerDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load timer defaults: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	prefsRepo := repository.NewPreferencesRepository(database)

	achievementService := service.NewAchievementService(sessionRepo)
	authService := service.NewAuthService(userRepo, prefsRepo, defaults, "test-secret", 24*time.Hour)
	timerService := service.NewTimerService(sessionRepo, prefsRepo, achievementService, defaults)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)

	return router.New(authService, authHandler, timerHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	return decodeState(t, body)
}

func decodeState(t *testing.T, body []byte) stateEnvelope {
	t.Helper()
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
