package service

import (
	"context"
	"time"

	"focusflow/backend/internal/repository"
)

const streakScanLimit = 366

// AchievementService recomputes gamified achievements from persisted sessions.
// It is re-evaluated after each recorded completion; the timer never waits on
// the result.
type AchievementService struct {
	sessions *repository.SessionRepository
}

func NewAchievementService(sessions *repository.SessionRepository) *AchievementService {
	return &AchievementService{sessions: sessions}
}

// CurrentStreak returns the number of consecutive days, ending today or
// yesterday, with at least one completed work session.
func (s *AchievementService) CurrentStreak(ctx context.Context, userID string, now time.Time) (int, error) {
	days, err := s.sessions.CompletedWorkDays(ctx, userID, streakScanLimit)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := now.UTC().Truncate(24 * time.Hour)
	expected := today
	if days[0] != dayKey(today) {
		// A streak survives until a full day is missed.
		expected = today.AddDate(0, 0, -1)
		if days[0] != dayKey(expected) {
			return 0, nil
		}
	}

	streak := 0
	for _, day := range days {
		if day != dayKey(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
