package engine

import "time"

const dayLayout = "2006-01-02"

// DailyProgress counts completed work phases against a daily goal. The count
// lives for the process lifetime unless rehydrated through the constructor;
// durable history belongs to the persistence collaborator.
type DailyProgress struct {
	goal      int
	completed int
	day       string
}

// NewDailyProgress creates a tracker with an optional pre-existing completed
// count for today.
func NewDailyProgress(goal, completed int) *DailyProgress {
	if completed < 0 {
		completed = 0
	}
	return &DailyProgress{goal: goal, completed: completed}
}

// anchor attributes any rehydrated count to the given day.
func (p *DailyProgress) anchor(now time.Time) {
	if p.day == "" {
		p.day = now.Format(dayLayout)
	}
}

func (p *DailyProgress) setGoal(goal int) {
	if goal < 0 {
		goal = 0
	}
	p.goal = goal
}

// rollover resets the count when the UTC day has changed. Both reads and
// writes run it, so a count never outlives its day.
func (p *DailyProgress) rollover(now time.Time) {
	day := now.Format(dayLayout)
	if day != p.day {
		p.day = day
		p.completed = 0
	}
}

// record counts one work-phase completion and reports whether it just reached
// the goal.
func (p *DailyProgress) record(now time.Time) bool {
	p.rollover(now)
	p.completed++
	return p.goal > 0 && p.completed == p.goal
}

// DailySnapshot is the observable daily progress. Percentage is the raw ratio;
// display capping is up to the UI.
type DailySnapshot struct {
	Completed  int     `json:"completed"`
	Goal       int     `json:"goal"`
	Percentage float64 `json:"percentage"`
}

func (p *DailyProgress) snapshot(now time.Time) DailySnapshot {
	p.rollover(now)
	s := DailySnapshot{Completed: p.completed, Goal: p.goal}
	if p.goal > 0 {
		s.Percentage = float64(p.completed) / float64(p.goal) * 100
	}
	return s
}
