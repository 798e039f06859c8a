package model

import "time"

// FocusSession is the persisted record of one finished timer phase, produced
// from engine completion and skip events.
type FocusSession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Phase           string    `json:"phase"`
	DurationSeconds int       `json:"durationSeconds"`
	Cycle           int       `json:"cycle"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"createdAt"`
}
