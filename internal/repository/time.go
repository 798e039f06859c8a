package repository

import (
	"fmt"
	"time"
)

// parseTimestamp reads the RFC3339Nano strings the repositories store,
// tolerating plain RFC3339 for rows written without sub-second precision.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
