package engine

// TransitionError is a rejected state-machine operation. The code is stable so
// callers can explain to the user why a control is unavailable instead of
// failing silently.
type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return e.Message
}

var (
	ErrAlreadyActive     = &TransitionError{Code: "already_active", Message: "timer is already running"}
	ErrNotRunning        = &TransitionError{Code: "not_running", Message: "timer is not running"}
	ErrNotPaused         = &TransitionError{Code: "not_paused", Message: "timer is not paused"}
	ErrNotActive         = &TransitionError{Code: "not_active", Message: "timer is not active"}
	ErrSkipWorkStrict    = &TransitionError{Code: "strict_mode", Message: "work phases cannot be skipped in strict mode"}
	ErrSkipBreakDisabled = &TransitionError{Code: "skip_breaks_disabled", Message: "break skipping is disabled"}
)
