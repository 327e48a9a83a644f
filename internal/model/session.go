package model

// SessionState tracks a confirmation session through its lifecycle. All
// states except awaiting_confirmation are terminal.
type SessionState string

// Session state constants.
const (
	SessionAwaitingConfirmation SessionState = "awaiting_confirmation"
	SessionConfirmed            SessionState = "confirmed"
	SessionRejected             SessionState = "rejected"
	SessionExpired              SessionState = "expired"
)

// Terminal reports whether the state accepts no further resolving events.
func (s SessionState) Terminal() bool {
	return s == SessionConfirmed || s == SessionRejected || s == SessionExpired
}
