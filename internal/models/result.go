package models

// OpResult is the envelope every mutating operation returns. Callers must
// check Success before trusting any payload fields alongside it.
type OpResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK returns a successful result.
func OK() OpResult {
	return OpResult{Success: true}
}

// Fail returns a failed result carrying a human-readable reason.
func Fail(reason string) OpResult {
	return OpResult{Success: false, Error: reason}
}
