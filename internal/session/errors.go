package session

// ValidationError rejects a user action before it reaches the store.
// It is always correctable: the message is shown inline and the
// session continues.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}
