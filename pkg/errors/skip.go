package errors

// SkipMessageError tells a queue consumer to ack the message without
// requeueing. Used for duplicate deliveries and permanently failed work that
// has already been recorded.
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

func IsSkipMessageError(err error) bool {
	_, ok := err.(*SkipMessageError)
	return ok
}
