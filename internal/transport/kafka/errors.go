package kafka

// PermanentError marks a failure that redelivery cannot fix (malformed
// payload, unknown topic). The consumer logs it and moves on instead of
// blocking the partition.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	return PermanentError{Err: err}
}
