package audiosource

import "fmt"

// StatusError is returned when a site answers with a non-2xx status code.
type StatusError struct {
	What       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s (status code %d)", e.What, e.StatusCode)
}

var _ error = (*StatusError)(nil)
