package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError reports a failed call to the document service: either the
// request never completed (Err set) or the service answered with a
// non-success status (Status set, Detail copied from the error body).
type NetworkError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Detail, e.Status)
	default:
		return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Reason returns the most useful message for the user: the server detail
// when present, otherwise the error text.
func (e *NetworkError) Reason() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

// IsNotFound reports whether err is a 404 from the service
func IsNotFound(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Status == http.StatusNotFound
}
