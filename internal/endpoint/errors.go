package endpoint

import (
	"errors"
	"fmt"
)

// ErrInvalidBody is returned when a 2xx response is not a JSON object.
var ErrInvalidBody = errors.New("invalid response body")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.Code)
}

// ReportedError carries the error field of a response body.
type ReportedError struct {
	Message string
}

func (e *ReportedError) Error() string {
	return "endpoint reported: " + e.Message
}
