package upstream

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkUnavailable = errors.New("upstream unreachable")
	ErrMalformedResponse  = errors.New("malformed upstream response")
)

// ServerError means the upstream answered with a status outside 2xx.
type ServerError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream %s failed, status=%d body=%s", e.Endpoint, e.StatusCode, truncateText(e.Body, 240))
}

type MalformedResponseError struct {
	Endpoint string
	Field    string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed upstream response"
	if e.Endpoint != "" {
		msg += " from " + e.Endpoint
	}
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
