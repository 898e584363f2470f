package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrServerStatus indicates a non-2xx response from the endpoint.
type ErrServerStatus struct {
	StatusCode int
	Err        error
}

func (e ErrServerStatus) Error() string {
	return fmt.Errorf("server status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrServerStatus) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error and status code onto the typed
// errors above so absences can be bucketed by cause.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= 400 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrServerStatus{StatusCode: statusCode, Err: wrapped}
	}

	return err
}

// absenceReason labels the cause of an absence for logs, metrics, and the
// per-batch failure report.
func absenceReason(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrServerStatus
	if errors.As(err, &status) {
		return fmt.Sprintf("status_%d", status.StatusCode)
	}
	return "other"
}
