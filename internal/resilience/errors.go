package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// Postgres error classes that clear up on their own: connection
// exceptions, serialization failures and deadlocks, resource exhaustion
// and operator intervention (admin shutdown, cannot connect now).
var transientSQLStates = []string{"08", "40001", "40P01", "53", "57P"}

// transientPatterns catch wrapped driver errors that carry no type.
var transientPatterns = []string{
	"database is locked",
	"sqlite_busy",
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"i/o timeout",
	"too many clients",
}

// IsTransient reports whether err (or anything it wraps) is worth
// retrying: an explicit TransientError, a network timeout or refused
// connection, a transient Postgres SQLSTATE or a locked SQLite database.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, prefix := range transientSQLStates {
			if strings.HasPrefix(pgErr.Code, prefix) {
				return true
			}
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
