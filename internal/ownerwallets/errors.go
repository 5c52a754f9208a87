package ownerwallets

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound         = errors.New("wallet not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")

	// ErrUpstreamUnavailable marks an owner_* procedure that cannot serve the
	// request: it is not deployed, or it lacks the requested ordering. The
	// facade falls back on it; it only reaches callers when the fallback is disabled.
	ErrUpstreamUnavailable = errors.New("owner wallet procedure unavailable")
)

// undefined_function
const sqlStateUndefinedFunction = "42883"

// DataAccessError is any other procedure or table failure. Its message is the
// underlying one, verbatim.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string { return e.Err.Error() }
func (e *DataAccessError) Unwrap() error { return e.Err }

type upstreamError struct {
	proc string
	err  error
}

func (e *upstreamError) Error() string   { return e.err.Error() }
func (e *upstreamError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.err} }

// IsMissingProcedure reports whether err says the called function is not
// deployed. Any other failure, including permission and syntax errors, is not.
func IsMissingProcedure(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateUndefinedFunction {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == sqlStateUndefinedFunction {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "Could not find the function") {
		return true
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "schema cache") {
		return true
	}
	return strings.Contains(lower, "function") && strings.Contains(lower, "does not exist")
}

// classify wraps a procedure failure for the facade.
func classify(proc string, err error) error {
	if IsMissingProcedure(err) {
		return &upstreamError{proc: proc, err: err}
	}
	return &DataAccessError{Op: proc, Err: err}
}

func dataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, Err: err}
}
