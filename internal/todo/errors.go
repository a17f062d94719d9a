package todo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnectivity
	KindConstraint
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindConstraint:
		return "constraint"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// StorageError is returned for every failure talking to the database.
// Kind is for diagnostics; callers should treat all storage errors alike.
type StorageError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *StorageError) Error() string {
	return "todo " + e.Op + " (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return KindConstraint
		case pgErr.Code == "57014":
			return KindTimeout
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return KindConnectivity
		}
		return KindUnknown
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return KindConnectivity
	}
	return KindUnknown
}
