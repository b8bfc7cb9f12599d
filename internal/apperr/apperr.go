// Package apperr defines the error kinds shared by the store, the ledger and
// the transports. Package-specific errors wrap one of these kinds so callers
// can branch on either.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalid       = errors.New("invalid argument")
	ErrDuplicate     = errors.New("duplicate")
	ErrAlreadyExists = errors.New("already exists")
	ErrBatchRejected = errors.New("batch rejected")
)

// DuplicateError reports a request that repeats an earlier transaction.
type DuplicateError struct {
	Of uint64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of transaction %d", e.Of)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// BatchError rejects a whole batch. Every slot of the batch carries the same
// value.
type BatchError struct {
	Reason error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch rejected: %v", e.Reason)
}

func (e *BatchError) Is(target error) bool { return target == ErrBatchRejected }

func (e *BatchError) Unwrap() error { return e.Reason }

// Kind returns the kind sentinel err belongs to, or nil when err is not one
// of ours.
func Kind(err error) error {
	for _, k := range []error{ErrBatchRejected, ErrDuplicate, ErrNotFound, ErrUnauthorized, ErrAlreadyExists, ErrInvalid} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code is the short machine readable name of err's kind.
func Code(err error) string {
	switch Kind(err) {
	case ErrNotFound:
		return "not_found"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrInvalid:
		return "invalid"
	case ErrDuplicate:
		return "duplicate"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrBatchRejected:
		return "batch_rejected"
	}
	return "internal"
}
