package model

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrStoreUnavailable   = errors.New("result store unavailable")
	ErrInvalidValue       = errors.New("invalid value")
	ErrCaseNotFound       = errors.New("case not found")
	ErrUnknownTask        = errors.New("unknown task")
	ErrImageNotFound      = errors.New("image not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
)

// StoreError reports a failed result store operation. It matches
// ErrStoreUnavailable under errors.Is and unwraps to the transport error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError wraps err as a StoreError. Account lookups and conflicts
// are answers from a reachable store and are returned as they are.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrAccountExists) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
