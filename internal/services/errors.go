package services

import (
	"errors"
	"fmt"

	"alfredoptarigan/talent-graph/internal/repositories"
)

var (
	ErrMalformedGenerationOutput = errors.New("malformed generation output")
	ErrEmptyGenerationResponse   = errors.New("empty generation response")
	ErrStoreUnavailable          = errors.New("store unavailable")
	ErrNotFound                  = repositories.ErrNotFound
	ErrInvalidRequest            = errors.New("invalid request")
)

// MalformedOutputError keeps the raw generation text for diagnosis.
type MalformedOutputError struct {
	Raw       string
	FencedErr error
	RawErr    error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: fenced: %v; raw: %v", ErrMalformedGenerationOutput, e.FencedErr, e.RawErr)
}

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedGenerationOutput
}

// StoreError wraps a failure of the vector or graph store.
type StoreError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func storeErr(store, op string, err error) error {
	return &StoreError{Store: store, Op: op, Err: err}
}
