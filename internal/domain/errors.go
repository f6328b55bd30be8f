package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound              = errors.New("not found")
	ErrNoSession             = errors.New("no cooking session")
	ErrInvalidTransition     = errors.New("invalid listening state transition")
	ErrPermissionDenied      = errors.New("microphone permission denied")
	ErrCapabilityUnavailable = errors.New("speech capability unavailable")
)

// RecipeNotFoundError reports the recipe that stopped a composition.
type RecipeNotFoundError struct {
	ID  RecipeID
	Err error
}

func (e *RecipeNotFoundError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("recipe %q not found: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("recipe %q not found", e.ID)
}

// Unwrap keeps errors.Is(err, ErrNotFound) true.
func (e *RecipeNotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// PersistenceError means a mutation was applied in memory but could not be
// saved durably.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CaptureReason classifies a capture failure.
type CaptureReason string

const (
	CapturePermissionDenied CaptureReason = "permission_denied"
	CaptureUnavailable      CaptureReason = "unavailable"
	CaptureDevice           CaptureReason = "device"
)

// CaptureError is a microphone, permission or backend failure.
type CaptureError struct {
	Reason CaptureReason
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Reason, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// NewCaptureError classifies err by its sentinel.
func NewCaptureError(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	reason := CaptureDevice
	switch {
	case errors.Is(err, ErrPermissionDenied):
		reason = CapturePermissionDenied
	case errors.Is(err, ErrCapabilityUnavailable):
		reason = CaptureUnavailable
	}
	return &CaptureError{Reason: reason, Err: err}
}

// TranscriptionError means the external speech-to-text call failed.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
