package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("slot not found")
	ErrUnavailable        = errors.New("slot is not available")
	ErrInvalidReservation = errors.New("no matching reservation for this client")
	ErrReservationExpired = errors.New("reservation expired")
	ErrCancellationWindow = errors.New("cancellation notice period has passed")
	ErrVersionConflict    = errors.New("slot version conflict")
	ErrAlreadyHeld        = errors.New("slot is held by another client")
)

// VersionConflictError reports the version the caller should retry with.
type VersionConflictError struct {
	Current int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("slot version conflict: current version is %d", e.Current)
}

func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }

type AlreadyHeldError struct {
	HeldUntil time.Time
}

func (e *AlreadyHeldError) Error() string {
	return fmt.Sprintf("slot is held by another client until %s", e.HeldUntil.Format(time.RFC3339))
}

func (e *AlreadyHeldError) Is(target error) bool { return target == ErrAlreadyHeld }
