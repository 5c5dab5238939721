package infractions

import (
	"errors"
	"fmt"

	"sentinel-bot/model"
)

// ConflictError is the normal negative outcome of trying to apply an
// exclusive infraction type the user already has active.
type ConflictError struct {
	Type       model.InfractionType
	ExistingID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("user already has an active %s (#%d)", e.Type, e.ExistingID)
}

// HierarchyError means the bot cannot act on the target because of role
// hierarchy. Rejected before any persistence happens.
type HierarchyError struct {
	UserID string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("cannot act on %s: target role is equal to or above the bot", e.UserID)
}

// ApplyFailedError wraps a platform failure during apply. The record
// has already been rolled back when this is returned.
type ApplyFailedError struct {
	Cause error
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("failed to apply infraction: %v", e.Cause)
}

func (e *ApplyFailedError) Unwrap() error { return e.Cause }

// User input errors, surfaced directly to the invoking moderator.
var (
	ErrDurationNotAllowed = errors.New("this infraction type does not accept a duration")
	ErrAlreadyInactive    = errors.New("this infraction is already inactive")
	ErrNoActiveInfraction = errors.New("user has no active infraction of that type")
	ErrNotifyRequired     = errors.New("could not notify the user, and this infraction type requires notification")
)
