package service

import (
	"errors"
)

// Kind classifies a service failure so callers can react without matching messages.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidTransition   Kind = "invalid_state_transition"
	KindValidation          Kind = "validation"
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// Error is a typed service error naming the precondition that failed.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is lets errors.Is match a specific error against its kind sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Validation builds a validation error with a caller-specific message.
func Validation(msg string) *Error {
	return newError(KindValidation, msg)
}

// KindOf extracts the kind of a service error ("" when err is not one).
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// --- Kind sentinels ---
var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidTransition}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrConcurrencyConflict    = &Error{Kind: KindConcurrencyConflict}
)

// --- Error Definitions ---
var (
	ErrBlueprintNotFound  = newError(KindNotFound, "blueprint not found")
	ErrVersionNotFound    = newError(KindNotFound, "version not found")
	ErrEntryNotFound      = newError(KindNotFound, "exercise entry not found")
	ErrAssignmentNotFound = newError(KindNotFound, "assignment not found")
	ErrClientNotFound     = newError(KindNotFound, "client user not found")

	ErrBlueprintAccessDenied  = newError(KindUnauthorized, "access denied to modify this blueprint")
	ErrNotAssignmentClient    = newError(KindUnauthorized, "assignment does not belong to this client")
	ErrNotAssigningPro        = newError(KindUnauthorized, "assignment was not offered by this professional")
	ErrNoActiveRelationship   = newError(KindUnauthorized, "no active relationship between professional and client")
	ErrAssignmentAccessDenied = newError(KindUnauthorized, "access denied to this assignment")

	ErrVersionArchived        = newError(KindInvalidTransition, "version is archived")
	ErrVersionActive          = newError(KindInvalidTransition, "version is active")
	ErrVersionNotActive       = newError(KindInvalidTransition, "version is not active")
	ErrVersionNotDraft        = newError(KindInvalidTransition, "version is not a draft")
	ErrBlueprintArchived      = newError(KindInvalidTransition, "blueprint is archived")
	ErrAssignmentNotPending   = newError(KindInvalidTransition, "assignment is not pending acceptance")
	ErrAssignmentNotActive    = newError(KindInvalidTransition, "assignment is not active")
	ErrStatusTransition       = newError(KindInvalidTransition, "status transition not allowed")
	ErrNoPendingUpdate        = newError(KindInvalidTransition, "assignment has no pending update")
	ErrUpdateIsCurrentVersion = newError(KindInvalidTransition, "pushed version is already the current version")

	ErrTooManyDays         = newError(KindValidation, "a version may have at most 7 training days")
	ErrVersionOtherRoutine = newError(KindValidation, "version belongs to a different blueprint")

	ErrOverlayChanged = newError(KindConcurrencyConflict, "pending update changed concurrently")
)
