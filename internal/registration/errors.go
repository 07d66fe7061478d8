// Package registration implements the session capacity, hold and
// waitlist controller: the transactional operations that let many
// concurrent parents compete for a finite number of camp seats without
// overselling, with seats provisionally reserved for a bounded window
// and reclaimed when payment never completes.
package registration

import "errors"

// Sentinel errors for the registration flow.  The error message doubles
// as the machine-readable code surfaced to clients, so these strings are
// part of the API contract with the web client and must not change.
var (
    // ErrInvalidArgument covers missing or malformed request fields.
    ErrInvalidArgument = errors.New("INVALID_ARGUMENT")
    // ErrInvalidGender is returned when the camper gender is neither
    // "male" nor "female".
    ErrInvalidGender = errors.New("INVALID_GENDER")
    // ErrGradeOutOfRange is returned when gradeCompleted falls outside
    // the accepted 2..8 range.
    ErrGradeOutOfRange = errors.New("GRADE_OUT_OF_RANGE")
    // ErrSessionNotFound is returned when the addressed session does
    // not exist.
    ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
    // ErrRegNotFound is returned when the addressed registration does
    // not exist.
    ErrRegNotFound = errors.New("REG_NOT_FOUND")
    // ErrPermissionDenied is returned when a caller operates on a
    // registration owned by a different parent.
    ErrPermissionDenied = errors.New("PERMISSION_DENIED")
    // ErrInvalidStatus is returned when an operation requires the
    // registration to be in the holding state and it is not.
    ErrInvalidStatus = errors.New("INVALID_STATUS")
    // ErrDepositRequired is returned by confirm when no successful
    // deposit authorization accompanied the call.
    ErrDepositRequired = errors.New("DEPOSIT_REQUIRED")
    // ErrHoldExpired is returned by confirm when the hold backing the
    // registration has already lapsed; the caller must re-hold.
    ErrHoldExpired = errors.New("HOLD_EXPIRED")
    // ErrSessionFull is returned by direct registration creation when
    // the session is full and its waitlist is closed.
    ErrSessionFull = errors.New("SESSION_FULL")
    // ErrAlreadyRegistered is returned by direct registration creation
    // when the camper already has a registration in the session.
    ErrAlreadyRegistered = errors.New("ALREADY_REGISTERED")
)
