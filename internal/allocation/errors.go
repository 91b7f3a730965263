package allocation

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// Code identifies the validation rule an admission draft violated.
type Code string

const (
	CodeMissingPatient       Code = "MissingPatient"
	CodeMissingDoctor        Code = "MissingDoctor"
	CodeMissingRoom          Code = "MissingRoom"
	CodeRoomInactive         Code = "RoomInactive"
	CodeBedNumberOutOfRange  Code = "BedNumberOutOfRange"
	CodeNegativeDeposit      Code = "NegativeDeposit"
	CodeBedNumberTaken       Code = "BedNumberTaken"
	CodeInvalidAdmissionType Code = "InvalidAdmissionType"
)

// ValidationError reports the first rule a draft violated.  It is
// recoverable at the desk: fix the named field and submit again.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(code Code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a storage or connectivity failure of the
// inventory or the ledger.  Callers decide whether to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Re-exported so callers of the orchestrator need not import repository.
var (
	ErrCapacityExceeded  = repository.ErrCapacityExceeded
	ErrRoomNotFound      = repository.ErrRoomNotFound
	ErrAdmissionNotFound = repository.ErrAdmissionNotFound
	ErrPatientNotFound   = repository.ErrPatientNotFound
	ErrDoctorNotFound    = repository.ErrDoctorNotFound
)

// IsNotFound reports whether err means a referenced record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrAdmissionNotFound) ||
		errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrDoctorNotFound)
}

// persistence wraps err unless it is one of the sentinels callers branch on.
func persistence(op string, err error) error {
	if IsNotFound(err) || errors.Is(err, ErrCapacityExceeded) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
