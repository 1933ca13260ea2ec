package models

import (
	"errors"
	"fmt"
)

// InsufficientDataError means a window has fewer valid readings than the
// extractor minimum. Cycles hitting it are skipped, never retried.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient readings: have %d, need %d", e.Have, e.Need)
}

// IsInsufficientData reports whether err is (or wraps) an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}

// ModelLoadError means the model artifact is missing, corrupt, or its
// feature order does not match the extractor. Fatal until an operator
// fixes the artifact; never retried as transient.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// IsModelLoad reports whether err is (or wraps) a ModelLoadError.
func IsModelLoad(err error) bool {
	var me *ModelLoadError
	return errors.As(err, &me)
}

// StorageError marks a transient read/write failure against the reading or
// analysis stores. Retried with backoff.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// PredictionTimeoutError means a cycle exceeded its wall-clock budget.
// Treated as transient and retried.
type PredictionTimeoutError struct {
	SubjectID string
	Budget    string
}

func (e *PredictionTimeoutError) Error() string {
	return fmt.Sprintf("prediction timed out for subject %s (budget %s)", e.SubjectID, e.Budget)
}

// IsPredictionTimeout reports whether err is (or wraps) a PredictionTimeoutError.
func IsPredictionTimeout(err error) bool {
	var te *PredictionTimeoutError
	return errors.As(err, &te)
}
