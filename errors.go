// errors.go: structured error handling for cella primitives
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error codes
// for the cell, rope, hazard registry, and descriptor-table operations.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package cella

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for cella operations.
const (
	// Cell errors
	ErrCodeInvalidArgument errors.ErrorCode = "CELLA_INVALID_ARGUMENT"
	ErrCodeOutOfMemory     errors.ErrorCode = "CELLA_OUT_OF_MEMORY"
	ErrCodeClosed          errors.ErrorCode = "CELLA_CLOSED"
	ErrCodeNotQuiescent    errors.ErrorCode = "CELLA_NOT_QUIESCENT"

	// Rope errors
	ErrCodeOverflow errors.ErrorCode = "CELLA_OVERFLOW"
	ErrCodeNotFound errors.ErrorCode = "CELLA_NOT_FOUND"
	ErrCodeTooMany  errors.ErrorCode = "CELLA_TOO_MANY"

	// Descriptor-table errors
	ErrCodeBadHandle errors.ErrorCode = "CELLA_BAD_HANDLE"

	// Internal errors
	ErrCodeInternalError  errors.ErrorCode = "CELLA_INTERNAL_ERROR"
	ErrCodePanicRecovered errors.ErrorCode = "CELLA_PANIC_RECOVERED"
)

// Common error messages.
const (
	msgInvalidArgument = "invalid argument: payload must not be the zero ⊥ sentinel"
	msgOutOfMemory     = "allocation failed while publishing a new value"
	msgClosed          = "cell has been closed"
	msgNotQuiescent    = "destroy called while readers may still be active"
	msgOverflow        = "capacity arithmetic overflowed while growing the rope"
	msgNotFound        = "index is beyond the in-use prefix"
	msgTooMany         = "index would exceed the reserved index range"
	msgBadHandle       = "handle verifier does not match the current slot generation"
	msgInternalError   = "internal cella error"
	msgPanicRecovered  = "panic recovered in cella operation"
)

// =============================================================================
// CELL ERRORS
// =============================================================================

// NewErrInvalidArgument creates an error for a rejected ⊥ (nil/zero) payload.
func NewErrInvalidArgument(op string) error {
	return errors.NewWithField(ErrCodeInvalidArgument, msgInvalidArgument, "operation", op)
}

// NewErrOutOfMemory creates an error for a failed wrapper allocation.
func NewErrOutOfMemory(op string) error {
	return errors.NewWithField(ErrCodeOutOfMemory, msgOutOfMemory, "operation", op).AsRetryable()
}

// NewErrClosed creates an error for an operation attempted on a closed cell.
func NewErrClosed(op string) error {
	return errors.NewWithField(ErrCodeClosed, msgClosed, "operation", op)
}

// NewErrNotQuiescent creates an error when Destroy observes active readers.
func NewErrNotQuiescent(activeReaders int32) error {
	return errors.NewWithContext(ErrCodeNotQuiescent, msgNotQuiescent, map[string]interface{}{
		"active_readers": activeReaders,
	})
}

// =============================================================================
// ROPE ERRORS
// =============================================================================

// NewErrOverflow creates an error when chunk-capacity growth overflows.
func NewErrOverflow(requestedCapacity int) error {
	return errors.NewWithContext(ErrCodeOverflow, msgOverflow, map[string]interface{}{
		"requested_capacity": requestedCapacity,
	})
}

// NewErrNotFound creates an error for Get(RequireSet) past the in-use prefix.
func NewErrNotFound(index int) error {
	return errors.NewWithField(ErrCodeNotFound, msgNotFound, "index", index)
}

// NewErrTooMany creates an error when an index would exceed the reserved range.
func NewErrTooMany(index, maxIndex int) error {
	return errors.NewWithContext(ErrCodeTooMany, msgTooMany, map[string]interface{}{
		"index":     index,
		"max_index": maxIndex,
	})
}

// =============================================================================
// DESCRIPTOR TABLE ERRORS
// =============================================================================

// NewErrBadHandle creates an error for a stale or malformed descriptor handle.
func NewErrBadHandle(index int) error {
	return errors.NewWithField(ErrCodeBadHandle, msgBadHandle, "index", index)
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// NewErrInternal creates a generic internal error.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// NewErrPanicRecovered creates an error when a panic is recovered from an
// Argus reload callback.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": panicValue,
	}).WithSeverity("critical")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsNotFound checks if err is a rope not-found error.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeNotFound)
}

// IsBadHandle checks if err is a descriptor-table bad-handle error.
func IsBadHandle(err error) bool {
	return errors.HasCode(err, ErrCodeBadHandle)
}

// IsOverflow checks if err is a rope capacity-overflow error.
func IsOverflow(err error) bool {
	return errors.HasCode(err, ErrCodeOverflow)
}

// IsRetryable checks if the error can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var cellaErr *errors.Error
	if goerrors.As(err, &cellaErr) {
		return cellaErr.Context
	}
	return nil
}
