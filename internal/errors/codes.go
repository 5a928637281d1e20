// Package errors provides structured error handling for the challenge engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeValidation Code = "VALIDATION"

	// Lookup errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeDuplicateName Code = "DUPLICATE_NAME"

	// Unlock and allocation errors
	CodeLockedProblem            Code = "LOCKED_PROBLEM"
	CodeAlreadyAssigned          Code = "ALREADY_ASSIGNED"
	CodeNoInstancesShardDown     Code = "NO_INSTANCES_SHARD_DOWN"
	CodeNoInstancesGloballyEmpty Code = "NO_INSTANCES_GLOBALLY_EMPTY"

	// Operational errors
	CodeSevereInconsistency Code = "SEVERE_INCONSISTENCY"
	CodeConfiguration       Code = "CONFIGURATION"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeValidation:
		return codes.InvalidArgument

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - insert collides with an existing record
	case CodeDuplicateName:
		return codes.AlreadyExists

	// FailedPrecondition - state doesn't allow operation
	case CodeLockedProblem,
		CodeAlreadyAssigned,
		CodeNoInstancesShardDown,
		CodeNoInstancesGloballyEmpty,
		CodeConfiguration:
		return codes.FailedPrecondition

	// DataLoss - corrupted team/problem state
	case CodeSevereInconsistency:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
