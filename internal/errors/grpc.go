package errors

import (
	"errors"

	"google.golang.org/grpc/status"
)

// HandleError converts domain errors to gRPC status for client responses.
// Unknown errors are masked behind a generic internal message.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return status.Error(appErr.Code.GRPCCode(), appErr.Message)
	}

	return status.Error(CodeUnknown.GRPCCode(), "an unexpected error occurred")
}
