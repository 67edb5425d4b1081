// Package errors provides unified error handling with structured error codes.
// Codes map onto gRPC status codes for the control service and onto HTTP
// status codes for the UI transport.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is attached to every ErrorInfo detail sent over gRPC.
const Domain = "chromalens.platform"

// Code classifies an AppError.
type Code int32

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidArgument
	CodeNotFound
	CodeUnavailable
	CodeTimeout
	CodeCancelled
	CodePermissionDenied
	CodeDeviceUnavailable
	CodeDeviceBusy
	CodeCaptureEnded
	CodeTransformInputInvalid
	CodeConfigInvalid
)

var codeNames = map[Code]string{
	CodeUnknown:               "UNKNOWN",
	CodeInternal:              "INTERNAL",
	CodeInvalidArgument:       "INVALID_ARGUMENT",
	CodeNotFound:              "NOT_FOUND",
	CodeUnavailable:           "UNAVAILABLE",
	CodeTimeout:               "TIMEOUT",
	CodeCancelled:             "CANCELLED",
	CodePermissionDenied:      "PERMISSION_DENIED",
	CodeDeviceUnavailable:     "DEVICE_UNAVAILABLE",
	CodeDeviceBusy:            "DEVICE_BUSY",
	CodeCaptureEnded:          "CAPTURE_ENDED",
	CodeTransformInputInvalid: "TRANSFORM_INPUT_INVALID",
	CodeConfigInvalid:         "CONFIG_INVALID",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseCode is the inverse of Code.String.
func ParseCode(s string) Code {
	for c, name := range codeNames {
		if name == s {
			return c
		}
	}
	return CodeUnknown
}

// grpcCodeMap maps ErrorCode to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:               codes.Unknown,
	CodeInternal:              codes.Internal,
	CodeInvalidArgument:       codes.InvalidArgument,
	CodeNotFound:              codes.NotFound,
	CodeUnavailable:           codes.Unavailable,
	CodeTimeout:               codes.DeadlineExceeded,
	CodeCancelled:             codes.Canceled,
	CodePermissionDenied:      codes.PermissionDenied,
	CodeDeviceUnavailable:     codes.FailedPrecondition,
	CodeDeviceBusy:            codes.Unavailable,
	CodeCaptureEnded:          codes.Aborted,
	CodeTransformInputInvalid: codes.InvalidArgument,
	CodeConfigInvalid:         codes.InvalidArgument,
}

var httpCodeMap = map[Code]int{
	CodeInvalidArgument:       http.StatusBadRequest,
	CodeNotFound:              http.StatusNotFound,
	CodeUnavailable:           http.StatusServiceUnavailable,
	CodeTimeout:               http.StatusGatewayTimeout,
	CodeCancelled:             499,
	CodePermissionDenied:      http.StatusForbidden,
	CodeDeviceUnavailable:     http.StatusFailedDependency,
	CodeDeviceBusy:            http.StatusServiceUnavailable,
	CodeCaptureEnded:          http.StatusGone,
	CodeTransformInputInvalid: http.StatusUnprocessableEntity,
	CodeConfigInvalid:         http.StatusBadRequest,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError carrying the same code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Code == e.Code
}

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// HTTPStatus returns the HTTP status used by the REST surface.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// ToProto converts to an ErrorInfo detail.
func (e *AppError) ToProto() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = e.Metadata
	}
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	if withDetail, err := st.WithDetails(e.ToProto()); err == nil {
		st = withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknown
}

// FromGRPCError extracts AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return &AppError{
				Code:     ParseCode(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
			}
		}
	}

	// Fallback: map gRPC code to our error code
	return &AppError{Code: grpcToErrorCode(st.Code()), Message: st.Message()}
}

// grpcToErrorCode maps gRPC codes back to our error codes (best effort).
func grpcToErrorCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidArgument
	case codes.NotFound:
		return CodeNotFound
	case codes.Unavailable:
		return CodeUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeInternal
	case codes.PermissionDenied:
		return CodePermissionDenied
	case codes.FailedPrecondition:
		return CodeDeviceUnavailable
	case codes.Aborted:
		return CodeCaptureEnded
	default:
		return CodeUnknown
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeUnavailable, CodeTimeout, CodeDeviceBusy:
		return true
	default:
		return false
	}
}
