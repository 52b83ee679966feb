package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrMedicationNotFound = &AppError{Code: "MED_001", Message: "medication not found"}
	ErrInvalidMedication  = &AppError{Code: "MED_002", Message: "invalid medication"}
	ErrInvalidTimeOfDay   = &AppError{Code: "MED_003", Message: "invalid time of day, expected HH:MM"}
	ErrInvalidArgument    = &AppError{Code: "MED_004", Message: "invalid argument"}

	ErrPersistence = &AppError{Code: "STORE_001", Message: "failed to persist medications"}
	ErrLoad        = &AppError{Code: "STORE_002", Message: "failed to load medications"}

	ErrPermissionDenied     = &AppError{Code: "NOTIF_001", Message: "notification permission not granted"}
	ErrNotificationRegister = &AppError{Code: "NOTIF_002", Message: "failed to register notification"}
	ErrChannelUnavailable   = &AppError{Code: "CHAN_001", Message: "delivery channel unavailable"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
