package order

import "errors"

var (
	// ErrOrderNotFound is returned when no order has the requested id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrValidation marks malformed input rejected before any collaborator call.
	ErrValidation = errors.New("validation failed")
	// ErrUploadFailed is returned when the object store did not accept a file.
	ErrUploadFailed = errors.New("file upload failed")
	// ErrNoFileAttached is returned when a download link is requested for an
	// order without a file.
	ErrNoFileAttached = errors.New("order has no file attached")
	// ErrStoreUnavailable wraps object store failures other than uploads.
	ErrStoreUnavailable = errors.New("object store unavailable")
	// ErrRepositoryUnavailable wraps order repository failures.
	ErrRepositoryUnavailable = errors.New("order repository unavailable")
)

// ValidationError describes the first invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) hold for any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
