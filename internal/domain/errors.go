package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// UploadError is returned when the storage gateway refuses an upload or the
// gateway credential is missing. Status is zero for the latter.
type UploadError struct {
	Status int
	Reason string
}

func (e UploadError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upload failed: %s", e.Reason)
	}
	return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Reason)
}

func (e UploadError) Is(target error) bool {
	_, ok := target.(UploadError)
	if ok {
		return true
	}
	_, ok = target.(*UploadError)
	return ok
}

var ErrUpload = UploadError{}

// NetworkError wraps a transport failure while reaching the gateway.
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	if e.Err == nil {
		return "network error"
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

func (e NetworkError) Is(target error) bool {
	_, ok := target.(NetworkError)
	if ok {
		return true
	}
	_, ok = target.(*NetworkError)
	return ok
}

var ErrNetwork = NetworkError{}

// ErrUnauthorized is returned when credentials are missing or wrong.
var ErrUnauthorized = fmt.Errorf("unauthorized")

// ErrConflict is returned when a unique attribute is already taken.
var ErrConflict = fmt.Errorf("already exists")
