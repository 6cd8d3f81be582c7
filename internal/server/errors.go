package server

import "errors"

// Engine errors. Validation failures are reported as *model.ValidationError.
var (
	// ErrNotFound means no visible run exists under the id. Inactive runs
	// requested without their token report the same error.
	ErrNotFound = errors.New("run not found")

	// ErrConflict means a run already exists under a freshly generated id.
	// Callers retry the whole create.
	ErrConflict = errors.New("run with this id already exists")

	// ErrForbidden is the parent of every edit-token failure.
	ErrForbidden = errors.New("forbidden")
)

// forbiddenError is an edit-token failure.
// Transport layers map it to 403 / PermissionDenied.
type forbiddenError string

func (e forbiddenError) Error() string { return string(e) }

func (e forbiddenError) Unwrap() error { return ErrForbidden }

const (
	errTokenRequired forbiddenError = "edit token is required"
	errInvalidToken  forbiddenError = "invalid edit token"
)

// inputError indicates a request that never reached the engine, such as a
// body that is not JSON. Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
