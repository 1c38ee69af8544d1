package serving

import (
	"context"
	"errors"
	"fmt"

	"mlserve/storage"
)

var ErrInvalidModelID = errors.New("invalid model id")

// ModelLoadFailure is the single error kind for any failed load: missing or
// unreadable artifacts, a malformed schema, or no adapter for the framework.
type ModelLoadFailure struct {
	ModelID string
	Cause   error
}

func (e *ModelLoadFailure) Error() string {
	return fmt.Sprintf("load model %s: %v", e.ModelID, e.Cause)
}

func (e *ModelLoadFailure) Unwrap() error { return e.Cause }

// StorageUnavailable reports whether a load failed because the storage backend
// could not be reached or did not answer within the load timeout, as opposed
// to the model not existing.
func (e *ModelLoadFailure) StorageUnavailable() bool {
	return errors.Is(e.Cause, storage.ErrUnavailable) || errors.Is(e.Cause, context.DeadlineExceeded)
}
