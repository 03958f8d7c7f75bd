package vision

import (
	"errors"
	"fmt"
)

// ErrImageDecode marks input that could not be decoded as an image.
// Recoverable per call; the adapter stays usable.
var ErrImageDecode = errors.New("undecodable image")

// ModelLoadError reports a missing or corrupt model resource. The adapter
// stays in a failed state until a later initialization attempt succeeds.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}
