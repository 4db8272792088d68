package volley

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline.
var (
	// ErrCorruptArchive is returned when merged bytes are not a valid zip
	// archive. It signals upstream corruption such as a missing or
	// reordered part.
	ErrCorruptArchive = errors.New("volley: corrupt archive")

	// ErrManifestFormat is returned when a manifest is missing required
	// fields or its part indices do not form a contiguous zero-based set.
	ErrManifestFormat = errors.New("volley: malformed manifest")
)

// StepError attributes a session failure to the pipeline stage it occurred
// in. The orchestrator halts on the first StepError; it never retries.
type StepError struct {
	Stage Stage
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
