package srreport

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers should test with
// errors.Is; wrapped variants carry additional context.
var (
	// ErrUnsupportedTemplate is returned when a parsed document does not
	// declare template "1500". Fatal for the whole document.
	ErrUnsupportedTemplate = errors.New("unsupported report template")

	// ErrMissingSpatialContext is returned when a measurement group carries
	// neither a SCOORD nor a SCOORD3D content item. Local to the group.
	ErrMissingSpatialContext = errors.New("no SCOORD or SCOORD3D content in measurement group")

	// ErrUnresolvedAdapter is returned when no registered adapter claims a
	// tracking identifier. The group is skipped, never the document.
	ErrUnresolvedAdapter = errors.New("no adapter claims tracking identifier")

	// ErrDuplicateToolKind is returned when a tool kind is registered twice
	// without an explicit replace strategy.
	ErrDuplicateToolKind = errors.New("tool kind already registered")

	// ErrMissingModule is returned when the metadata provider has no record
	// for a required module. Hard failure for the group being processed.
	ErrMissingModule = errors.New("metadata module not available")

	// ErrMissingTrackingIdentifier is returned when a measurement group
	// carries no tracking identifier item. Local to the group.
	ErrMissingTrackingIdentifier = errors.New("no tracking identifier in measurement group")
)

// GroupError wraps a failure local to one measurement group, carrying
// enough context to diagnose which group failed.
type GroupError struct {
	// Index is the zero-based position of the group under the
	// Imaging Measurements container.
	Index int

	// TrackingIdentifier is the group's tracking identifier text, when one
	// could be located.
	TrackingIdentifier string

	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *GroupError) Error() string {
	if e.TrackingIdentifier != "" {
		return fmt.Sprintf("measurement group %d (%s): %v", e.Index, e.TrackingIdentifier, e.Err)
	}
	return fmt.Sprintf("measurement group %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *GroupError) Unwrap() error {
	return e.Err
}
