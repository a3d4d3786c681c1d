package srreport

// IssueSeverity classifies how serious a parse-time issue is.
type IssueSeverity string

// Issue severities.
const (
	// SeverityError marks a group that was dropped from the result.
	SeverityError IssueSeverity = "error"
	// SeverityWarning marks degraded but usable output.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation marks informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueCode identifies the kind of issue.
type IssueCode string

// Issue codes.
const (
	// IssueUnresolvedAdapter: no registered adapter claimed the group's
	// tracking identifier.
	IssueUnresolvedAdapter IssueCode = "unresolved-adapter"
	// IssueMissingSpatialContext: the group had neither SCOORD nor SCOORD3D.
	IssueMissingSpatialContext IssueCode = "missing-spatial-context"
	// IssueMissingModule: a required metadata module was absent.
	IssueMissingModule IssueCode = "missing-module"
	// IssueDecodeFailed: adapter extraction failed for another reason.
	IssueDecodeFailed IssueCode = "decode-failed"
	// IssueMissingTracking: the group carries no tracking identifier item.
	IssueMissingTracking IssueCode = "missing-tracking-identifier"
)

// Issue records one group-local parse failure. Failed groups are excluded
// from the result set; their issues are the only trace they leave.
type Issue struct {
	// Severity of the issue.
	Severity IssueSeverity `json:"severity"`

	// Code identifying the kind of issue.
	Code IssueCode `json:"code"`

	// Diagnostics contains human-readable details.
	Diagnostics string `json:"diagnostics,omitempty"`

	// GroupIndex is the zero-based position of the offending group under
	// the Imaging Measurements container.
	GroupIndex int `json:"groupIndex"`

	// TrackingIdentifier is the offending group's tracking identifier,
	// when one could be located.
	TrackingIdentifier string `json:"trackingIdentifier,omitempty"`
}

// IsError reports whether the issue dropped a group from the result.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	s := string(i.Severity) + ": " + string(i.Code)
	if i.Diagnostics != "" {
		s += ": " + i.Diagnostics
	}
	return s
}
