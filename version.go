package srreport

// Version is the library version, also embedded in tracking identifiers.
const Version = "0.1.0"

// Template identity of documents this module writes and accepts.
const (
	// TemplateIdentifier is the TID of the Measurement Report template.
	TemplateIdentifier = "1500"

	// MappingResource owns the template identifier.
	MappingResource = "DCMR"
)

// TrackingSource is the producer segment of tracking identifiers written
// by the built-in adapters ("<source>:<toolKind>").
const TrackingSource = "go-srreport@" + Version
