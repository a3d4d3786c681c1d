// Package dcmuid provides the DICOM unique identifiers this module emits
// and a generator for new instance-level UIDs.
package dcmuid

import (
	"math/big"

	"github.com/google/uuid"
)

// Structured Report SOP Class UIDs as defined in DICOM Part 4, Annex B.
const (
	// ComprehensiveSR anchors measurements to referenced images (SCOORD).
	ComprehensiveSR = "1.2.840.10008.5.1.4.1.1.88.33"

	// Comprehensive3DSR anchors measurements to a frame of reference
	// (SCOORD3D) and is selected when any source lacks an image reference.
	Comprehensive3DSR = "1.2.840.10008.5.1.4.1.1.88.34"
)

// Transfer syntax used for written documents.
const ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

// Implementation identity written into the file meta group.
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.10.1465.1"
	ImplementationVersionName = "GO_SRREPORT"
)

// New returns a freshly generated UID under the UUID-derived "2.25" root
// (DICOM PS3.5 B.2): the 128-bit UUID rendered as a decimal integer.
func New() string {
	u := uuid.New()
	var n big.Int
	n.SetBytes(u[:])
	return "2.25." + n.String()
}
