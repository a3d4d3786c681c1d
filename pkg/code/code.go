// Package code provides coded-concept types and matching for DICOM SR
// content items.
//
// A Code is the (coding scheme designator, code value, meaning) triple that
// identifies what a content item represents. Matching compares designator
// and value only; the meaning is display text and is never part of code
// equality. Some legacy producers populate only the meaning, which is why a
// small number of lookups in this module match by meaning text instead;
// those live behind explicit helpers so they can be replaced by stable-code
// lookups without touching callers.
package code

// Code is a coded concept: coding scheme designator, code value and an
// optional human-readable meaning.
type Code struct {
	Scheme  string `json:"scheme"`
	Value   string `json:"value"`
	Meaning string `json:"meaning,omitempty"`
}

// Equal reports whether two codes identify the same concept.
// Only (Scheme, Value) participate; Meaning is display text.
func (c Code) Equal(other Code) bool {
	return c.Scheme == other.Scheme && c.Value == other.Value
}

// IsZero reports whether the code is empty.
func (c Code) IsZero() bool {
	return c.Scheme == "" && c.Value == ""
}

// String returns "scheme:value" for diagnostics.
func (c Code) String() string {
	if c.Meaning != "" {
		return c.Scheme + ":" + c.Value + " (" + c.Meaning + ")"
	}
	return c.Scheme + ":" + c.Value
}

// Match reports whether c equals primary or any of the supplied legacy
// codes. Used for classification of content
// items whose concept migrated between coding schemes (e.g. SRT to SCT).
func Match(c Code, primary Code, legacy ...Code) bool {
	if c.Equal(primary) {
		return true
	}
	for _, l := range legacy {
		if c.Equal(l) {
			return true
		}
	}
	return false
}
