package code

// Coding scheme designators used by this module.
const (
	SchemeDCM   = "DCM"
	SchemeSCT   = "SCT"
	SchemeSRT   = "SRT" // retired SNOMED-RT designator, kept for legacy documents
	SchemeUCUM  = "UCUM"
	SchemeRFC   = "RFC3066"
	SchemeLocal = "99SRREPORT"
	SchemeDCMR  = "DCMR" // template mapping resource, not a coding scheme
)

// Concepts from the DCM coding scheme used by TID 1500 documents.
var (
	ImagingMeasurementReport = Code{Scheme: SchemeDCM, Value: "126000", Meaning: "Imaging Measurement Report"}
	ImagingMeasurements      = Code{Scheme: SchemeDCM, Value: "126010", Meaning: "Imaging Measurements"}
	MeasurementGroup         = Code{Scheme: SchemeDCM, Value: "125007", Meaning: "Measurement Group"}
	TrackingIdentifier       = Code{Scheme: SchemeDCM, Value: "112039", Meaning: "Tracking Identifier"}
	TrackingUniqueIdentifier = Code{Scheme: SchemeDCM, Value: "112040", Meaning: "Tracking Unique Identifier"}
	Finding                  = Code{Scheme: SchemeDCM, Value: "121071", Meaning: "Finding"}
	ImageLibrary             = Code{Scheme: SchemeDCM, Value: "111028", Meaning: "Image Library"}
	ImageLibraryGroup        = Code{Scheme: SchemeDCM, Value: "126200", Meaning: "Image Library Group"}
	LanguageOfContent        = Code{Scheme: SchemeDCM, Value: "121049", Meaning: "Language of Content Item and Descendants"}
	PersonObserverName       = Code{Scheme: SchemeDCM, Value: "121008", Meaning: "Person Observer Name"}
)

// FindingSite is the current anatomy concept; FindingSiteLegacy is the
// retired SNOMED-RT equivalent still emitted by older producers. Both must
// be accepted on read.
var (
	FindingSite       = Code{Scheme: SchemeSCT, Value: "363698007", Meaning: "Finding Site"}
	FindingSiteLegacy = Code{Scheme: SchemeSRT, Value: "G-C0E3", Meaning: "Finding Site"}
)

// Measurement concepts.
var (
	Length    = Code{Scheme: SchemeSRT, Value: "G-D7FE", Meaning: "Length"}
	LongAxis  = Code{Scheme: SchemeSRT, Value: "G-A185", Meaning: "Long Axis"}
	ShortAxis = Code{Scheme: SchemeSRT, Value: "G-A186", Meaning: "Short Axis"}
)

// Units.
var (
	Millimeter = Code{Scheme: SchemeUCUM, Value: "mm", Meaning: "millimeter"}
	Pixel      = Code{Scheme: SchemeUCUM, Value: "{pixel}", Meaning: "pixel"}
)

// Language coding (TID 1204).
var (
	LanguageEnglish = Code{Scheme: SchemeRFC, Value: "eng", Meaning: "English"}
)

// FreeTextValue is the sentinel code value marking a finding or finding
// site whose meaning carries user-entered text rather than a coded term.
const FreeTextValue = "FREETEXT"

// FreeText builds the sentinel free-text code for a user-entered label.
func FreeText(label string) Code {
	return Code{Scheme: SchemeLocal, Value: FreeTextValue, Meaning: label}
}

// IsFreeText reports whether the code carries the free-text sentinel value.
// Only the value is inspected so that documents written with a different
// private scheme designator still round-trip.
func IsFreeText(c Code) bool {
	return c.Value == FreeTextValue
}
