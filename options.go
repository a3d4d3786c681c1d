package srreport

import (
	"github.com/godicom/srreport/pkg/code"
	"github.com/godicom/srreport/pkg/logger"
)

// Document header defaults.
const (
	// DefaultCharacterSet is the registered value written into every
	// document; fixed for compatibility.
	DefaultCharacterSet = "ISO_IR 192"

	DefaultSeriesDescription = "Measurement Report"
	DefaultSeriesNumber      = 99
	DefaultInstanceNumber    = 1
	DefaultCompletionFlag    = "COMPLETE"
	DefaultVerificationFlag  = "UNVERIFIED"
)

// Option configures report assembly and parsing.
type Option func(*Options)

// Options holds configuration shared by the assembler and parser.
type Options struct {
	// Document header
	SeriesDescription    string
	SeriesNumber         int
	InstanceNumber       int
	SpecificCharacterSet string
	CompletionFlag       string
	VerificationFlag     string

	// Observation context
	PersonObserver string
	Language       code.Code

	// Diagnostics
	Logger  *logger.Logger
	Metrics *Metrics
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		SeriesDescription:    DefaultSeriesDescription,
		SeriesNumber:         DefaultSeriesNumber,
		InstanceNumber:       DefaultInstanceNumber,
		SpecificCharacterSet: DefaultCharacterSet,
		CompletionFlag:       DefaultCompletionFlag,
		VerificationFlag:     DefaultVerificationFlag,
		Language:             code.LanguageEnglish,
		Logger:               logger.Default(),
	}
}

// Apply returns the default options with the given options applied.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSeriesDescription sets the SR series description.
func WithSeriesDescription(desc string) Option {
	return func(o *Options) {
		o.SeriesDescription = desc
	}
}

// WithSeriesNumber sets the SR series number.
func WithSeriesNumber(n int) Option {
	return func(o *Options) {
		o.SeriesNumber = n
	}
}

// WithInstanceNumber sets the SR instance number.
func WithInstanceNumber(n int) Option {
	return func(o *Options) {
		o.InstanceNumber = n
	}
}

// WithPersonObserver records the observer name in the document's
// observation context.
func WithPersonObserver(name string) Option {
	return func(o *Options) {
		o.PersonObserver = name
	}
}

// WithLanguage sets the document language content item.
func WithLanguage(lang code.Code) Option {
	return func(o *Options) {
		o.Language = lang
	}
}

// WithLogger sets the logger used for group-skip diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithVerificationFlag overrides the document verification flag.
func WithVerificationFlag(flag string) Option {
	return func(o *Options) {
		if flag != "" {
			o.VerificationFlag = flag
		}
	}
}
