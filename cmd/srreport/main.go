// Package main implements the srreport CLI tool: it inspects TID 1500
// Measurement Report files and lists the annotations they carry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/suyashkumar/dicom"
	"gopkg.in/yaml.v3"

	sr "github.com/godicom/srreport"
	"github.com/godicom/srreport/adapters"
	"github.com/godicom/srreport/content"
	"github.com/godicom/srreport/metadata"
	"github.com/godicom/srreport/pkg/logger"
	"github.com/godicom/srreport/registry"
	"github.com/godicom/srreport/report"
)

const usage = `srreport - TID 1500 Measurement Report inspector

Usage:
  srreport [options] <file>...

Examples:
  srreport measurements.dcm
  srreport -output json measurements.dcm
  srreport -aliases aliases.yaml legacy-report.dcm
  srreport *.dcm

Options:
`

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration
type Config struct {
	Output      OutputFormat
	AliasFile   string
	Quiet       bool
	Verbose     bool
	ShowVersion bool
	Help        bool
	Files       []string
}

// AliasFile maps extra tracking identifiers to built-in tool kinds, so
// documents from other producers resolve without code changes.
type AliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// ReportOutput represents the JSON output structure for one file.
type ReportOutput struct {
	File        string             `json:"file"`
	Annotations int                `json:"annotations"`
	ByToolKind  map[string]int     `json:"byToolKind,omitempty"`
	Issues      []sr.Issue         `json:"issues,omitempty"`
	Records     []annotationOutput `json:"records,omitempty"`
	Duration    string             `json:"duration"`
}

type annotationOutput struct {
	ToolName     string           `json:"toolName"`
	Label        string           `json:"label,omitempty"`
	Description  string           `json:"description,omitempty"`
	Points       int              `json:"points"`
	Measurements []sr.Measurement `json:"measurements,omitempty"`
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("srreport v%s\n", sr.Version)
		os.Exit(0)
	}

	if config.Help || len(config.Files) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(config))
}

func parseFlags() *Config {
	config := &Config{Output: OutputText}

	var output string
	flag.StringVar(&output, "output", "text", "Output format: text, json")
	flag.StringVar(&config.AliasFile, "aliases", "", "YAML file mapping extra tracking identifiers to tool kinds")
	flag.BoolVar(&config.Quiet, "quiet", false, "Only show counts and errors")
	flag.BoolVar(&config.Verbose, "verbose", false, "Show every decoded record")
	flag.BoolVar(&config.ShowVersion, "v", false, "Show version")
	flag.BoolVar(&config.Help, "help", false, "Show help")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	switch strings.ToLower(output) {
	case "json":
		config.Output = OutputJSON
	default:
		config.Output = OutputText
	}

	config.Files = flag.Args()
	return config
}

func run(config *Config) int {
	if config.Quiet {
		logger.SetLevel(logger.LevelError)
	} else if config.Verbose {
		logger.SetLevel(logger.LevelDebug)
	}

	reg := registry.NewRegistry()
	if err := adapters.RegisterBuiltins(reg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register adapters: %v\n", err)
		return 1
	}

	if config.AliasFile != "" {
		if err := loadAliases(reg, config.AliasFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	hasErrors := false
	outputs := make([]ReportOutput, 0, len(config.Files))

	for _, pattern := range config.Files {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error with pattern '%s': %v\n", pattern, err)
			hasErrors = true
			continue
		}
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No files match pattern: %s\n", pattern)
			hasErrors = true
			continue
		}

		for _, path := range matches {
			output, fileHasErrors := inspectFile(reg, path, config)
			outputs = append(outputs, output)
			if fileHasErrors {
				hasErrors = true
			}
		}
	}

	if config.Output == OutputJSON {
		jsonOutput, _ := json.MarshalIndent(outputs, "", "  ")
		fmt.Println(string(jsonOutput))
	}

	if hasErrors {
		return 1
	}
	return 0
}

// loadAliases registers the alias file's identifier mappings against the
// built-in adapters.
func loadAliases(reg *registry.Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read aliases: %w", err)
	}
	var file AliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse aliases %s: %w", path, err)
	}

	for identifier, kind := range file.Aliases {
		adapter := reg.ForToolKind(kind)
		if adapter == nil {
			return fmt.Errorf("aliases %s: unknown tool kind %q for %q", path, kind, identifier)
		}
		reg.RegisterTrackingIdentifiers(adapter, identifier)
	}
	return nil
}

func inspectFile(reg *registry.Registry, path string, config *Config) (ReportOutput, bool) {
	start := time.Now()

	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		if config.Output == OutputText {
			fmt.Printf("Error reading %s: %v\n", path, err)
		}
		return errorOutput(path, fmt.Sprintf("failed to read file: %v", err), start), true
	}

	// The CLI has no access to the original images, so referenced
	// instances get a synthetic identity and coordinates stay in pixel
	// units (z = 0).
	provider, imageIDs := synthesizeContext(ds)

	parser := &report.Parser{
		Provider: provider,
		Registry: reg,
		ImageIDs: imageIDs,
		ImageToWorld: func(imageID string, pt [2]float64) ([3]float64, error) {
			return [3]float64{pt[0], pt[1], 0}, nil
		},
	}

	result, err := parser.Parse(ds)
	duration := time.Since(start)
	if err != nil {
		if config.Output == OutputText {
			fmt.Printf("Error parsing %s: %v\n", path, err)
		}
		return errorOutput(path, fmt.Sprintf("parse failed: %v", err), start), true
	}

	output := ReportOutput{
		File:        path,
		Annotations: result.Total(),
		ByToolKind:  make(map[string]int, len(result.ByToolKind)),
		Issues:      result.Issues,
		Duration:    duration.Round(time.Microsecond).String(),
	}
	for kind, anns := range result.ByToolKind {
		output.ByToolKind[kind] = len(anns)
		if config.Verbose {
			for _, ann := range anns {
				output.Records = append(output.Records, annotationOutput{
					ToolName:     ann.ToolName,
					Label:        ann.Label,
					Description:  ann.Description,
					Points:       len(ann.Points),
					Measurements: ann.Measurements,
				})
			}
		}
	}

	if config.Output == OutputText {
		printTextResult(output, config)
	}

	for _, issue := range result.Issues {
		if issue.IsError() {
			return output, true
		}
	}
	return output, false
}

// synthesizeContext walks the document for referenced SOP instances and
// builds an identity mapping plus minimal image metadata, enough to
// decode without the original images at hand.
func synthesizeContext(ds dicom.Dataset) (metadata.Provider, map[string]string) {
	provider := metadata.NewMapProvider()
	imageIDs := make(map[string]string)

	root, err := content.FromDataset(ds)
	if err != nil {
		return provider, imageIDs
	}

	var walk func(n *content.Node)
	walk = func(n *content.Node) {
		var ref *content.ReferencedSOP
		switch {
		case n.Type == content.TypeSCOORD && n.SCOORD != nil:
			ref = n.SCOORD.Ref
		case n.Type == content.TypeImage:
			ref = n.Image
		}
		if ref != nil && ref.InstanceUID != "" {
			if _, ok := imageIDs[ref.InstanceUID]; !ok {
				imageIDs[ref.InstanceUID] = ref.InstanceUID
				provider.Set(metadata.ModuleImagePlane, ref.InstanceUID, &metadata.ImagePlane{})
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return provider, imageIDs
}

func errorOutput(path, diagnostics string, start time.Time) ReportOutput {
	return ReportOutput{
		File: path,
		Issues: []sr.Issue{{
			Severity:    sr.SeverityError,
			Code:        sr.IssueDecodeFailed,
			Diagnostics: diagnostics,
		}},
		Duration: time.Since(start).Round(time.Microsecond).String(),
	}
}

func printTextResult(output ReportOutput, config *Config) {
	fmt.Printf("== %s ==\n", output.File)
	fmt.Printf("Annotations: %d\n", output.Annotations)

	kinds := make([]string, 0, len(output.ByToolKind))
	for kind := range output.ByToolKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("  %-15s %d\n", kind, output.ByToolKind[kind])
	}

	for _, record := range output.Records {
		label := record.Label
		if label == "" {
			label = "(unlabeled)"
		}
		fmt.Printf("  - %s %s, %d point(s)", record.ToolName, label, record.Points)
		for _, m := range record.Measurements {
			fmt.Printf(", %s=%.2f %s", m.Concept.Meaning, m.Value, m.Unit.Value)
		}
		fmt.Println()
	}

	if len(output.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, issue := range output.Issues {
			if config.Quiet && !issue.IsError() {
				continue
			}
			fmt.Printf("  %s\n", issue.String())
		}
	}

	fmt.Printf("Duration: %s\n\n", output.Duration)
}
