// Package srreport translates between in-memory imaging annotations and
// DICOM Structured Report documents following template TID 1500
// "Measurement Report".
//
// Serialization groups annotations by source image and tool kind, encodes
// each annotation into a measurement-group subtree through a registered
// tool adapter, and assembles the full document with provenance headers.
// Parsing locates the "Imaging Measurements" section, decodes each
// measurement group independently, and tolerates per-group failures: a
// group that no adapter claims, or whose extraction fails, is logged and
// skipped without aborting its siblings.
//
// # Quick Start
//
//	import (
//	    sr "github.com/godicom/srreport"
//	    "github.com/godicom/srreport/adapters"
//	    "github.com/godicom/srreport/registry"
//	    "github.com/godicom/srreport/report"
//	)
//
//	reg := registry.NewRegistry()
//	adapters.RegisterBuiltins(reg)
//
//	ds, err := report.Assemble(byImage, provider, worldToImage, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := report.Parse(ds, provider, imageIDs, imageToWorld, reg)
//	for tool, annotations := range result.ByToolKind {
//	    ...
//	}
//
// # Architecture
//
// Leaf-first: pkg/code (concept codes and matching), content (the recursive
// content tree and its dataset bridge), metadata (per-image module
// provider), geometry (2-D vs 3-D spatial context resolution), registry
// (tool-kind to adapter mapping with fallback probing), report (assembler,
// parser and the measurement-group codec), adapters (built-in tool codecs).
//
// All operations are synchronous. The registry is safe for concurrent use;
// assembly and parsing hold no cross-call state and may run concurrently on
// independent documents.
package srreport
