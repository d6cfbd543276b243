// Package fieldforge provides an authoring and compilation pipeline for
// volumetric 3D models expressed as implicit function graphs.
//
// The core lives in subpackages; import them directly:
//
//	import "github.com/fieldforge/fieldforge/dirgraph"  // directed-graph substrate
//	import "github.com/fieldforge/fieldforge/nodes"     // typed graph model, validator, flattener, extractor
//	import "github.com/fieldforge/fieldforge/expr"      // expression <-> graph bridge
//	import "github.com/fieldforge/fieldforge/graphio"   // JSON projection and importer
//	import "github.com/fieldforge/fieldforge/service"   // document and external operation surface
//
// A typical pipeline builds or imports an assembly of function models,
// validates it, flattens it into a single self-contained model, and hands
// the result to a downstream kernel generator in topological order.
package fieldforge

// Version is the library version, overridden at release time.
const Version = "0.3.0"
