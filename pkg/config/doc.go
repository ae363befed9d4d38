// Package config loads rootfind service configuration and request batches.
//
// Documents may be written in CUE, JSON or YAML. Each is unified with a
// built-in CUE schema that fixes the shape, bounds every numeric setting and
// supplies defaults, so an empty document is a complete configuration:
//
//	server: address: ":9090"
//	solver: defaultTolerance: 1e-8
//	policy: {
//		paths: ["/etc/rootfind/policies"]
//		watch: true
//		limits: maxIterations: 5000
//	}
//
// After decoding, ROOTFIND_ADDRESS, ROOTFIND_STORE_PATH and
// ROOTFIND_LOG_LEVEL override the file, and struct tags are checked with
// go-playground/validator. Problems are reported as a *LoadError carrying
// file positions where CUE provides them.
//
// Batch files hold a list of solve requests checked against #Request:
//
//	requests: [
//		{method: "bisection", functionType: "polynomial", a: 1, b: 2},
//		{method: "newton", functionType: "trigonometric", x0: 0.5},
//	]
package config
