// Package policy provides Open Policy Agent (OPA) admission control for
// solve requests.
//
// Every request that passes structural validation is handed to the policy
// engine as a flat input document using the request's JSON field names, with
// defaults already applied:
//
//	{
//	  "method": "newton", "functionType": "polynomial",
//	  "tolerance": 1e-6, "maxIterations": 100,
//	  "a": 1, "b": 2, "x0": 1.5, "x1": 2,
//	  "plotXMin": 0, "plotXMax": 3, "sampleCount": 200
//	}
//
// Each policy defines a deny set. Elements are either strings or objects
// with "message" and an optional "severity" of "error" or "warning".
// Error-severity violations reject the request; warnings are returned to the
// caller as notices.
//
// # Built-in Policies
//
//   - iteration-budget: maxIterations above data.rootfind.limits.maxIterations
//   - sample-budget: sampleCount above data.rootfind.limits.maxSampleCount
//   - plot-domain: plot window wider than data.rootfind.limits.maxPlotSpan
//   - tolerance-floor (warning): tolerance below data.rootfind.limits.minTolerance
//
// The limits document lives in an in-memory OPA store built from Limits.
//
// # Custom Policies
//
//	eng, err := policy.NewEngine(logger, policy.WithLimits(limits))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.LoadPolicies(ctx, []string{"/etc/rootfind/policies"}); err != nil {
//	    log.Fatal(err)
//	}
//
// A custom policy file:
//
//	# Newton must start inside the plot window.
//	package rootfind.policies.newton_start
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.method == "newton"
//	    input.x0 < input.plotXMin
//	    violation := {"message": "x0 lies left of the plot window", "severity": "error"}
//	}
//
// Bare .rego files default to warning severity and are named after the
// file. JSON and YAML definitions carry name, description, severity and rego
// fields. Watch reloads the loaded paths on change; a reload that fails to
// compile keeps the previous policy set.
package policy
