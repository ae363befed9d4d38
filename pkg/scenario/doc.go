// Package scenario runs Starlark scripts that drive the solve engine.
//
// Scripts get four built-ins on top of the Starlark universe:
//
//	solve(method, function, tolerance=, max_iterations=, a=, b=, x0=, x1=,
//	      plot_x_min=, plot_x_max=, sample_count=)
//	compare(function, ...same keyword arguments...)
//	functions()
//	methods()
//
// solve returns the response envelope as a dict using its JSON keys, and
// compare returns a dict keyed by method name. A request rejected by
// validation or admission policy comes back as
// {"success": False, "rejected": True, "class": ..., "code": ..., "error": ...}
// so a sweep can carry on; internal errors abort the script.
//
// A sweep over tolerances:
//
//	def sweep(fn):
//	    return [solve("bisection", fn, tolerance = t)["iterations"] for t in [1e-2, 1e-4, 1e-6]]
//
//	counts = sweep("trigonometric")
//
// Public globals left by the script are returned in Result.Output. Runs are
// bounded by a wall-clock timeout and optionally by an execution step cap.
package scenario
