// Package server exposes the root-finding engine as a JSON HTTP API.
//
// Routes:
//
//	POST /api/solve        SolveRequest -> Envelope
//	POST /api/compare      SolveRequest -> Comparison (method ignored)
//	GET  /api/functions    registered functions with their defaults
//	GET  /api/methods      method metadata
//	GET  /api/sample       ?function=&xmin=&xmax=&count=
//	GET  /api/runs         ?limit=&offset=&method=&function=&success=
//	GET  /api/runs/{id}    one run with its iteration trace
//	GET  /api/stats        per method and function aggregates
//	GET  /healthz          liveness plus store health
//	GET  /metrics          Prometheus exposition
//
// A solver that fails mathematically still answers 200 with success false.
// Configuration errors answer 400, policy rejections 422 and everything
// else 500, each with a body of the form
//
//	{"success": false, "error": "...", "class": "...", "code": "..."}
package server
