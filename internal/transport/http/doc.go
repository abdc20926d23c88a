// Package http implements the HTTP surface of the pipeline. Handlers are a
// thin layer over internal/services: they parse and validate requests, call
// the service and render JSON with chi/render. Errors are converted to
// {status_code, error_code, message} bodies by internal/errors.
//
// Routes:
//
//	GET  /healthz            process and store health
//	GET  /metrics            Prometheus exposition
//	GET  /api/runs           recorded runs, newest first (?limit=)
//	POST /api/runs           trigger a run; concurrent triggers share one run
//	GET  /api/runs/latest    the most recent run
//	GET  /api/runs/{id}      one recorded run
//	GET  /api/panel          latest panel rows (?location=&from=&to=&format=csv)
//	GET  /api/diagnostics    diagnostics of the latest run
//	GET  /api/locations      location metadata (?aggregates=false)
//	GET  /api/operations     runs currently executing
package http
