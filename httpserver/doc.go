// Package httpserver runs the ceremony coordinator's HTTP server.
//
// Besides the routes contributed by handlers, the server exposes:
//   - GET /livez - liveness probe
//   - GET /readyz - readiness probe, 503 while draining
//   - GET /drain and GET /undrain - toggle readiness for load balancers
//   - /debug/pprof - when EnablePprof is set
//
// Every request is logged through the configured slog logger.
package httpserver
