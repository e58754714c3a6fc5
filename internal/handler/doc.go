// Package handler exposes the HTTP health probe endpoints used by container
// orchestration: /health for liveness and /ready for collaborator and state
// file readiness. Probes are read-only.
package handler
