// Package app provides application wiring and the poll cycle orchestrator.
//
// The App type wires configuration, state files, collaborator adapters and
// the announcement pipeline together. The Orchestrator runs one cycle at a
// time (fetch, classify, aggregate, emit, persist) under a busy flag shared
// with the administrative commands, and Commands exposes the check, status,
// reset and healthcheck operations through the chat platform.
package app
