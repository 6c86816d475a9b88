// Package domain defines the core relay types and interfaces.
//
// Concept-oriented files (event.go, connection.go, eventlog.go, errors.go) hold
// shared types and cross-cutting interfaces. No implementation code - just contracts.
// Keeps adapters and the app layer free of circular imports.
package domain
