// Package domain holds the core types of the engine: parsed flows and their
// instruction trees, execution positions, suspension records, conversation
// contexts and persisted message records.
//
// Everything in this package is plain data. Behavior lives in pkg/parser,
// internal/interpreter and pkg/persistence; external collaborators are
// abstracted behind pkg/ports.
package domain
