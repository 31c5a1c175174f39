// Package engine runs compiled rule scripts over documents.
//
// A run applies every rule of a script to one document, in declaration
// order, and produces a Result: the rule applications, one MatchRecord per
// finished match, and the spans the actions created or removed.
//
// # Identity
//
// Runs are stamped with a seq from the store (one past the largest stored
// run) and an ID from the run ID generator (UUIDv7 by default). Match IDs
// are derived from the run ID ("<run>-1", "<run>-2", ...) so they are unique
// across runs and stable under replay.
//
// A run also records the hash of the script source and of the document's
// initial text and spans. Replay refuses to compare a run against a
// different script or document.
//
// # Persistence
//
// With a store attached, a successful run is written in one transaction.
// A run whose application failed is returned with its partial result and
// is not persisted.
package engine
