// Package pile is a write-once content store
// layered on top of a minimal key-value/list backend.
//
// A pile holds three kinds of thing.
//
// Data:
// opaque values stored under caller-chosen keys.
// A key can be written only once.
// Its value never changes after that,
// except that it can be redacted (see below).
//
// References:
// named, append-only histories of data keys.
// Adding a reference pushes a key onto the end of a name’s history,
// and the last key in the history is the name’s current value.
// Nothing is ever removed from a history,
// so a reference is a simple version log
// (think of a branch name in a version-control system).
//
// Redactions:
// sometimes data has to go
// (a court order, a leaked password).
// Redacting a key deletes its value
// but first appends a record of the key and the reason for the redaction
// to a permanent, namespace-wide redaction log.
// A later attempt to get the key
// reports that it was redacted and why,
// rather than claiming it never existed.
//
// All of this state lives in a backend implementing the Store interface,
// which needs only six primitive operations:
// set-if-absent, get, append, range, exists, and delete.
// The store subpackage has a registry of implementations
// (memory, Redis, SQLite, Postgres, files, Google Cloud Storage, DynamoDB, gRPC)
// plus wrappers for caching, compression, and logging.
//
// The client never retries and never swallows an error.
// Redaction logs before it deletes,
// so a failure between the two steps leaves a redaction record
// for data that still exists
// (detectable and repairable)
// rather than deleted data with no record
// (neither).
package pile
