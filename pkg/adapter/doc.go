// Package adapter defines the contract between the data-mapping core and
// concrete store drivers: the Connection interface a driver must satisfy,
// the write operation and acknowledgement types carried across it, the
// stable error taxonomy callers pattern-match on, and the process-wide
// driver registry.
//
// The core never speaks a store's native protocol. It hands a driver an
// opaque dataset expression (pkg/query) and receives wire records
// (pkg/mapping) back; everything store-specific, including pooling and
// retry behavior, lives behind this boundary.
package adapter
