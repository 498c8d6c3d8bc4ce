// Package datamap is the query-scoping and persistence-command core. It
// lets repository code persist and query typed entities against a document
// store without writing store-native query syntax: ScopedQuery composes an
// immutable chain of filter, projection and ordering operations over one
// collection; Command executes a single mutating operation against a scope
// behind a uniform error-translation boundary; Adapter owns the connection
// and ties the two together with the configured collection mappings.
//
// ScopedQuery values are pure: every chain operation returns a new value
// and never mutates its receiver, so a scope may be shared and extended
// independently by multiple callers. Only terminal operations (Insert,
// Update, Delete, Materialize, Count) touch the connection.
package datamap
