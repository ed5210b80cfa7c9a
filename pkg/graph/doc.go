// Package graph defines the document graph types for Lignin.
// A document is a DAG of operation nodes keyed by integer id. Parts are
// exposed to the scene through roots; everything below a root is shared
// structure that mutators edit in place.
package graph
