// Package plan turns a dependency graph into a printable build plan: the
// single worker build order, the dependency levels and a blake3 digest of
// the order and its edges.
package plan
