// Package locate finds wmake units under a project root and answers which
// unit produces a given library.
//
// The tree is walked once per run; lookups afterwards are map reads.
// Candidate order is lexical so that results do not depend on the order
// the filesystem returns directory entries in.
package locate
