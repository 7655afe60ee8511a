// Package errors provides the structured error type used across wmorder.
//
// Every failure the tool reports is an *AppError carrying a machine-readable
// code, a human-readable message, an optional cause and the exit status the
// CLI should terminate with.
package errors
