// Package component defines the lifecycle interface for run-long resources
// and a registry that starts them in order and stops them in reverse.
package component
