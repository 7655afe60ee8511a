// Package app wires the wmorder pipeline together.
//
// Config is the full configuration tree. Orchestrator scans the project
// root for units, builds the dependency graph from the target, derives the
// plan and runs the scheduler against the build tool, recording each run in
// the history store when one is configured.
package app
