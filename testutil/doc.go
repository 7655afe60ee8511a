// Package testutil holds fixtures shared by the wmorder tests: unit trees
// written to temporary directories, a recording build invoker, and a helper
// that starts a component for the duration of a test.
package testutil
