// Package version reports the wmorder build: the version, git commit and
// build time set through -ldflags, completed from the module build info.
package version
