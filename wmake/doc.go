// Package wmake invokes the OpenFOAM wmake tool for one unit at a time.
//
// Invoker implements dag.Invoker. By default it runs "wmake <args> <dir>";
// with Chdir set it runs "wmake <args>" inside the unit directory. Builds run
// in their own process group and are terminated with SIGTERM, then SIGKILL
// after the grace period, when the run is canceled.
package wmake
