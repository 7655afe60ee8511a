// Package process runs external commands in their own process group.
//
// Cancellation sends SIGTERM to the whole group and SIGKILL after the grace
// period, so a build tool's child compilers stop with it. Output is kept as
// a bounded tail per stream and can also be streamed live.
//
//	runner := process.NewRunner(process.NewAdapter(cfg), retry)
//	res, err := runner.Run(ctx, process.Command{Binary: "wmake", Args: []string{dir}})
package process
