// Package bootstrap runs one wmorder command with its components.
//
// An App owns the typed configuration, the logger and a component registry.
// RunTask starts every registered component, runs the task under a context
// that SIGINT and SIGTERM cancel, and stops the components in reverse order
// afterwards, even when the task failed.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(store)
//	return app.RunTask(ctx, orchestrator.Build)
package bootstrap
