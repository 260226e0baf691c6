// Package bootstrap runs a command-line task with the lifecycle of a
// service: validated config, logger, registered components started before
// the task and stopped after it, and cancellation on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(transport)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    return execute(ctx)
//	})
package bootstrap
