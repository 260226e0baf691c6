package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/courier/bootstrap"
	"github.com/kbukum/courier/httpbintest"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local httpbin fake until interrupted",
		Long: `serve runs the httpbin-compatible fake used by the test suite, so
requests can be tried without network access:

  courier serve --addr 127.0.0.1:8080 &
  courier request /get -u http://127.0.0.1:8080 -k url`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &ServeConfig{}
			if err := global.load(cfg); err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cmd.Context(), cfg, func(bound string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "httpbin listening on http://%s\n", bound)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	return cmd
}

// runServe serves until ctx is cancelled or the process is interrupted.
// ready receives the bound address.
func runServe(ctx context.Context, cfg *ServeConfig, ready func(addr string)) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	srv := httpbintest.NewComponent(cfg.Addr, app.Logger)
	if err := app.RegisterComponent(srv); err != nil {
		return err
	}
	if ready != nil {
		app.OnStart(func(context.Context) error {
			ready(srv.Addr())
			return nil
		})
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}
