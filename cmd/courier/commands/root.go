package commands

import (
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	envFile    string
	baseURL    string
	verbose    bool
}

// NewRootCommand builds the courier command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Typed HTTP request runner",
		Long: `courier executes one request against a base URL and prints the decoded
result. Transport, retry and decoding behavior come from the config file
and can be overridden per call with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./courier.yml or ./config.yml)")
	flags.StringVar(&opts.envFile, "env-file", "", ".env file applied before environment overrides")
	flags.StringVarP(&opts.baseURL, "base-url", "u", "", "base URL requests are resolved against")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(
		newRequestCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return cmd
}
