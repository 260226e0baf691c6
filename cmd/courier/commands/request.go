package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/bootstrap"
	"github.com/kbukum/courier/httpclient"
	"github.com/kbukum/courier/logger"
	"github.com/kbukum/courier/observability"
	"github.com/kbukum/courier/reachability"
)

type requestOptions struct {
	method       string
	params       []string
	headers      []string
	files        []string
	bearer       string
	language     string
	keyPath      string
	errorKeyPath string
	output       string
	collection   bool
	retries      int
	timeout      time.Duration
	progress     bool
}

func newRequestCommand(global *globalOptions) *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:     "request PATH",
		Aliases: []string{"req", "get"},
		Short:   "Execute one request and print the decoded result",
		Example: `  courier request /get -u https://httpbin.org -k url
  courier request /users -p results=5 -k results --collection
  courier request /post -X POST -F file=./report.pdf --progress
  courier request /xml -o xml -k slideshow,slide --collection`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &Config{}
			if err := global.load(cfg); err != nil {
				return err
			}
			if cmd.CalledAs() == "get" {
				opts.method = http.MethodGet
			}
			req, err := opts.build(args[0])
			if err != nil {
				return err
			}
			return runRequest(cmd.Context(), cfg, req, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "method", "X", "", "HTTP method (default GET, or POST with files)")
	flags.StringArrayVarP(&opts.params, "param", "p", nil, "parameter key=value, repeat a key for a list")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "header key=value")
	flags.StringArrayVarP(&opts.files, "file", "F", nil, "multipart file field=path")
	flags.StringVar(&opts.bearer, "bearer", "", "bearer token sent as Authorization")
	flags.StringVar(&opts.language, "language", "", "Accept-Language tag, e.g. en-US")
	flags.StringVarP(&opts.keyPath, "keypath", "k", "", "comma or dot separated path to the value to decode")
	flags.StringVar(&opts.errorKeyPath, "error-keypath", "", "path to the message in error bodies")
	flags.StringVarP(&opts.output, "output", "o", formatJSON, "response format: json, xml or raw")
	flags.BoolVar(&opts.collection, "collection", false, "decode the value as a list")
	flags.IntVarP(&opts.retries, "retries", "r", -1, "extra attempts after a transport failure (default from config)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "overall deadline including retries")
	flags.BoolVar(&opts.progress, "progress", false, "report upload progress on stderr")
	return cmd
}

// build turns the flags into a request.
func (o *requestOptions) build(path string) (apiclient.Request, error) {
	req := apiclient.Request{
		Path:         path,
		Method:       strings.ToUpper(o.method),
		ErrorKeyPath: splitKeyPath(o.errorKeyPath),
	}
	if strings.Contains(path, "://") {
		req.Path, req.FullPath = "", path
	}

	params, err := parseParams(o.params)
	if err != nil {
		return req, err
	}
	req.Parameters = params

	files, err := parsePairs("file", o.files)
	if err != nil {
		return req, err
	}
	if len(files) > 0 {
		req.Multipart = files
		if req.Method == "" {
			req.Method = http.MethodPost
		}
	}

	headers, err := o.headerFunc()
	if err != nil {
		return req, err
	}
	req.Headers = headers
	return req, req.Validate()
}

func (o *requestOptions) headerFunc() (apiclient.HeaderFunc, error) {
	static, err := parsePairs("header", o.headers)
	if err != nil {
		return nil, err
	}

	if o.bearer != "" {
		var hopts []apiclient.HeaderOption
		if o.language != "" {
			tag, err := apiclient.ParseLanguage(o.language)
			if err != nil {
				return nil, fmt.Errorf("invalid language %q: %w", o.language, err)
			}
			hopts = append(hopts, apiclient.WithLanguage(tag))
		}
		for k, v := range static {
			hopts = append(hopts, apiclient.WithHeader(k, v))
		}
		return apiclient.BearerHeaders(apiclient.StaticToken(o.bearer), hopts...), nil
	}

	if o.language != "" {
		tag, err := apiclient.ParseLanguage(o.language)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", o.language, err)
		}
		if static == nil {
			static = make(map[string]string)
		}
		static["Accept-Language"] = tag.String()
	}
	if len(static) == 0 {
		return nil, nil
	}
	return func() (map[string]string, error) { return static, nil }, nil
}

func runRequest(ctx context.Context, cfg *Config, req apiclient.Request, opts *requestOptions, stdout, stderr io.Writer) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	transport := httpclient.NewComponent(cfg.HTTP, httpclient.WithLogger(app.Logger))
	reach, err := reachability.ForURL(cfg.Client.BaseURL, reachability.WithLogger(app.Logger))
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(transport); err != nil {
		return err
	}
	if err := app.RegisterComponent(reach); err != nil {
		return err
	}

	metrics, err := setupTelemetry(app)
	if err != nil {
		return err
	}

	var client *apiclient.Client
	app.OnStart(func(context.Context) error {
		c, err := apiclient.NewFromConfig(cfg.Client, transport.Transport(),
			apiclient.WithReachability(reach),
			apiclient.WithLogger(app.Logger),
			apiclient.WithMetrics(metrics),
		)
		client = c
		return err
	})
	app.OnStop(func(context.Context) error {
		if client != nil {
			client.CancelAllRequests()
			client.Close()
		}
		return nil
	})

	return app.RunTask(ctx, func(ctx context.Context) error {
		if opts.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.timeout)
			defer cancel()
		}
		retries := opts.retries
		if retries < 0 {
			retries = cfg.Client.Retries
		}

		var progress apiclient.ProgressFunc
		if opts.progress && len(req.Multipart) > 0 {
			progress = progressPrinter(stderr)
		}

		start := time.Now()
		err := fetch(ctx, client, req, retries, opts, progress, stdout)
		reportOutcome(app.Logger, req, time.Since(start), err)
		return err
	})
}

// setupTelemetry installs the OTLP providers named in the config and returns
// the client instruments. With telemetry disabled the instruments record on
// the global no-op provider.
func setupTelemetry(app *bootstrap.App[*Config]) (*observability.Metrics, error) {
	cfg := app.Cfg
	if cfg.Tracing.Enabled {
		cfg.Client.Tracing = true
		app.OnStart(func(ctx context.Context) error {
			tp, err := observability.InitTracer(ctx, cfg.Tracing, app.Logger)
			if err != nil {
				return err
			}
			app.OnStop(tp.Shutdown)
			return nil
		})
	}
	if cfg.Metrics.Enabled {
		app.OnStart(func(ctx context.Context) error {
			mp, err := observability.InitMeter(ctx, cfg.Metrics, app.Logger)
			if err != nil {
				return err
			}
			app.OnStop(mp.Shutdown)
			return nil
		})
	}
	return observability.NewMetrics(observability.Meter())
}

func progressPrinter(w io.Writer) apiclient.ProgressFunc {
	var mu sync.Mutex
	return func(fraction float64) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\rupload %3.0f%%", fraction*100)
		if fraction >= 1 {
			fmt.Fprintln(w)
		}
	}
}

func reportOutcome(log *logger.Logger, req apiclient.Request, d time.Duration, err error) {
	fields := logger.DurationFields("request", d)
	fields[logger.FieldMethod] = req.HTTPMethod()
	fields["path"] = req.Path
	if err == nil {
		log.Debug("request completed", fields)
		return
	}
	fields[logger.FieldError] = err.Error()
	if code := apiclient.StatusCode(err); code > 0 {
		fields[logger.FieldStatusCode] = code
	}
	log.Debug("request failed", fields)
}
