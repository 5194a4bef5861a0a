package cli

import (
	"context"
	"fmt"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"todobot/internal/exitcode"
	"todobot/internal/instrumentation"
	"todobot/internal/line"
	"todobot/internal/server"
)

func newServeCmd(opts Options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Run the LINE webhook server.

Deliveries are verified with the channel secret and each event gets exactly
one reply. Health probes are served on /healthz and /readyz, and metrics on
a separate listener when instrumentation is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, flags)
		},
	}
}

func runServe(ctx context.Context, opts Options, flags *globalFlags) error {
	cfg, err := loadConfig(opts, flags)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return withCode(exitcode.ConfigError, err)
	}

	logger, err := newLogger(cfg, opts.Err)
	if err != nil {
		return withCode(exitcode.ConfigError, err)
	}

	provider, err := instrumentation.NewProvider(ctx, cfg.InstrumentationConfig(opts.Version))
	if err != nil {
		return withCode(exitcode.ConfigError, fmt.Errorf("instrumentation: %w", err))
	}
	metrics := provider.Metrics()

	a, err := newApp(ctx, cfg, logger, metrics)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return err
	}

	replier, err := line.NewReplier(cfg.Line.ChannelAccessToken, cfg.Line.APIEndpoint, nil)
	if err != nil {
		a.Close()
		_ = provider.Shutdown(ctx)
		return withCode(exitcode.ConfigError, err)
	}

	router := a.router(cfg, replier, metrics, opts.Now)
	webhook := line.NewHandler(cfg.Line.ChannelSecret, router, logger)
	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		WebhookPath: cfg.Server.WebhookPath,
	}, webhook, server.NewHealthChecker(a.pinger), metrics, logger)

	ops := map[string]gfshutdown.Operation{
		"webhook-server": srv.Shutdown,
		"telemetry":      provider.Shutdown,
		"backends":       a.Shutdown,
	}

	var g errgroup.Group
	g.Go(srv.Start)
	if provider.ServesPrometheus() {
		ms := server.NewMetricsServer(cfg.Server.MetricsAddr, logger)
		g.Go(ms.Start)
		ops["metrics-server"] = ms.Shutdown
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.Server.ShutdownTimeout, ops)

	serveErr := make(chan error, 1)
	go func() { serveErr <- g.Wait() }()

	select {
	case code := <-wait:
		if err := <-serveErr; err != nil {
			return withCode(exitcode.BackendError, err)
		}
		if code != 0 {
			return withCode(exitcode.BackendError, fmt.Errorf("shutdown finished with code %d", code))
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-serveErr:
		a.Close()
		_ = provider.Shutdown(context.Background())
		if err != nil {
			return withCode(exitcode.BackendError, fmt.Errorf("listen: %w", err))
		}
		return nil
	}
}
