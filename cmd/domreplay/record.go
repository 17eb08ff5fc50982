package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/domreplay"
	"github.com/hazyhaar/domreplay/internal/admin"
	"github.com/hazyhaar/domreplay/internal/metrics"
)

var configPath string

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the pages of a configuration file",
	Long: `Record every page listed in the configuration until its duration
elapses or the process is interrupted. When admin.addr is set, the admin
server exposes /healthz, /metrics and the spooled segments.

Example:
  domreplay record -c domreplay.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := domreplay.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		sinks, err := domreplay.BuildSinks(cfg.Sinks, logger)
		if err != nil {
			return err
		}
		defer sinks.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		s := domreplay.NewSession(cfg, sinks,
			domreplay.WithMetrics(metrics.New(reg)),
			domreplay.WithTracer(otel.Tracer("github.com/hazyhaar/domreplay")),
			domreplay.WithLogger(logger),
		)
		defer s.Close()

		ctx := cmd.Context()
		if cfg.Admin.Addr == "" {
			return s.Run(ctx)
		}

		g, gctx := errgroup.WithContext(ctx)
		cfgAdmin := admin.Config{
			Gatherer: reg,
			Status:   func() any { return s.Status() },
			Logger:   logger,
		}
		if sinks.Spool != nil {
			cfgAdmin.Segments = sinks.Spool
		}
		g.Go(func() error {
			return admin.Serve(gctx, cfg.Admin.Addr, admin.Handler(cfgAdmin), logger)
		})
		g.Go(func() error {
			err := s.Run(gctx)
			// The admin server keeps serving the spool until interrupted.
			<-gctx.Done()
			return err
		})
		return g.Wait()
	},
}

func init() {
	recordCmd.Flags().StringVarP(&configPath, "config", "c", "domreplay.yaml", "path to the YAML configuration")
}
