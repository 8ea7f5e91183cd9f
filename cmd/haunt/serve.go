package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/server"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			p, m, err := newPipeline(ctx, cfg, reg)
			if err != nil {
				return err
			}
			srv := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				MaxUploadBytes: cfg.MaxUploadBytes(),
			}, p, m, reg, logger.FromContext(ctx))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
