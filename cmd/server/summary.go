package main

import (
	"fmt"

	"github.com/nulzo/model-relay/internal/cli"
	"github.com/nulzo/model-relay/internal/config"
	"go.uber.org/zap"
)

// printSummary lists the routing table the relay is about to serve.
func printSummary(cfg *config.Config, log *zap.Logger) {
	table := cfg.Table()

	if table.Multi() {
		log.Info("Multi-backend mode enabled", zap.Int("apis", table.Len()), zap.String("file", cfg.File))
		for _, r := range table.Routes() {
			if cfg.Log.Format == "console" {
				fmt.Println(cli.RouteLine(r.Name, r.Active, r.Endpoint, r.ExposedModelID, r.StreamOverride.String()))
				continue
			}
			log.Info("Route",
				zap.String("name", r.Name),
				zap.Bool("active", r.Active),
				zap.String("endpoint", r.Endpoint),
				zap.String("exposed_model", r.ExposedModelID),
				zap.String("target_model", r.UpstreamModelID),
				zap.Stringer("stream", r.StreamOverride),
			)
		}
		if len(table.ExposedModels()) == 0 {
			log.Warn("No active API configuration, requests will use the first entry or the default backend")
		}
	} else {
		def := table.Default()
		log.Info("Single backend mode",
			zap.String("target_api", def.Endpoint),
			zap.String("custom_model", def.ExposedModelID),
			zap.String("target_model", def.UpstreamModelID),
		)
	}

	log.Info("Relay settings",
		zap.Stringer("stream_mode", cfg.GlobalStream()),
		zap.Bool("debug", cfg.Server.Debug),
		zap.Bool("http_mode", cfg.Server.HTTPMode),
	)
}
