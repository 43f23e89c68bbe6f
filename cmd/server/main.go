package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nulzo/model-relay/internal/analytics"
	"github.com/nulzo/model-relay/internal/audit"
	"github.com/nulzo/model-relay/internal/cli"
	"github.com/nulzo/model-relay/internal/config"
	"github.com/nulzo/model-relay/internal/platform/logger"
	"github.com/nulzo/model-relay/internal/platform/otel"
	"github.com/nulzo/model-relay/internal/relay"
	"github.com/nulzo/model-relay/internal/routing"
	"github.com/nulzo/model-relay/internal/server"
	"github.com/nulzo/model-relay/internal/store/sqlite"
	"github.com/nulzo/model-relay/internal/version"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("model-relay", pflag.ExitOnError)
	config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "Print the version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Name, version.Version)
		return
	}

	loader, err := config.NewLoader(fs)
	if err != nil {
		logger.Get().Fatal("Failed to prepare configuration", zap.Error(err))
	}
	cfg, err := loader.Load()
	if err != nil {
		logger.Get().Fatal("Failed to load configuration", zap.Error(err))
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	logCfg.Format = cfg.Log.Format
	logger.Initialize(logCfg)
	log := logger.Get()
	defer logger.Sync()

	if cfg.Log.Format == "console" {
		fmt.Print(cli.Banner(version.Name, version.Version))
	}

	if !cfg.Server.HTTPMode {
		cert, key := cfg.Certificates()
		if err := server.CheckCertificates(cert, key); err != nil {
			log.Error("Cannot start in HTTPS mode", zap.Error(err))
			log.Info("Generate a certificate for the domain, or pass --http-mode to serve plain HTTP")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer(cfg.Tracing.ServiceName, version.Version, log, os.Stdout)
		if err != nil {
			log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	var rec audit.Recorder = audit.Nop{}
	if cfg.Server.Debug {
		var auditClosers []io.Closer
		rec, auditClosers, err = buildAudit(cfg.Audit, log)
		if err != nil {
			log.Fatal("Failed to open audit trail", zap.Error(err))
		}
		closers = append(closers, auditClosers...)
	}

	deps := server.Deps{}
	if cfg.Store.Enabled {
		repo, err := sqlite.NewSQLiteStorage(cfg.Store.DSN, log)
		if err != nil {
			log.Fatal("Failed to open request journal", zap.Error(err))
		}
		closers = append(closers, repo)

		ingestor := analytics.NewIngestor(log, repo, analytics.IngestorOptions{})
		ingestor.Start(ctx)
		defer ingestor.Stop()

		deps.Journal = ingestor
		deps.Analytics = analytics.NewService(repo)
	}

	tables := routing.NewStore(cfg.Table())
	printSummary(cfg, log)

	if cfg.File != "" {
		loader.Watch(log, func(next *config.Config) {
			tables.Swap(next.Table())
			logger.SetLevel(next.LogLevel())
			printSummary(next, log)
		})
	}

	dispatcher := relay.NewDispatcher(nil, relay.DefaultTimeout, log)
	deps.Engine = relay.NewEngine(tables, dispatcher, relay.Options{GlobalStream: cfg.GlobalStream()}, log, rec)
	deps.Tables = tables

	if cfg.Version.Check {
		version.CheckInBackground(ctx, cfg.Version.URL, log)
	}

	log.Info("Starting proxy server", zap.Int("port", cfg.Server.ListenPort()))
	if err := server.New(cfg, log, deps).Run(ctx); err != nil {
		log.Error("Server stopped", zap.Error(err))
	}
}

// buildAudit opens the configured audit sinks.
func buildAudit(cfg config.AuditConfig, log *zap.Logger) (audit.Recorder, []io.Closer, error) {
	var (
		recs    audit.Multi
		closers []io.Closer
	)

	if cfg.Sink == "file" || cfg.Sink == "both" {
		f, err := audit.NewFileRecorder(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, f)
		closers = append(closers, f)
		log.Info("Debug audit trail enabled", zap.String("file", cfg.File))
	}

	if cfg.Sink == "redis" || cfg.Sink == "both" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		r := audit.NewRedisRecorder(client, audit.RedisOptions{
			Key:    cfg.Redis.Key,
			MaxLen: cfg.Redis.MaxLen,
		}, log)
		recs = append(recs, r)
		closers = append(closers, r)
		log.Info("Debug audit trail enabled", zap.String("redis", cfg.Redis.Addr), zap.String("key", cfg.Redis.Key))
	}

	return recs, closers, nil
}
