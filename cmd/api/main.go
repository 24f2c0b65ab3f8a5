//	@title			docgate API
//	@version		1.0
//	@description	Upload, list and delete documents in S3-compatible object storage.
//
//	@host		localhost:5000
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docgate/service/docs/swagger"
	"github.com/docgate/service/internal/config"
	"github.com/docgate/service/internal/document"
	"github.com/docgate/service/internal/storage"
)

const metricsNamespace = "docgate"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile, port string

	cmd := &cobra.Command{
		Use:          "docgate",
		Short:        "HTTP gateway for storing documents in S3-compatible object storage",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides PORT")
	return cmd
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogFormat == "json" || cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// logConfigSource reports where configuration came from.
func logConfigSource(log logrus.FieldLogger, cfg *config.Config) {
	if cfg.EnvFile == "" {
		log.Info("no .env file found, reading from environment")
		return
	}
	log.WithField("file", cfg.EnvFile).Info("loaded env file")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	logConfigSource(log, cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	observer, err := storage.NewPrometheusObserver(metricsNamespace, reg)
	if err != nil {
		return err
	}
	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	// Wire dependencies: storage → service → handler
	svc := document.NewService(storage.Instrumented(backend, observer), cfg, log)
	if err := svc.EnsureDefaultBucket(ctx); err != nil {
		return fmt.Errorf("ensure default bucket %q: %w", cfg.Storage.Bucket, err)
	}

	router, err := newRouter(log, reg, document.NewHandler(svc))
	if err != nil {
		return err
	}

	swagger.SwaggerInfo.Host = "localhost:" + cfg.Port

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"env":     cfg.AppEnv,
			"driver":  cfg.Storage.Driver,
			"bucket":  cfg.Storage.Bucket,
			"swagger": "http://localhost:" + cfg.Port + "/swagger/",
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited")
		return err
	}
	log.Info("server stopped")
	return nil
}
