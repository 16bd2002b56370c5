package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"regportal/internal/backend"
	"regportal/internal/config"
	"regportal/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		cfg config.Backend
		log *logrus.Logger
	)
	cmd := &cobra.Command{
		Use:          "backend",
		Short:        "Registration REST backend",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv()
			cfg = config.LoadBackend()
			log = config.NewLogger(cfg.Env, cfg.LogLevel)
			if config.IsProduction(cfg.Env) {
				gin.SetMode(gin.ReleaseMode)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, log)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, log)
		},
	}, &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := store.NewDB(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := backend.NewPostgresStore(db.Client).Migrate(ctx); err != nil {
				return err
			}
			log.Info("schema is up to date")
			return nil
		},
	})
	return cmd
}

func run(ctx context.Context, cfg config.Backend, log *logrus.Logger) error {
	health := map[string]func(context.Context) bool{}

	var st backend.Store
	switch cfg.StoreBackend {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := backend.NewPostgresStore(db.Client)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		health["db"] = db.Healthy
		st = pg
		log.Info("using postgres store")
	case "memory":
		st = backend.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		return errors.Errorf("unknown BACKEND_STORE %q", cfg.StoreBackend)
	}

	var photos backend.PhotoStore
	switch cfg.PhotoBackend {
	case "minio", "s3":
		mp, err := backend.NewMinioPhotos(backend.MinioOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			BaseURL:   cfg.PhotoBaseURL,
		})
		if err != nil {
			return err
		}
		if err := mp.EnsureBucket(ctx); err != nil {
			return err
		}
		photos = mp
		log.WithField("bucket", cfg.S3Bucket).Info("using object storage for photos")
	case "cloudinary":
		cp, err := backend.NewCloudinaryPhotos(backend.CloudinaryOptions{
			CloudName: cfg.CloudinaryCloud,
			APIKey:    cfg.CloudinaryKey,
			APISecret: cfg.CloudinarySecret,
			Folder:    cfg.CloudinaryFolder,
		})
		if err != nil {
			return err
		}
		photos = cp
		log.WithField("cloud", cfg.CloudinaryCloud).Info("using cloudinary for photos")
	case "memory":
		photos = backend.NewMemoryPhotos()
	default:
		return errors.Errorf("unknown PHOTO_STORE %q", cfg.PhotoBackend)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := backend.NewServer(st, photos, backend.Options{
		JWTIssuer:       cfg.JWTIssuer,
		JWTSigningKey:   cfg.JWTSigningKey,
		AccessTTL:       cfg.AccessTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  splitList(cfg.AllowedOrigins),
		Gatherer:        reg,
		Health: func(ctx context.Context) map[string]bool {
			out := make(map[string]bool, len(health))
			for name, check := range health {
				out[name] = check(ctx)
			}
			return out
		},
	}, log)
	if err := srv.EnsureAdmin(ctx, cfg.BootstrapName, cfg.BootstrapEmail, cfg.BootstrapPass); err != nil {
		return errors.Wrap(err, "bootstrap admin")
	}

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("starting backend")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down backend")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}
	log.Info("backend exited")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
