package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tinypal/internal/assets"
	"tinypal/internal/config"
	"tinypal/internal/httpapi"
	"tinypal/internal/service"
	"tinypal/internal/store"
	"tinypal/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.FromEnv()
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("load env files failed", "error", err)
	}

	host := flag.String("host", cfg.ListenHost, "server listen host, e.g. 0.0.0.0")
	port := flag.Int("port", cfg.ListenPort, "server listen port, e.g. 8080")
	flag.Parse()
	cfg.ListenHost = strings.TrimSpace(*host)
	cfg.ListenPort = *port

	logger.Info("tinypal config", "config", cfg)

	st, err := store.NewByEngine(cfg.StoreEngine, cfg.DataFile)
	if err != nil {
		logger.Error("init store failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	client, err := upstream.NewClient(upstream.Config{
		BaseURL:  cfg.APIBaseURL,
		ModuleID: cfg.ModuleID,
		Timeout:  cfg.APITimeout,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("init upstream client failed", "error", err)
		os.Exit(1)
	}

	svc := service.New(st, client, service.Config{
		ParentID: cfg.ParentID,
		ChildID:  cfg.ChildID,
		ModuleID: client.ModuleID(),
		Topic:    cfg.Topic,
		Logger:   logger,
	})

	opts := httpapi.Options{Images: client.Images(), Logger: logger}
	if uploader := initUploader(cfg, logger); uploader != nil {
		opts.Uploader = uploader
	}
	router := httpapi.NewRouter(httpapi.NewHandler(svc, opts))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("tinypal backend listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func initUploader(cfg config.Config, logger *slog.Logger) *assets.Uploader {
	uploader, err := assets.NewUploader(assets.Config{
		SecretID:   cfg.COSSecretID,
		SecretKey:  cfg.COSSecretKey,
		Region:     cfg.COSRegion,
		BucketName: cfg.COSBucketName,
	})
	if err != nil {
		if errors.Is(err, assets.ErrUploadUnavailable) {
			logger.Info("image upload disabled, object storage not configured")
		} else {
			logger.Error("init image uploader failed", "error", err)
		}
		return nil
	}
	logger.Info("image upload enabled", "bucket", cfg.COSBucketName, "region", cfg.COSRegion)
	return uploader
}
