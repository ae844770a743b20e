package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/api"
	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/imagegen"
	"github.com/ivlev/faceless/internal/llm"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/pipeline"
	"github.com/ivlev/faceless/internal/system"
	"github.com/ivlev/faceless/internal/video"
	"github.com/ivlev/faceless/internal/voice"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "Listen address")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.BuildVersion = version
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *debug {
		cfg.Debug = true
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(false); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	system.InitResourceLimits(logger)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.VideoEncoder == "" || cfg.VideoEncoder == "auto" {
		cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
	}

	var completer pipeline.Completer
	var images imagegen.Generator = imagegen.Placeholder{Width: cfg.Width, Height: cfg.Height}
	if cfg.Credentials.OpenAIKey != "" {
		model, err := llm.NewClient(cfg.Credentials, logger)
		if err != nil {
			return err
		}
		completer = model
		if !cfg.Placeholders {
			images = &imagegen.DallE{API: model, Size: cfg.ImageSize, Quality: cfg.ImageQuality}
		}
	} else {
		logger.Warn("OPENAI_API_KEY is not set, only speech and job status endpoints will work")
	}

	syn := voice.New(cfg, logger)
	runner := func(ctx context.Context, opts pipeline.Options, progress pipeline.Progress) (*pipeline.Result, error) {
		p := pipeline.New(cfg, completer, images, syn, video.NewFFmpegEncoder(cfg), system.FFprobe{}, logger.With(zap.String("run_id", opts.RunID)))
		p.Progress = progress
		return p.Run(ctx, opts)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(ctx, cfg, completer, syn, runner, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("version", cfg.BuildVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
