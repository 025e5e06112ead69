// Command advault runs the Ad Vault API server.
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

	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/adpipe"
	"github.com/pcarling/advault/internal/analyzer"
	"github.com/pcarling/advault/internal/config"
	"github.com/pcarling/advault/internal/httpserver"
	"github.com/pcarling/advault/internal/media"
	"github.com/pcarling/advault/internal/providers"
	"github.com/pcarling/advault/internal/reconcile"
	"github.com/pcarling/advault/internal/scheduler"
	"github.com/pcarling/advault/internal/storage"
	"github.com/pcarling/advault/internal/tagger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
		if saveErr := cfg.Save(); saveErr != nil {
			logger.Warn("could not write default config", zap.Error(saveErr))
		}
	}

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	mediaMgr := media.NewManager(cfg.Storage.MediaDir)

	llm, err := analyzer.New(cfg.Analysis, cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("configure analyzer: %w", err)
	}

	fx := providers.NewFXTwitter()
	ytdlp := providers.NewYTDLP(cfg.Providers.YTDLPBin)
	engine := reconcile.New(fx, providers.NewVXTwitter(), providers.NewSyndication(), ytdlp, logger)

	fallbacks := []providers.Provider{providers.NewOEmbed()}
	if cfg.Providers.BrowserFallback {
		fallbacks = append(fallbacks, providers.NewBrowser(cfg.Providers.Headless, cfg.Providers.CookieFile))
	}
	engine.WithFallbacks(fallbacks...)

	pipeline := adpipe.New(
		providers.NewVideoResolver(fx, ytdlp),
		mediaMgr,
		adpipe.NewTranscriber(cfg.Pipeline.WhisperBin, cfg.Pipeline.WhisperModel),
		llm,
		media.NewFrameExtractor(cfg.Pipeline.FFmpegBin),
		backend,
		logger,
	)

	srv := httpserver.New(engine, tagger.New(llm, logger), pipeline, backend, mediaMgr, logger)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Handler()}

	if cfg.Cleanup.Enabled {
		sched := scheduler.New(logger)
		err := sched.AddIntervalJob("media-sweep", cfg.Cleanup.IntervalHours, func(ctx context.Context) error {
			referenced, err := backend.ReferencedMedia()
			if err != nil {
				return err
			}
			removed, err := mediaMgr.RemoveOrphans(referenced)
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				logger.Info("removed orphaned media files", zap.Int("count", len(removed)))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("schedule cleanup: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server started", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", zap.Error(err))
		}
	}()

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
