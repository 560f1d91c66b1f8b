package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/api"
	"github.com/dgallion1/acadwrite/internal/chunker"
	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/config"
	"github.com/dgallion1/acadwrite/internal/pipeline"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

			a, err := connect(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(parent context.Context, a *app) error {
	cfg, log := a.cfg, a.log
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	style, err := citation.ParseStyle(cfg.Writing.CitationStyle)
	if err != nil {
		return err
	}
	worker := pipeline.NewWorker(a.rag, a.completer(), log, pipeline.Defaults{
		Collection:    cfg.FileIntel.Collection,
		CitationStyle: style,
		ContextLines:  cfg.Writing.ContextLines,
		Concurrency:   cfg.Writing.MarkerConcurrency,
		Strict:        cfg.Writing.StrictMarkers,
		Temperature:   cfg.LLM.Temperature,
		Chunking: chunker.Config{
			TargetTokens: cfg.Writing.ChunkTargetTokens,
			MaxTokens:    cfg.Writing.ChunkMaxTokens,
		},
	})
	orch := pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  cfg.Server.WorkerCount,
		MaxQueueSize: cfg.Server.MaxQueueSize,
		JobTTL:       cfg.Server.JobTTL,
	}, worker, log)
	orch.Start(ctx)

	var llmClient api.LLM
	if a.llm != nil {
		llmClient = a.llm
	}
	srv := api.NewServer(orch, a.rag, llmClient, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("starting acadwrite",
		"port", cfg.Server.Port,
		"workers", cfg.Server.WorkerCount,
		"llm", cfg.LLMEnabled(),
		"cache", cfg.Cache.Path != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
