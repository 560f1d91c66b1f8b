package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/config"
	"github.com/dgallion1/acadwrite/internal/llm"
	"github.com/dgallion1/acadwrite/internal/preview"
	"github.com/dgallion1/acadwrite/internal/rag"
	"github.com/dgallion1/acadwrite/internal/store"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

// app holds the clients a command needs.
type app struct {
	cfg config.Config
	log *slog.Logger

	ragClient *rag.Client
	rag       workflow.RAG
	llm       *llm.Client // nil when no LLM is configured
	cache     *store.Cache
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// connect builds the RAG client, wrapped in the query cache when
// configured, and the LLM client when enabled.
func connect(cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	a.ragClient = rag.NewClient(cfg.FileIntel.URL, cfg.FileIntel.APIKey, rag.Options{
		Timeout:      cfg.FileIntel.Timeout,
		PollInterval: cfg.FileIntel.PollInterval,
		MaxRetries:   cfg.FileIntel.MaxRetries,
		Log:          log,
	})
	a.rag = a.ragClient

	if cfg.Cache.Path != "" {
		if dir := filepath.Dir(cfg.Cache.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
		cache, err := store.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			a.ragClient.Close()
			return nil, fmt.Errorf("open query cache: %w", err)
		}
		a.cache = cache
		a.rag = store.NewCachedRAG(a.ragClient, cache, log)
		log.Debug("query cache enabled", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL)
	}

	if cfg.LLMEnabled() {
		a.llm = llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, log)
	}
	return a, nil
}

// setup loads the config and connects the clients.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return connect(cfg, newLogger(cmd.ErrOrStderr()))
}

// completer returns the LLM client as an interface, nil when disabled.
func (a *app) completer() workflow.Completer {
	if a.llm == nil {
		return nil
	}
	return a.llm
}

// collection prefers the flag, then the configured default.
func (a *app) collection(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.FileIntel.Collection != "" {
		return a.cfg.FileIntel.Collection, nil
	}
	return "", fmt.Errorf("collection is required (--collection or ACADWRITE_COLLECTION)")
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("close query cache", "error", err)
		}
	}
	a.ragClient.Close()
	if a.llm != nil {
		a.llm.Close()
	}
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// emit writes text to output when set, otherwise prints it, rendered for
// the terminal when render is true.
func emit(cmd *cobra.Command, output, text string, render bool) error {
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved to %s\n", output)
		if !render {
			return nil
		}
	}
	if render {
		r, err := preview.New(preview.DefaultWidth)
		if err != nil {
			return err
		}
		out, err := r.Render(text)
		if err != nil {
			return err
		}
		text = out
	}
	_, err := io.WriteString(cmd.OutOrStdout(), text)
	return err
}
