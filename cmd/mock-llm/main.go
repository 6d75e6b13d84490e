// Package main implements an offline model server for ampdesign demos and
// end-to-end runs. It answers OpenAI-compatible /v1/chat/completions
// requests from fixture files, routing by the "model" field.
//
// Usage:
//
//	mock-llm --fixtures ./fixtures --addr :11434
//
// A fixture file is named after the model it answers for ("mock-coder.md"
// answers model "mock-coder"); its content is returned verbatim as the
// assistant message. Numbered files ("mock-coder.1.md", "mock-coder.2.md")
// answer the first, second, ... call, after which the base file repeats.
// "default.*" answers any model without fixtures of its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fixtureDir string
		addr       string
	)
	cmd := &cobra.Command{
		Use:          "mock-llm",
		Short:        "Serve canned chat completions for ampdesign",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixtureDir == "" {
				fixtureDir = os.Getenv("MOCK_LLM_FIXTURES")
			}
			if fixtureDir == "" {
				return errors.New("--fixtures or MOCK_LLM_FIXTURES is required")
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures: %w", err)
			}
			for model, seq := range fixtures {
				logger.Info("Loaded fixtures", "model", model, "count", len(seq))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, newServer(fixtures, logger), logger)
		},
	}
	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "directory containing fixture response files")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:11434", "listen address")
	return cmd
}

func serve(ctx context.Context, addr string, s *server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Mock model server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
