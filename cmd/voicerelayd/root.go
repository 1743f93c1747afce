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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/intellitutor/voicerelay/internal/telemetry"
	"github.com/intellitutor/voicerelay/server"
)

const (
	defaultListenAddr = ":8000"
	shutdownTimeout   = 10 * time.Second
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "voicerelayd",
		Short:        "Real-time voice conversation relay",
		Long:         "voicerelayd bridges browser microphone audio to speech recognition, response generation, and speech synthesis over a websocket.",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "",
		"listen address (defaults to LISTEN_ADDR, then "+defaultListenAddr+")")
	return cmd
}

func serve(ctx context.Context, addr string) error {
	// A missing .env is fine; the environment may be set by the deployment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	shutdownTracer := telemetry.InitTracer()
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("failed to shut down tracer", "error", err)
		}
	}()

	if addr == "" {
		addr = os.Getenv("LISTEN_ADDR")
	}
	if addr == "" {
		addr = defaultListenAddr
	}

	srv, err := server.New(server.Config{
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		RetrievalBaseURL: os.Getenv("RETRIEVAL_BASE_URL"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
