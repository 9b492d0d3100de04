package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"voiceink/internal/config"
	"voiceink/internal/domain"
	"voiceink/internal/usecase"
)

const stopTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	flags := flag.NewFlagSet("voiceink", flag.ContinueOnError)
	flags.SetOutput(stderr)
	model := flags.String("model", "", "transcription model name (overrides VOICEINK_MODEL)")
	language := flags.String("language", "", "language code or \"auto\" (overrides VOICEINK_LANGUAGE)")
	envFile := flags.String("env-file", ".env", "optional dotenv file")
	listModels := flags.Bool("list-models", false, "print the model catalog and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *listModels {
		printModels(stdout)
		return 0
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "voiceink: %v\n", err)
		return 1
	}
	if *model != "" {
		cfg.Session.Model = *model
	}
	if *language != "" {
		cfg.Session.Language = *language
	}

	logger := newLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(logger)
	if err := app.startup(cfg); err != nil {
		return 1
	}
	logger.Info("startup: configuration loaded", "model", cfg.Session.Model, "language", cfg.Session.Language)

	if _, err := app.StartDictation(ctx); err != nil {
		return 1
	}
	fmt.Fprintln(stderr, "Listening. Press Enter to stop, Ctrl+C to discard.")

	select {
	case <-waitForEnter(stdin):
	case <-ctx.Done():
		if err := app.AbortDictation(); err != nil {
			return 1
		}
		return 130
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	result, err := app.StopDictation(stopCtx)
	if errors.Is(err, usecase.ErrNoTranscript) {
		return 0
	}
	if err != nil {
		return 1
	}

	fmt.Fprintln(stdout, result.Transcript)
	if result.RecordingPath != "" {
		logger.Info("recording saved", "path", result.RecordingPath)
	}
	return 0
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func waitForEnter(r io.Reader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = bufio.NewReader(r).ReadString('\n')
	}()
	return done
}

func printModels(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROVIDER\tSTREAMING\tDESCRIPTION")
	for _, model := range domain.PredefinedModels {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", model.Name, model.Provider, model.SupportsStreaming, model.DisplayName)
	}
	_ = tw.Flush()
}
