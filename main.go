package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockadvisor/api"
	"stockadvisor/auth"
	"stockadvisor/config"
	"stockadvisor/models"
	"stockadvisor/ui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: stockadvisor [-config file.yaml]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprint(os.Stderr, config.EnvHelp)
	}
	flag.Parse()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ui.SetLanguage(os.Getenv("LANG"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	client := api.NewClient(api.ClientOptions{
		BaseURL:        cfg.APIBaseURL,
		RequestsPerSec: cfg.RequestsPerSec,
	})
	store := auth.NewStore(cfg.StateDir)
	session := auth.NewSession(client, store, cfg.DefaultExchange)

	model := models.NewAppModel(models.Options{
		Config:    cfg,
		Client:    client,
		Session:   session,
		Store:     store,
		Locator:   auth.NewLocator(cfg.GeoTimeout),
		SSO:       auth.NewSSO(client, cfg.SSOCallbackAddr, cfg.SSOTimeout),
		Clipboard: clipboard.WriteAll,
		Context:   ctx,
	})

	log.Info().
		Str("api", cfg.APIBaseURL).
		Str("exchange", session.Exchange().String()).
		Str("state", store.Path()).
		Msg("starting")
	if !cfg.AdminConfigured() {
		log.Warn().Msg("STOCKADVISOR_ADMIN_EMAIL is not set, admin tabs are disabled")
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("program exited with error")
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}

// setupLogging points the global logger at the log file. The TUI owns the
// terminal, so nothing is written to stdout or stderr once it starts.
func setupLogging(cfg *config.Config) (*os.File, error) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
	return f, nil
}
