package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ebookdl/internal/downloader"
	"ebookdl/pkg/auth"
	"ebookdl/pkg/config"
	"ebookdl/pkg/fetch"
	"ebookdl/pkg/history"
	"ebookdl/pkg/logger"
	"ebookdl/pkg/storage"
	"ebookdl/pkg/ui"
)

// app holds the collaborators shared by the commands
type app struct {
	cfg        *config.Config
	log        logger.Logger
	client     *fetch.Client
	history    *history.Store
	downloader *downloader.Downloader
}

// globalFlags returns the persistent flags the user actually set
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	if cmd.Flags().Changed("history") {
		flags["history"] = recordHistory
	}
	if userAgent != "" {
		flags["user-agent"] = userAgent
	}
	return flags
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newApp wires configuration, HTTP client, credentials, history and the
// downloader. Credential and history failures only disable those features.
func newApp(flags map[string]interface{}) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("ebookdl starting")

	client := fetch.NewClient(&cfg.Download, log)
	if creds, err := auth.NewManager(); err != nil {
		log.WithError(err).Warn("stored site credentials unavailable")
	} else {
		client.SetCredentials(creds)
	}

	store, err := storage.NewManager(cfg.Download.Folder, cfg.Download.OverwriteExisting)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare download folder: %w", err)
	}

	a := &app{cfg: cfg, log: log, client: client}

	var opts []downloader.Option
	if cfg.History.Enabled {
		if h, err := openHistory(cfg); err != nil {
			log.WithError(err).Warn("download history disabled")
		} else {
			a.history = h
			opts = append(opts, downloader.WithHistory(h))
		}
	}
	if cfg.Notifications.Enabled && !quiet {
		opts = append(opts, downloader.WithNotifier(ui.NewNotifier(&cfg.Notifications)))
	}

	a.downloader = downloader.New(&cfg.Download, client, store, log, opts...)
	return a, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// Close releases the history database
func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close history")
		}
	}
}

// stdoutIsTerminal reports whether progress bars can be drawn
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
