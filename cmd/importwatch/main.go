package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/importwatch/internal/adapter"
	"github.com/mmcdole/importwatch/internal/backend"
	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/notify"
	"github.com/mmcdole/importwatch/internal/service"
	"github.com/mmcdole/importwatch/internal/store"
	"github.com/mmcdole/importwatch/internal/tracker"
	"github.com/mmcdole/importwatch/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

type rootOptions struct {
	configPath string
	plain      bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "importwatch",
		Short:         "Watch CSV imports into your collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: ~/.config/importwatch/config.yaml)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Log progress instead of drawing the panel")

	cmd.AddCommand(newJobsCmd(&opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "importwatch %s\n", Version)
		},
	})
	return cmd
}

// app holds the wired components shared by the root and jobs commands
type app struct {
	cfg       *adapter.Config
	logger    *slog.Logger
	store     *store.CacheStore
	client    *backend.Client
	realtime  *backend.Realtime
	directory *service.DirectoryService
	documents *service.DocumentService

	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
}

// buildApp loads configuration and wires the backend and services
func buildApp(opts *rootOptions, console bool) (*app, error) {
	cfg, err := adapter.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	if console {
		a.logger = adapter.SetupConsoleLogger(os.Stderr, cfg.Logging.Level)
	} else {
		logger, closer, err := adapter.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = adapter.NullLogger()
		} else {
			a.closers = append(a.closers, closer)
		}
		a.logger = logger
	}
	slog.SetDefault(a.logger)

	a.store, err = store.Open(cfg.Cache.Dir, cfg.Server.Endpoint, cfg.Project.ID, cfg.Cache.MaxAge)
	if err != nil {
		a.logger.Warn("cache unavailable, using memory only", "dir", cfg.Cache.Dir, "error", err)
		a.store, err = store.Open("", cfg.Server.Endpoint, cfg.Project.ID, cfg.Cache.MaxAge)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}
	a.closers = append(a.closers, a.store)

	a.client = backend.NewClient(backend.Options{
		Endpoint:          cfg.Server.Endpoint,
		ProjectID:         cfg.Project.ID,
		APIKey:            cfg.Server.APIKey,
		Timeout:           cfg.Server.Timeout,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		MaxRetries:        cfg.Server.MaxRetries,
	}, a.logger)
	a.realtime = backend.NewRealtime(backend.RealtimeOptions{
		Endpoint:     cfg.Server.Endpoint,
		ProjectID:    cfg.Project.ID,
		APIKey:       cfg.Server.APIKey,
		PingInterval: cfg.Watch.PingInterval,
		MaxBackoff:   cfg.Watch.MaxBackoff,
	}, a.logger)

	a.directory = service.NewDirectoryService(a.client, a.store, a.logger)
	a.documents = service.NewDocumentService(a.client, a.store, a.logger)
	return a, nil
}

func run(ctx context.Context, opts rootOptions) error {
	// Plain mode when asked or when nobody is watching the screen
	plain := opts.plain || !term.IsTerminal(int(os.Stdout.Fd()))

	cfg, err := adapter.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsConfigured() {
		if plain {
			return errors.New("not configured: set server.endpoint and project.id")
		}
		return runSetupFlow(ctx, cfg, opts.configPath)
	}

	a, err := buildApp(&opts, plain)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting importwatch", "version", Version, "endpoint", a.cfg.Server.Endpoint, "project", a.cfg.Project.ID, "plain", plain)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plain {
		return runPlain(ctx, a)
	}
	return runTUI(ctx, a)
}

func newRouter(a *app) *adapter.BrowserRouter {
	launcher := adapter.NewLauncher(a.cfg.Console.Browser, a.cfg.Console.BrowserArgs, a.logger)
	current := domain.ResourceRef{DatabaseID: a.cfg.Console.Database, CollectionID: a.cfg.Console.Collection}
	return adapter.NewBrowserRouter(a.cfg.ConsoleURL(), a.cfg.Project.ID, current, launcher, a.logger)
}

func newTracker(a *app, notifier domain.Notifier, router domain.Router) *tracker.Tracker {
	return tracker.New(
		tracker.Config{
			ProjectID:    a.cfg.Project.ID,
			PollInterval: a.cfg.Watch.PollInterval,
		},
		tracker.Deps{
			Jobs:        a.client,
			Events:      a.realtime,
			Directory:   a.directory,
			Notifier:    notifier,
			Router:      router,
			Invalidator: a.documents,
		},
		a.logger,
	)
}

func runTUI(ctx context.Context, a *app) error {
	router := newRouter(a)
	toasts := notify.NewToastCenter(a.cfg.UI.ToastLifetime, a.logger)
	notifier := notify.Fanout{toasts, notify.NewLogNotifier(a.logger)}

	t := newTracker(a, notifier, router)

	channels := tui.NewChannels()
	t.Observe(channels)
	toasts.Observe(channels.OnToast)
	a.documents.OnInvalidate(channels.OnInvalidate)

	dispose := t.Start(ctx)
	defer dispose()

	model := tui.NewModel(tui.Deps{
		Tracker:   t,
		Toasts:    toasts,
		Documents: a.documents,
		Directory: a.directory,
		Router:    router,
		Channels:  channels,
		Logger:    a.logger,
	}, a.cfg.UI.Collapsed)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

// runPlain logs every row change until interrupted
func runPlain(ctx context.Context, a *app) error {
	router := newRouter(a)
	t := newTracker(a, notify.NewLogNotifier(a.logger), router)

	seen := make(map[string]domain.ImportJob)
	t.Observe(tracker.ObserverFunc(func(s *tracker.Snapshot) {
		for _, job := range s.Jobs() {
			prev, ok := seen[job.ID]
			if ok && prev.Status == job.Status && prev.CollectionName == job.CollectionName {
				continue
			}
			seen[job.ID] = job
			a.logger.Info(tracker.Describe(job.Status, job.CollectionName).Plain(),
				"id", job.ID, "progress", job.Progress(), "resource", job.Resource.String())
		}
	}))

	dispose := t.Start(ctx)
	defer dispose()

	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
