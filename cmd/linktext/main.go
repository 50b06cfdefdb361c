package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/linktext/internal/config"
	"git.home.luguber.info/inful/linktext/internal/daemon"
	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/gitsource"
	"git.home.luguber.info/inful/linktext/internal/logfields"
	"git.home.luguber.info/inful/linktext/internal/metrics"
	"git.home.luguber.info/inful/linktext/internal/notify"
	"git.home.luguber.info/inful/linktext/internal/pipeline"
	"git.home.luguber.info/inful/linktext/internal/sanitize"
	"git.home.luguber.info/inful/linktext/internal/store"
	"git.home.luguber.info/inful/linktext/internal/title"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a commented default configuration file"`

	Render struct {
		Out            string `short:"o" help:"Output directory (overrides config)"`
		HTML           bool   `help:"Also emit goldmark-rendered HTML"`
		SectionPreview bool   `help:"Render in section-preview mode (no persistence)"`
	} `cmd:"" help:"Render the vault once"`

	Watch struct {
		HTML bool `help:"Also emit goldmark-rendered HTML"`
	} `cmd:"" help:"Re-render whenever the vault changes"`

	Daemon struct {
		HTML bool `help:"Also emit goldmark-rendered HTML"`
	} `cmd:"" help:"Watch the vault, re-render periodically and serve metrics"`
}

func main() {
	kctx := kong.Parse(&CLI)

	adapter := apperrors.NewCLIErrorAdapter(CLI.Verbose, nil)

	switch kctx.Command() {
	case "init":
		setupLogging(config.LogLevelInfo, config.LogFormatText)
		slog.Info("Initializing configuration", logfields.Path(CLI.Config))
		adapter.HandleError(config.WriteDefault(CLI.Config, CLI.Init.Force))

	case "render":
		cfg := loadConfig(adapter)
		if CLI.Render.Out != "" {
			cfg.Source.Output = CLI.Render.Out
		}
		adapter.HandleError(runRender(cfg, pipeline.Options{
			HTML:           CLI.Render.HTML,
			SectionPreview: CLI.Render.SectionPreview,
		}))

	case "watch":
		cfg := loadConfig(adapter)
		adapter.HandleError(runWatch(cfg, pipeline.Options{HTML: CLI.Watch.HTML}))

	case "daemon":
		cfg := loadConfig(adapter)
		adapter.HandleError(runDaemon(cfg, pipeline.Options{HTML: CLI.Daemon.HTML}))
	}
}

func loadConfig(adapter *apperrors.CLIErrorAdapter) *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		setupLogging(config.LogLevelInfo, config.LogFormatText)
		adapter.HandleError(err)
	}
	level := cfg.Logging.Level
	if CLI.Verbose {
		level = config.LogLevelDebug
	}
	setupLogging(level, cfg.Logging.Format)
	return cfg
}

func setupLogging(level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// environment bundles the collaborators a render needs.
type environment struct {
	store     *store.SQLiteStore
	renderer  *pipeline.Renderer
	source    *gitsource.Client
	publisher notify.Publisher
	metrics   metrics.Recorder
	registry  *prom.Registry
}

func buildEnvironment(cfg *config.Config) (*environment, error) {
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	namespaces := make([]title.Namespace, len(cfg.Namespaces))
	for i, ns := range cfg.Namespaces {
		namespaces[i] = title.Namespace{
			Name:     ns.Name,
			Aliases:  ns.Aliases,
			LinkText: ns.LinkText,
			File:     ns.File,
		}
	}
	titles := title.NewSiteResolver(namespaces, st)

	env := &environment{store: st, publisher: notify.NoopPublisher{}}

	if cfg.Metrics.Enabled {
		env.registry = prom.NewRegistry()
		env.metrics = metrics.NewPrometheusRecorder(env.registry)
	} else {
		env.metrics = metrics.NoopRecorder{}
	}

	if cfg.Notify.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.Notify)
		if err != nil {
			st.Close()
			return nil, err
		}
		env.publisher = pub
	}

	if cfg.Source.Repo != nil {
		env.source = gitsource.NewClient(cfg.Source.Workspace, *cfg.Source.Repo)
	}

	env.renderer = pipeline.NewRenderer(cfg, st, titles, env.metrics, env.publisher, sanitize.New())
	return env, nil
}

func (e *environment) close() {
	if err := e.publisher.Close(); err != nil {
		slog.Warn("Failed to close publisher", logfields.Error(err))
	}
	if err := e.store.Close(); err != nil {
		slog.Warn("Failed to close store", logfields.Error(err))
	}
}

// renderOnce optionally syncs the remote vault, then runs one render pass.
func (e *environment) renderOnce(ctx context.Context, cfg *config.Config, opt pipeline.Options) error {
	if e.source != nil {
		path, err := e.source.Sync(ctx)
		if err != nil {
			return err
		}
		cfg.Source.Dir = path
	}
	result, err := e.renderer.Render(ctx, opt)
	if err != nil {
		return err
	}
	slog.Info("Render finished",
		logfields.Count(result.PagesRendered),
		slog.Int("warnings", result.Warnings))
	return nil
}

func runRender(cfg *config.Config, opt pipeline.Options) error {
	env, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()
	return env.renderOnce(context.Background(), cfg, opt)
}

func runWatch(cfg *config.Config, opt pipeline.Options) error {
	env, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := env.renderOnce(ctx, cfg, opt); err != nil {
		return err
	}

	// Single-slot channel: a pending render absorbs further change bursts.
	changes := make(chan struct{}, 1)
	w, err := daemon.NewWatcher(cfg.Source.Dir, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := env.renderOnce(ctx, cfg, opt); err != nil {
				slog.Error("Render pass failed", logfields.Error(err))
			}
		}
	}
}

func runDaemon(cfg *config.Config, opt pipeline.Options) error {
	env, err := buildEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		startMetricsListener(ctx, cfg.Metrics.Listen, env.registry)
	}

	d, err := daemon.New(cfg, func(ctx context.Context, trigger daemon.RenderTrigger) error {
		return env.renderOnce(ctx, cfg, opt)
	})
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}

	slog.Info("Daemon running, waiting for shutdown signal")
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

func startMetricsListener(ctx context.Context, listen string, reg *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Metrics listener started", slog.String("listen", listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics listener failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
}
