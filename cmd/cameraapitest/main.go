package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"cameraapitest/internal/api"
	"cameraapitest/pkg/apitest"
	"cameraapitest/pkg/command"
	"cameraapitest/pkg/config"
	"cameraapitest/pkg/host/mockhost"
	"cameraapitest/pkg/journal"
	"cameraapitest/pkg/logging"
	"cameraapitest/pkg/probe"
	"cameraapitest/pkg/random"
	"cameraapitest/pkg/session"
	"cameraapitest/pkg/tracker"
	"cameraapitest/pkg/version"

	"github.com/joho/godotenv"
)

const defaultConfigPath = "configs/cameraapitest.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	noConsole  = flag.Bool("no-console", false, "Do not read commands from stdin")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	// .env is optional; it only feeds the CAMERAAPITEST_* overrides.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	var in io.Reader = os.Stdin
	if *noConsole {
		in = nil
	}
	if err := run(context.Background(), *configPath, in, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Camera API test started", "version", version.Version, "config", configPath)

	j, err := initJournal(appCfg)
	if err != nil {
		return err
	}
	defer j.Close()

	h := mockhost.New(hostConfig(appCfg), slog.Default())
	// Event consumers stop before the journal closes.
	var consumers sync.WaitGroup
	defer func() {
		cancel()
		_ = h.Close()
		consumers.Wait()
	}()

	seed, err := resolveSeed(ctx, appCfg.Extension.Seed, j)
	if err != nil {
		return err
	}

	settings, err := settingsFromConfig(appCfg.Extension)
	if err != nil {
		return err
	}

	sessions := session.NewManager(slog.Default())
	defer sessions.Stop()
	h.OnDisconnect(func(id string) { sessions.Cancel(id) })

	if err := probe.Summarize(slog.Default(), probe.Run(ctx, probe.DefaultTimeout, []probe.Probe{
		probe.Journal(j),
		probe.Connections(h),
	})); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	recorder := journal.NewRecorder(j, slog.Default())
	stats := tracker.New()
	startEventConsumers(ctx, &consumers, h, recorder, stats)

	ext := apitest.New(h, random.New(seed), sessions, settings, slog.Default())
	registry := command.NewRegistry(appCfg.Extension.RootCommand, slog.Default())
	registry.OnDispatch(recorder.Hook())
	registry.OnDispatch(stats.Hook())
	if err := ext.Register(registry); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	ext.OnEnable(registry.Root())

	if err := config.Watch(ctx, configPath, func(c *config.Config) {
		reloadSettings(ext, registry.Root(), c)
	}); err != nil {
		slog.Warn("Config hot reload disabled", "error", err)
	}

	if in != nil {
		go runConsole(ctx, in, out, registry, cancel)
	}

	srv := api.NewServer(appCfg.Server.Address, api.Handlers{
		Sessions: api.NewSessionHandler(h, sessions),
		Commands: api.NewCommandHandler(registry, h),
		Events:   api.NewEventHandler(h),
		Journal:  api.NewJournalHandler(j),
		Stats:    api.NewStatsHandler(stats),
		Shutdown: cancel,
	})
	srv.Handler = loggingMiddleware(srv.Handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return runServerLifecycle(ctx, srv, quit)
}

func initJournal(cfg *config.Config) (journal.Journal, error) {
	j, err := journal.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if s, ok := j.(*journal.SQLiteStore); ok {
		n, err := s.DB().Prune(cfg.DB.Retention.Std())
		if err != nil {
			slog.Error("Journal pruning failed", "error", err)
		} else if n > 0 {
			slog.Info("Journal pruned", "rows", n, "retention", cfg.DB.Retention)
		}
	} else {
		slog.Info("Journal disabled")
	}
	return j, nil
}

// resolveSeed returns the configured seed, or a fresh one when it is 0.
// The seed in use is stored so a run can be replayed.
func resolveSeed(ctx context.Context, configured uint64, st journal.StateStore) (uint64, error) {
	seed := configured
	if seed == 0 {
		var err error
		if seed, err = random.NewSeed(); err != nil {
			return 0, fmt.Errorf("failed to seed generator: %w", err)
		}
	}
	if err := st.SetState(ctx, "last_seed", strconv.FormatUint(seed, 10)); err != nil {
		slog.Warn("Failed to store seed", "error", err)
	}
	slog.Info("Random generator seeded", "seed", seed, "configured", configured != 0)
	return seed, nil
}

func hostConfig(cfg *config.Config) mockhost.Config {
	players := make([]mockhost.Player, len(cfg.Host.Players))
	for i, p := range cfg.Host.Players {
		players[i] = mockhost.Player{Name: p.Name, Position: p.Position}
	}
	return mockhost.Config{Players: players}
}

func settingsFromConfig(e config.ExtensionConfig) (apitest.Settings, error) {
	owner, err := e.LockOwnerID()
	if err != nil {
		return apitest.Settings{}, fmt.Errorf("invalid lock owner: %w", err)
	}
	return apitest.Settings{
		ResetDelay:    e.ResetDelay.Std(),
		CameraOffset:  e.CameraOffset,
		FreeCamHeight: e.FreeCamHeight,
		LockOwner:     owner,
	}, nil
}

func reloadSettings(ext *apitest.Extension, root string, c *config.Config) {
	s, err := settingsFromConfig(c.Extension)
	if err != nil {
		slog.Warn("Ignoring reloaded extension settings", "error", err)
		return
	}
	ext.UpdateSettings(s)
	if c.Extension.RootCommand != root {
		slog.Warn("root_command changes take effect after a restart", "current", root, "configured", c.Extension.RootCommand)
	}
}

// startEventConsumers gives each consumer its own subscription; they end
// with ctx or when the host closes. The journal and the counters must see
// every event, so they subscribe in blocking mode.
func startEventConsumers(ctx context.Context, wg *sync.WaitGroup, h *mockhost.Host, recorder *journal.Recorder, stats *tracker.Tracker) {
	journalEvents, _ := h.SubscribeBlocking()
	statsEvents, _ := h.SubscribeBlocking()
	logEvents, _ := h.Subscribe()

	wg.Add(3)
	go func() {
		defer wg.Done()
		recorder.Run(ctx, journalEvents)
	}()
	go func() {
		defer wg.Done()
		stats.Run(ctx, statsEvents)
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-logEvents:
				if !ok {
					return
				}
				logging.LogEvent(ev)
			}
		}
	}()
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
