package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"shdrug/client/internal/auth"
	"shdrug/client/internal/clients"
	"shdrug/client/internal/config"
	"shdrug/client/internal/db"
	internalhttp "shdrug/client/internal/http"
	"shdrug/client/internal/jobs"
	"shdrug/client/internal/logging"
	"shdrug/client/internal/metrics"
	"shdrug/client/internal/notify"
	"shdrug/client/internal/router"
	"shdrug/client/internal/session"
)

const usage = `usage: shdrug <command> [flags]

commands:
  serve              run the client runtime and the local console (default)
  login -u -p        sign in and store the session
  logout             drop the stored session
  whoami             print the signed-in user
  reminders          print today's medication reminders
  export-compliance  download a compliance report (-start -end -region -format -o)
`

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "login":
		err = login(ctx, cfg, logger, args)
	case "logout":
		err = logout(ctx, cfg, logger)
	case "whoami":
		err = whoami(ctx, cfg, logger)
	case "reminders":
		err = reminders(ctx, cfg, logger)
	case "export-compliance":
		err = exportCompliance(ctx, cfg, logger, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// runtime is the wiring shared by every command.
type runtime struct {
	sessions *session.Store
	history  *router.History
	metrics  *metrics.Metrics
	api      *clients.Client
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{metrics: metrics.New()}

	storage, err := openStorage(ctx, cfg, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.sessions = session.NewStore(storage, logger.With("component", "session"))
	rt.history = router.NewHistory(router.Default())

	rt.api, err = clients.New(clients.Options{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.RequestTimeout,
		Session:   rt.sessions,
		Navigator: rt.history,
		Metrics:   rt.metrics,
		Logger:    logger.With("component", "backend"),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func openStorage(ctx context.Context, cfg config.Config, rt *runtime) (session.Storage, error) {
	switch cfg.StorageDriver {
	case "memory":
		return session.NewMemoryStorage(), nil
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		rt.closers = append(rt.closers, func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		})
		return session.NewRedisStorage(redisClient, cfg.StorageProfile), nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		return session.NewFileStorage(cfg.StoragePath, cfg.StoragePollInterval), nil
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	inbox := notify.NewInbox(notify.DefaultInboxSize)
	notifiers := []notify.Notifier{notify.LogNotifier{Logger: logger.With("component", "notifications")}, inbox}
	var archive internalhttp.Archive

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db connection failed: %w", err)
		}
		defer pool.Close()
		history := db.NewStore(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("db schema: %w", err)
		}
		if pruned, err := history.PruneNotifications(ctx, time.Now().Add(-30*24*time.Hour)); err != nil {
			logger.Warn("prune notification history failed", "error", err)
		} else if pruned > 0 {
			logger.Info("pruned notification history", "rows", pruned)
		}
		notifiers = append(notifiers, notify.HistorySink{Store: history, Profile: cfg.StorageProfile})
		archive = history
	}

	guard := router.NewGuard(router.Default(), logger.With("component", "guard"), rt.metrics)

	deps := internalhttp.Deps{
		Sessions: rt.sessions,
		Auth:     rt.api.Auth,
		Guard:    guard,
		History:  rt.history,
		Inbox:    inbox,
		Archive:  archive,
		Metrics:  rt.metrics,
		Logger:   logger,
	}
	if cfg.RemindersEnabled {
		poller := jobs.NewReminderPoller(jobs.ReminderPollerOptions{
			Source:          rt.api.Home,
			Sessions:        rt.sessions,
			Notifier:        notify.Static{Notifier: notify.Multi(notifiers...), Granted: true},
			CheckInterval:   cfg.ReminderCheckInterval,
			RefreshInterval: cfg.ReminderRefreshInterval,
			Debounce:        cfg.ReminderStorageDebounce,
			Retention:       cfg.ReminderFiredRetention,
			FetchTimeout:    cfg.RequestTimeout,
			Logger:          logger,
			Metrics:         rt.metrics,
		})
		if err := poller.Start(ctx); err != nil {
			return fmt.Errorf("reminder poller: %w", err)
		}
		defer poller.Stop()
		deps.Reminders = poller
	}

	inspector, err := auth.NewInspector(auth.Keys{Secret: cfg.JWTSecret, PublicKeyPEM: cfg.JWTPublicKey})
	if err != nil {
		return fmt.Errorf("jwt keys: %w", err)
	}
	jobs.StartTokenRefreshJob(ctx, cfg, &jobs.TokenRefreshJob{
		Store:     rt.sessions,
		Inspector: inspector,
		API:       rt.api.Auth,
		Logger:    logger.With("component", "token_refresh"),
		Metrics:   rt.metrics,
	})

	server, err := internalhttp.NewServer(cfg, deps)
	if err != nil {
		return fmt.Errorf("server init failed: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	return nil
}

func login(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("-u and -p are required")
	}

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.api.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := rt.sessions.SetAuth(ctx, resp.AccessToken, resp.User); err != nil {
		return err
	}
	if err := rt.sessions.SetRefreshToken(ctx, resp.RefreshToken); err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s), home %s\n", resp.User.Username, router.RoleLabel(resp.User.Role), router.HomeFor(resp.User.Role))
	return nil
}

func logout(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.sessions.ClearAuth(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func whoami(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.sessions.IsAuthenticated(ctx) {
		fmt.Println(router.RoleLabel(""))
		return nil
	}
	me, err := rt.api.Auth.Me(ctx)
	if err != nil {
		return err
	}
	return printJSON(me.User)
}

func reminders(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.sessions.IsAuthenticated(ctx) {
		return errors.New("not signed in")
	}
	today, err := rt.api.Home.TodayReminders(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d reminder(s)\n", today.Date, len(today.Items))
	for _, r := range today.Items {
		fmt.Printf("  %s  %s - %s\n", r.RemindTime, r.DrugName, r.Dosage)
	}
	return nil
}

func exportCompliance(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export-compliance", flag.ContinueOnError)
	start := fs.String("start", "", "report start date (YYYY-MM-DD)")
	end := fs.String("end", "", "report end date (YYYY-MM-DD)")
	region := fs.String("region", "", "region filter")
	format := fs.String("format", "pdf", "pdf or csv")
	out := fs.String("o", "", "output file, defaults to the server-provided name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	blob, err := rt.api.Compliance.Export(ctx, clients.ReportQuery{Start: *start, End: *end, Region: *region}, *format)
	if err != nil {
		return err
	}
	target := *out
	if target == "" && blob.Filename != "" {
		target = filepath.Base(blob.Filename)
	}
	if target == "" {
		target = "compliance-report." + *format
	}
	if err := os.WriteFile(target, blob.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", target, len(blob.Data))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
