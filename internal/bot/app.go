package bot

import (
	"context"
	"fmt"
	"time"

	"senseibot/internal/config"
	"senseibot/internal/events"
	"senseibot/internal/llm"
	"senseibot/internal/notify"
	"senseibot/internal/reminder"
	"senseibot/internal/resources"
	"senseibot/internal/storage"
	"senseibot/internal/store"
	"senseibot/internal/transport"
	"senseibot/internal/transport/telegram"
	logx "senseibot/pkg/logx"
)

// App wires the whole bot together from a loaded configuration.
type App struct {
	cfg     *config.Config
	cfgm    *config.Manager
	log     logx.Logger
	adapter transport.Adapter

	events    *events.Catalog
	resources *resources.Catalog
	storage   storage.Store
	llm       *llm.Client
	notifier  *notify.Service
	reminder  *reminder.Service
	router    *Router
	onJoin    func(ctx context.Context, j *transport.UserJoined)
}

// NewApp builds every component. Nothing runs until Run.
func NewApp(cfgm *config.Manager, log logx.Logger) (*App, error) {
	cfg := cfgm.Get()

	recs, err := store.New(cfg.DataDir, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	var st storage.Store
	if cfg.Storage != nil {
		busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
		st, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	evCatalog := events.NewCatalog(recs, log.With(logx.String("comp", "events")))
	rsCatalog := resources.NewCatalog(recs, log.With(logx.String("comp", "resources")))

	pollTimeout, _ := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	var askClient *llm.Client
	if cfg.LLM != nil && cfg.LLM.Enabled {
		askClient = llm.NewClient(llm.Config{
			BaseURL:          cfg.LLM.BaseURL,
			APIKey:           cfg.LLM.APIKey,
			Model:            cfg.LLM.Model,
			SystemPromptPath: cfg.LLM.SystemPromptPath,
			RetryMax:         uint(cfg.LLM.RetryMax),
		}, log.With(logx.String("comp", "llm")))
	}

	notifier := notify.New(notify.Config{}, adapter, log.With(logx.String("comp", "notify")))

	interval, _ := config.ParseDurationOrDefault("reminder.interval", cfg.Reminder.Interval, time.Hour)
	rem := reminder.New(reminder.Config{
		Enabled:  cfg.Reminder.Enabled,
		Interval: interval,
		Targets:  cfg.Telegram.AnnounceChatIDs,
	}, evCatalog, notifier, st, log.With(logx.String("comp", "reminder")))

	handlers := NewHandlers(evCatalog, rsCatalog, askClient, st, log.With(logx.String("comp", "handlers")))
	router := NewRouter(adapter, cfg.Telegram.AdminUserIDs, log.With(logx.String("comp", "router")))
	router.Register(handlers.Commands())
	router.Register([]Command{helpCommand(router)})

	app := &App{
		cfg:       cfg,
		cfgm:      cfgm,
		log:       log,
		adapter:   adapter,
		events:    evCatalog,
		resources: rsCatalog,
		storage:   st,
		llm:       askClient,
		notifier:  notifier,
		reminder:  rem,
		router:    router,
	}
	app.onJoin = handlers.OnJoin(adapter)
	return app, nil
}

func helpCommand(router *Router) Command {
	return Command{
		Route:       "help",
		Aliases:     []string{"start", "h"},
		Description: "show this help",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, renderHelp(router.Commands(), req.IsAdmin))
		},
	}
}

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	updates := make(chan transport.Update, 128)

	a.notifier.Start(ctx)
	if err := a.adapter.Start(ctx, updates); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}
	if err := a.reminder.Start(ctx); err != nil {
		return fmt.Errorf("start reminder: %w", err)
	}

	// Hot-reload: admin list changes apply without restart.
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	go func() {
		for cfg := range sub {
			a.router.SetAdmins(cfg.Telegram.AdminUserIDs)
			a.log.Info("config reloaded", logx.Int("admins", len(cfg.Telegram.AdminUserIDs)))
		}
	}()

	a.router.DispatchLoop(ctx, updates, a.onJoin)

	// Drain and shut down with a bounded grace period.
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.reminder.Stop()
	a.notifier.Stop(stopCtx)
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	return nil
}
