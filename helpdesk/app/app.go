// Package app assembles the helpdesk bot: infrastructure bootstrap, domain
// services, the Telegram runtime, the dashboard trigger and the reaper.
package app

import (
	"context"
	"fmt"
	"time"

	"helpdeskbot/core/bootstrap"
	coretelegram "helpdeskbot/core/telegram"
	"helpdeskbot/helpdesk/bot"
	"helpdeskbot/helpdesk/config"
	"helpdeskbot/helpdesk/notify"
	"helpdeskbot/helpdesk/reaper"
	"helpdeskbot/helpdesk/session"
	"helpdeskbot/helpdesk/storage"
	"helpdeskbot/helpdesk/web"
)

// App owns every long-lived component of the helpdesk bot process.
type App struct {
	cfg       *config.Config
	store     *storage.Store
	sessions  session.Manager
	transport *bot.Transport
	notifier  *notify.Notifier
	bot       *bot.Bot
	reaper    *reaper.Reaper
	web       *web.Server
}

// Bootstrap initializes logging, the database, migrations, reference data,
// and wires the domain services together.
func Bootstrap(cfg *config.Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(res.DB)
	if err != nil {
		return nil, fmt.Errorf("app: storage init: %w", err)
	}

	var seeder bootstrap.Seeder = storage.CategorySeeder(store)
	if err := seeder.Seed(context.Background(), store); err != nil {
		return nil, fmt.Errorf("app: seed categories: %w", err)
	}

	sessions := session.NewMemoryManager()

	transport, err := bot.NewTransport(cfg.Core.Telegram.Token)
	if err != nil {
		return nil, err
	}

	notifier := notify.New(notify.Options{
		Store:     store,
		Sessions:  sessions,
		Transport: transport,
		UploadDir: cfg.Storage.UploadDir,
	})

	tgBot := bot.New(bot.Options{
		Store:      store,
		Sessions:   sessions,
		Notifier:   notifier,
		UploadDir:  cfg.Storage.UploadDir,
		PolicyPath: cfg.Storage.PolicyPath,
		AdminID:    cfg.Core.Telegram.AdminID,
	})
	tgBot.RegisterFlows()

	return &App{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		transport: transport,
		notifier:  notifier,
		bot:       tgBot,
		reaper:    reaper.New(sessions, transport),
		web:       web.New(cfg.Web.Listen, notifier),
	}, nil
}

// TelegramRunOptions builds the runtime configuration consumed by the
// shared Telegram runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := a.bot.BuildRegistry()

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      a.bot.Routes(reg),
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if err := a.reaper.Start(); err != nil {
				return err
			}
			a.web.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := a.web.Shutdown(stopCtx)
			a.reaper.Stop()
			a.transport.Close()
			return err
		},
	}, nil
}
