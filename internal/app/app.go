package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/api"
	"github.com/KrishnarajT/remindarr/internal/config"
	"github.com/KrishnarajT/remindarr/internal/dialog"
	"github.com/KrishnarajT/remindarr/internal/notion"
	"github.com/KrishnarajT/remindarr/internal/scheduler"
	"github.com/KrishnarajT/remindarr/internal/store"
	"github.com/KrishnarajT/remindarr/internal/telegram"
)

type App struct {
	cfg config.Config
	log *zap.Logger
	bot *tgbotapi.BotAPI

	repo   store.Repo
	router *telegram.Router
	engine *scheduler.Engine
	srv    *http.Server
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

// Run wires everything and blocks until a shutdown signal. The delivery
// engine is stopped before the store closes, so an in-flight tick always
// commits against a live database.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting remindarr",
		zap.String("mode", a.cfg.RunMode),
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("checkInterval", a.cfg.CheckInterval),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	dialogEngine := dialog.NewEngine(repo, dialog.NewMemorySessions(), notion.New(a.log), a.log, a.cfg.DefaultTZ)
	a.router = telegram.NewRouter(a.bot, a.log, dialogEngine)

	a.engine = scheduler.New(repo, a.log, a.router, a.cfg.CheckInterval, a.cfg.DefaultChatID)
	a.engine.Start()

	httpAPI := api.NewServer(a.log, repo, a.router, a.router, a.cfg.DefaultChatID)
	a.srv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      httpAPI.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.RunMode == "webhook" {
		// Updates arrive over HTTP; nothing to poll.
		<-ctx.Done()
		return a.shutdown()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return a.shutdown()
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) shutdown() error {
	a.log.Info("shutdown signal received")

	// Waits for the in-flight tick, so no reminder row is left claimed.
	a.engine.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.srv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
	return nil
}
