package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/exam-prep/internal/chat"
	"github.com/aliskhannn/exam-prep/internal/config"
	"github.com/aliskhannn/exam-prep/internal/delivery/rest"
	"github.com/aliskhannn/exam-prep/internal/delivery/telegram"
	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/infra/ai"
	"github.com/aliskhannn/exam-prep/internal/infra/newsapi"
	"github.com/aliskhannn/exam-prep/internal/infra/postgres"
	"github.com/aliskhannn/exam-prep/internal/infra/postgres/repository"
	"github.com/aliskhannn/exam-prep/internal/infra/sqlite"
	"github.com/aliskhannn/exam-prep/internal/logger"
	"github.com/aliskhannn/exam-prep/internal/service"
	"github.com/aliskhannn/exam-prep/internal/tracker"
)

const (
	shutdownTimeout  = 10 * time.Second
	defaultQuizCount = 5
)

type activityStore interface {
	tracker.ActivityRecorder
	rest.ActivityLister
}

// storage bundles the repositories of the selected driver.
type storage struct {
	asked    service.AskedRepository
	activity activityStore
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("application stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	lg.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	// Initialize services.
	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
	provider := ai.NewQuestionProvider(aiClient, lg.Named("ai"))

	activityTracker := tracker.New(store.activity, lg.Named("tracker"), cfg.Tracker.QueueSize, cfg.Tracker.WriteTimeout)
	flows := service.NewFlowRegistry(provider, activityTracker, store.asked, lg.Named("quiz"), cfg.Quiz.MaxCount, cfg.Quiz.AskedLimit)

	newsClient := newsapi.NewClient(cfg.News.BaseURL, cfg.News.APIKey, cfg.News.Query, cfg.News.PageSize)
	newsService := service.NewNewsService(newsClient, cfg.News.TTL, lg.Named("news"))

	hub := chat.NewHub(cfg.Chat.BufferSize, cfg.Chat.EchoDelay, lg.Named("chat"))
	defer hub.Close()

	handler := rest.NewHandler(flows, newsService, store.activity, hub, lg.Named("http"), cfg.HTTP.AllowedOrigins)
	server := rest.NewServer(cfg.HTTP.Addr, handler.Router(cfg.HTTP.AllowedOrigins), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return activityTracker.Run(gctx)
	})

	if cfg.News.APIKey != "" {
		g.Go(func() error {
			return newsService.Start(gctx, cfg.News.RefreshCron)
		})
	} else {
		lg.Warn("NEWS_API_KEY is not set, news refresher disabled")
	}

	g.Go(func() error {
		lg.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		lg.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Telegram.Enabled() {
		bot, err := newBot(cfg, lg)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}

		tg := telegram.NewHandler(bot, lg.Named("telegram"), flows, newsService, telegram.QuizDefaults{
			ExamType:   entities.ExamUPSC,
			Difficulty: entities.DifficultyMedium,
			Count:      min(defaultQuizCount, cfg.Quiz.MaxCount),
		})

		g.Go(func() error {
			if err := tg.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		lg.Info("TELEGRAM_API_TOKEN is not set, telegram bot disabled")
	}

	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("shutdown complete")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		return &storage{
			asked:    sqlite.NewAskedRepository(db),
			activity: sqlite.NewActivityRepository(db),
			close:    func() { _ = db.Close() },
		}, nil

	default:
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, err
		}

		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}

		transactor := postgres.NewTransactor(pool)

		return &storage{
			asked:    repository.NewAskedRepository(pool, transactor),
			activity: repository.NewActivityRepository(pool),
			close:    pool.Close,
		}, nil
	}
}

func newBot(cfg *config.Config, lg *zap.Logger) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{
			Command:     "start",
			Description: "Start the bot",
		},
		{
			Command:     "quiz",
			Description: "New question batch (usage: /quiz SSC hard 5)",
		},
		{
			Command:     "news",
			Description: "Latest exam news",
		},
		{
			Command:     "reset",
			Description: "Allow previously asked questions again",
		},
	}

	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		lg.Warn("failed to set bot commands", zap.Error(err))
	}

	lg.Info("authorized on telegram", zap.String("username", bot.Self.UserName))
	return bot, nil
}
