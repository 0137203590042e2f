package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/db"
	"github.com/evn/shiftbot/internal/app"
	"github.com/evn/shiftbot/internal/bot"
	"github.com/evn/shiftbot/internal/repositories"
	"github.com/evn/shiftbot/internal/routes"
	"github.com/evn/shiftbot/internal/scheduler"
	"github.com/evn/shiftbot/internal/services/auth"
	"github.com/evn/shiftbot/internal/services/live"
	"github.com/evn/shiftbot/internal/services/mirror"
	"github.com/evn/shiftbot/internal/services/pending"
	"github.com/evn/shiftbot/internal/services/shift"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := db.InitDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	defer database.Close()

	repo := repositories.NewShiftRepository(database, cfg.DatabaseDriver,
		repositories.WithCanceledFreesSlot(cfg.CanceledFreesSlot))

	mirrors, err := newMirrors(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	mirrorSync := mirror.NewSync(repo, mirrors, cfg.MirrorTimeout)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("❌ telegram: %v", err)
	}
	log.Printf("✅ Authorized on account %s", api.Self.UserName)

	hub := live.NewHub()
	defer hub.Close()

	store := newPendingStore(ctx, cfg)
	shifts := shift.NewService(repo, mirrorSync, bot.NewNotifier(api), hub)

	a := &app.App{
		Groups:  cfg.Groups,
		Repo:    repo,
		Shifts:  shifts,
		Mirror:  mirrorSync,
		Pending: store,
		JWT:     auth.NewJWTService(cfg.JwtSecret),
		Live:    hub,
		Now:     time.Now,
	}

	scheduler.NewScheduler(shifts, mirrorSync, cfg.Groups.All(), cfg.AbsenceTime, cfg.AutoCompleteTime).Start(ctx)

	if cfg.ServerPort != "" {
		srv := routes.NewServer(cfg.ServerPort, routes.Setup(a, database, cfg.JwtSecret, cfg.TelegramBotToken))
		go func() {
			log.Printf("✅ HTTP API listening on :%s", cfg.ServerPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("❌ HTTP server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	log.Printf("✅ Bot started for %d group(s)", cfg.Groups.Len())
	bot.New(api, a).Run(ctx, updates)
	api.StopReceivingUpdates()
	log.Println("Bot stopped")
}

// newMirrors подключает таблицу каждой группы. Без файла ключей сервисного
// аккаунта таблицы ведутся в памяти.
func newMirrors(ctx context.Context, cfg *config.Config) (map[int64]mirror.Mirror, error) {
	mirrors := make(map[int64]mirror.Mirror, cfg.Groups.Len())
	if cfg.GoogleCredentialsFile == "" {
		log.Println("⚠️ GOOGLE_CREDENTIALS_FILE is not set, sheets are kept in memory")
		for _, g := range cfg.Groups.All() {
			mirrors[g.ID] = mirror.NewMemoryMirror()
		}
		return mirrors, nil
	}

	srv, err := mirror.NewSheetsService(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, err
	}
	for _, g := range cfg.Groups.All() {
		mirrors[g.ID] = mirror.NewSheetsClient(srv, g.SpreadsheetID)
	}
	return mirrors, nil
}

// newPendingStore выбирает Redis, если он задан и отвечает, иначе память процесса.
func newPendingStore(ctx context.Context, cfg *config.Config) pending.Store {
	if cfg.RedisAddr == "" {
		return pending.NewMemoryStore(cfg.PendingTTL)
	}
	client := config.NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ redis %s unavailable (%v), pending actions are kept in memory", cfg.RedisAddr, err)
		client.Close()
		return pending.NewMemoryStore(cfg.PendingTTL)
	}
	log.Printf("✅ Pending actions stored in redis %s", cfg.RedisAddr)
	return pending.NewRedisStore(client, cfg.PendingTTL)
}
