package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"todo-tracker/internal/config"
	"todo-tracker/internal/httpapi"
	"todo-tracker/internal/notify"
	"todo-tracker/internal/repository"
	"todo-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, cleanup, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer cleanup()

	todoSvc := service.NewTodoService(store, loc)

	scheduler := service.NewScheduler(loc)
	if cfg.SweepInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			swept, err := todoSvc.SweepExpiredCycles(jobCtx, time.Now())
			if err != nil {
				log.Printf("sweep: %v", err)
				return
			}
			if swept > 0 {
				log.Printf("sweep: reset %d recurring todo(s)", swept)
			}
		}); err != nil {
			log.Fatalf("schedule sweep: %v", err)
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		digestSvc := service.NewDigestService(store, loc)
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			text, err := digestSvc.Build(jobCtx, time.Now())
			if err != nil {
				log.Printf("digest: %v", err)
				return
			}
			if err := notifier.Send(text); err != nil {
				log.Printf("digest: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule digest: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.New(todoSvc, []byte(cfg.AuthSecret)),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Todo tracker listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

// openStore picks the store implementation from the database URL:
// postgres URLs get the pgx store, anything else is a SQLite path.
func openStore(ctx context.Context, databaseURL string) (service.TodoStore, func(), error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	db, err := repository.NewDB(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewTodoRepository(db), cleanup, nil
}
