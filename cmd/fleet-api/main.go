// README: Entry point; loads config, wires modules, starts HTTP server and background monitors.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet/internal/config"
	httptransport "fleet/internal/http"
	"fleet/internal/infra"
	"fleet/internal/modules/courier"
	"fleet/internal/modules/matching"
	"fleet/internal/modules/notify"
	"fleet/internal/modules/order"
	"fleet/internal/modules/payout"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := infra.Migrate(dbPool, cfg.DB.MigrationsDir); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	kafkaWriter := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	emitter := notify.NewKafkaEmitter(kafkaWriter, log)
	defer emitter.Close()

	presence := courier.NewPresence(redisClient)
	registry := courier.NewRegistry(courier.NewPostgresStore(dbPool), presence, log)

	ledger := payout.NewPostgresLedger(dbPool)

	orderStore := order.NewPostgresStore(dbPool)
	orderSvc := order.NewService(orderStore, registry, ledger, emitter, cfg.Commission.Rate, log)

	matchingSvc := matching.NewService(orderStore, registry, presence, emitter, cfg.Dispatch, log)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Matching: matchingSvc,
		Registry: registry,
		Ledger:   ledger,
		Emitter:  emitter,
		Log:      log,
	})

	go orderSvc.RunExpiryMonitor(ctx,
		time.Duration(cfg.Dispatch.ExpireTickSeconds)*time.Second,
		time.Duration(cfg.Dispatch.OrderTTLMinutes)*time.Minute,
	)

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
