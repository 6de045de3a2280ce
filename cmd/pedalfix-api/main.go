// README: Entry point; loads config, wires services, starts HTTP server and the rematch sweep.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pedalfix/internal/config"
	httptransport "pedalfix/internal/http"
	"pedalfix/internal/infra"
	"pedalfix/internal/modules/matching"
	"pedalfix/internal/modules/payment"
	"pedalfix/internal/modules/repair"
	"pedalfix/internal/modules/user"
	"pedalfix/internal/modules/wallet"
	"pedalfix/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	var publisher notify.Publisher
	publisher, err = notify.NewProducer(cfg.AMQP.URL)
	if err != nil {
		log.Printf("rabbitmq unavailable, notifications disabled: %v", err)
		publisher = notify.NopPublisher{}
	}
	defer publisher.Close()
	dispatcher := notify.NewDispatcher(publisher, cfg.AMQP.Exchange)

	userStore := user.NewStore(dbPool)

	walletStore := wallet.NewStore(dbPool)
	walletSvc := wallet.NewService(walletStore)

	matchingSvc := matching.NewService(userStore, cfg.Matching)

	sessions := payment.NewSessionStore(redisClient, time.Duration(cfg.Payment.SessionTTLHours)*time.Hour)
	paymentSvc := payment.NewService(payment.NewHTTPAuthority(cfg.Payment.BaseURL), sessions)

	repairStore := repair.NewStore(dbPool)
	repairSvc := repair.NewService(repairStore, matchingSvc, walletStore, paymentSvc, dispatcher, cfg.Billing)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Repairs:   repairSvc,
		Users:     userStore,
		Wallets:   walletSvc,
		JWTSecret: cfg.Auth.JWTSecret,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go matchingSvc.RunRematchSweep(ctx, repairSvc)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
