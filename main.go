package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexbotov/commsdk/internal/api"
	"github.com/alexbotov/commsdk/internal/config"
	"github.com/alexbotov/commsdk/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.Init(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Auth.SignatureSecret == "" {
		log.Fatal("COMMS_SIGNATURE_SECRET is required to verify callbacks")
	}
	verifier, err := cfg.Verifier()
	if err != nil {
		log.Fatal("Invalid signature settings", zap.Error(err))
	}

	h := api.New(log, verifier, cfg.Auth.SignatureSecret)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.SetupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Starting webhook receiver",
			zap.String("addr", srv.Addr),
			zap.Stringer("signature_method", verifier.Hash),
			zap.Duration("max_age", verifier.MaxAge))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
