package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"git.vengeful.eu/nacorid/breezspark/internal/config"
	"git.vengeful.eu/nacorid/breezspark/internal/logging"
	"git.vengeful.eu/nacorid/breezspark/internal/store"
	"git.vengeful.eu/nacorid/breezspark/internal/wallet"
	"git.vengeful.eu/nacorid/breezspark/internal/web"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	consoleLvl, err := logging.ParseLevel(cfg.ConsoleLogLvl)
	if err != nil {
		log.Printf("console log level: %v", err)
	}
	fileLvl, err := logging.ParseLevel(cfg.FileLogLvl)
	if err != nil {
		log.Printf("file log level: %v", err)
	}
	if cfg.Debug {
		consoleLvl = slog.LevelDebug
	}
	logFile, err := logging.Init(logging.Config{LogFilePath: cfg.LogFilePath, ConsoleLevel: consoleLvl, FileLevel: fileLvl})
	if err != nil {
		log.Printf("logger init error: %v", err)
	} else {
		defer logFile.Close()
	}
	logger := slog.Default().With("component", "breezspark")

	network, err := cfg.NetworkParams()
	if err != nil {
		log.Fatalf("network: %v", err)
	}

	db, err := store.Init(cfg.PostgresDatabase)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wallets := wallet.NewService(db, wallet.SidecarConnector(cfg.SparkSDKURL, cfg.SparkSDKAPIKey), network, logger.With("component", "wallet"))
	if err := wallets.LoadAll(ctx); err != nil {
		logger.Error("failed to load wallets", "error", err)
	}

	webHandler := &web.Server{
		Wallets: wallets,
		Logger:  logger.With("component", "web"),
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.ListeningAddress, cfg.Port),
		Handler:           webHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("breezspark running", "addr", srv.Addr, "network", network.Name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
