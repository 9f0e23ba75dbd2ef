package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partnerhub/config"
	"partnerhub/database"
	"partnerhub/jobs"
	"partnerhub/routes"
	"partnerhub/services"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}

	svc := services.New(store, services.Options{
		MinWithdrawal:         cfg.MinWithdrawal,
		CommissionMaturity:    cfg.CommissionMaturity,
		DefaultCommissionRate: cfg.DefaultCommissionRate,
		DefaultRevenueShare:   cfg.DefaultRevenueShare,
		DashboardWindowDays:   cfg.DashboardWindowDays,
	})

	app := routes.NewApp(svc, cfg)

	scheduler := jobs.NewMaturityScheduler(svc.Accrual, cfg.MaturityCron)
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}

	addr := cfg.Addr()
	log.WithField("addr", addr).Info("Server running")

	go func() {
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Panic("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Gracefully shutting down...")
	cancel()
	scheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	log.Info("Server exited cleanly")
}

func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("Using in-memory store, data is lost on restart")
		return database.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return database.NewGormStore(db), nil
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
