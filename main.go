package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GymChat/config"
	"GymChat/global"
	"GymChat/logger"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("c", os.Getenv("GYMCHAT_CONFIG"), "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		logger.Error("init logger", zap.Error(err))
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := global.Boot(ctx, cfg)
	if err != nil {
		logger.Error("boot", zap.Error(err))
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		logger.Error("run", zap.Error(runErr))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(sctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("bye")
	if runErr != nil {
		os.Exit(1)
	}
}
