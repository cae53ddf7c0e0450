package main

import (
	"log"
	"log/slog"
	"os"

	"capsule-service/logger"
	"capsule-service/src/config"
	"capsule-service/src/server"
)

// @title Capsule Service API
// @version 1.0
// @description Flip-capsule challenge session service

// @contact.name   Capsule Service Team
// @contact.url    https://github.com/your-org/capsule-service
// @contact.email  capsule-service@example.com

func main() {
	cfg := loadConfig()
	setupLogging(cfg.LogLevel)

	srv, err := server.NewServer(&cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := srv.Run(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.GlobalConfig {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func setupLogging(level string) {
	logger.Init()

	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})
	slog.SetDefault(slog.New(handler))
}
