package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"capsule-service/logger"
	"capsule-service/src/capsule"
	"capsule-service/src/config"
	"capsule-service/src/controller"
	"capsule-service/src/db"
	"capsule-service/src/middleware"
	"capsule-service/src/rabbitmq"
	"capsule-service/src/repository"
	"capsule-service/src/router"
	"capsule-service/src/service"

	_ "capsule-service/src/docs"
)

// Server represents the HTTP server and the engine it hosts
type Server struct {
	config      *config.GlobalConfig
	database    *db.DB
	publisher   *rabbitmq.AMQPPublisher
	coordinator *capsule.Coordinator

	http            *http.Server
	shutdownHandler ShutdownHandlerInterface
	sweeperCancel   context.CancelFunc
}

// NewServer wires the whole service: database, publisher, the flip-challenge
// engine, and the HTTP surface.
func NewServer(cfg *config.GlobalConfig) (*Server, error) {
	database, err := db.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	publisher, err := rabbitmq.NewAMQPPublisher(cfg.AMQPURL())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	repo := repository.NewChallengeRepository(database)
	notifier := service.NewEventNotifier(publisher)
	coordinator := capsule.NewCoordinator(capsule.NewRegistry(), repo, repo, repo, notifier)

	server := &Server{
		config:      cfg,
		database:    database,
		publisher:   publisher,
		coordinator: coordinator,
	}
	server.shutdownHandler = NewShutdownHandler(server)

	return server, nil
}

// Run starts the sweeper and the HTTP server, blocking until shutdown.
func (s *Server) Run() error {
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	s.startSweeper()
	serverDone := s.startServerGoroutine()

	return s.shutdownHandler.HandleShutdown(serverDone, osSignals)
}

// startSweeper runs the idle-session sweeper until shutdown cancels it.
func (s *Server) startSweeper() {
	ctx, cancel := context.WithCancel(context.Background())
	s.sweeperCancel = cancel

	sweeper := s.coordinator.NewSweeper(s.config.SweepInterval, s.config.IdleThreshold)
	go sweeper.Run(ctx)
}

// startServerGoroutine starts the HTTP server in a goroutine and returns a channel for errors
func (s *Server) startServerGoroutine() chan error {
	serverDone := make(chan error, 1)

	go func() {
		sessionController := controller.NewSessionController(
			service.NewChallengeService(s.coordinator))
		limiter := middleware.NewSampleRateLimiter(s.config.SampleRatePerSecond, s.config.SampleBurst)

		r := router.NewRouter(sessionController, limiter, logger.Logger)
		s.http = &http.Server{
			Addr:    fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
			Handler: r,
		}

		slog.Info("Starting capsule service",
			"host", s.config.Host,
			"port", s.config.Port)

		serverDone <- s.startServer()
	}()

	return serverDone
}

// startServer starts the HTTP server and handles errors
func (s *Server) startServer() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
