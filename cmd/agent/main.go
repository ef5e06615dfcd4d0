package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/api"
	"github.com/raushanprabhakar1/voice-agent/internal/config"
	"github.com/raushanprabhakar1/voice-agent/internal/database"
	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/events"
	"github.com/raushanprabhakar1/voice-agent/internal/logging"
	"github.com/raushanprabhakar1/voice-agent/internal/metrics"
	"github.com/raushanprabhakar1/voice-agent/internal/schedule"
	"github.com/raushanprabhakar1/voice-agent/internal/service"
	"github.com/raushanprabhakar1/voice-agent/internal/session"
	"github.com/raushanprabhakar1/voice-agent/internal/tools"
	"github.com/raushanprabhakar1/voice-agent/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "agent-main").Logger()

	metrics.Register()

	store, err := database.NewStore(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := initSessionRepository(ctx, cfg, &logger)

	eventBus := events.NewEventBus()
	subscribeAppointmentEvents(eventBus, baseLogger)

	retryPolicy := worker.RetryPolicy{
		MaxRetries:    cfg.Worker.MaxRetries,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
	summaryWorker := worker.NewSummaryWorker(store, cfg.Worker.QueueSize, retryPolicy, &logger)
	go summaryWorker.Start(ctx)

	calendar := schedule.New(schedule.Template(cfg.Scheduling.Template), cfg.Scheduling.HorizonDays)
	ledger := service.NewLedger(store, calendar, eventBus, &logger)
	dispatcher := tools.NewDispatcher(ledger, sessions, summaryWorker, &logger)

	server := api.NewHTTPServer(cfg, dispatcher, sessions, &logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func initSessionRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.SessionRepository {
	memory := session.NewMemorySessionRepository(cfg.Session.TTL())
	if !cfg.Redis.Enabled {
		return memory
	}

	client := session.NewRedisClient(cfg.Redis)
	if err := session.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable at startup, sessions start on memory fallback")
	}
	redisRepo := session.NewRedisSessionRepository(client, cfg.Session.TTL())
	return session.NewFailoverSessionRepository(redisRepo, memory, logger)
}

func subscribeAppointmentEvents(bus *events.EventBus, logger *zerolog.Logger) {
	eventLogger := logger.With().Str("component", "events").Logger()
	handler := func(event *events.Event) error {
		eventLogger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("Appointment event")
		return nil
	}
	bus.Subscribe(events.EventAppointmentBooked, handler)
	bus.Subscribe(events.EventAppointmentCancelled, handler)
	bus.Subscribe(events.EventAppointmentModified, handler)
}
