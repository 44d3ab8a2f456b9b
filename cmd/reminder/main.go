package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"medication_reminder_bot/internal/app"
	"medication_reminder_bot/internal/domain/messaging"
	"medication_reminder_bot/internal/infra/config"
	idb "medication_reminder_bot/internal/infra/database"
	"medication_reminder_bot/internal/infra/events"
	"medication_reminder_bot/internal/infra/lock"
	"medication_reminder_bot/internal/infra/logger"
	"medication_reminder_bot/internal/infra/metrics"
	"medication_reminder_bot/internal/infra/scheduler"
	"medication_reminder_bot/internal/infra/telegram"
	"medication_reminder_bot/internal/infra/whatsapp"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	log := logger.New(cfg)
	mainLogger := logger.Component(log, "main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.CronTimezone.String(),
		"provider":    cfg.MessagingProvider,
	}).Info("Medication reminder bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if cfg.DBMigrate {
		if err := idb.MigrateUp(db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database migrations")
		}
		mainLogger.Info("Database migrations applied.")
	}

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	medicationRepo := idb.NewPostgresMedicationRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)

	// Telegram bot: operator commands, and the gateway when MESSAGING_PROVIDER=telegram
	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		botLogger := logger.Component(log, "telebot")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			Client: &http.Client{Timeout: cfg.SendTimeout + 10*time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
	}

	var gateway messaging.Gateway
	switch cfg.MessagingProvider {
	case config.ProviderTelegram:
		gateway = telegram.NewBotAdapter(bot)
	default:
		gateway = whatsapp.NewClient(whatsapp.Config{
			APIURL:     cfg.GreenAPIURL,
			InstanceID: cfg.GreenAPIInstance,
			Token:      cfg.GreenAPIToken,
		}, nil)
		if !cfg.GreenAPIConfigured() {
			mainLogger.Warn("Green-API not configured. Reminders will be logged as pending. Set GREEN_API_URL, GREEN_API_ID_INSTANCE, GREEN_API_TOKEN_INSTANCE.")
		}
	}

	// Optional outcome fan-out
	var publishers []app.OutcomePublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.DialRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQOutcomeQueue)
		if err != nil {
			mainLogger.WithError(err).Warn("RabbitMQ unavailable. Outcomes are only stored in the database.")
		} else {
			defer rabbit.Close()
			publishers = append(publishers, rabbit)
			mainLogger.WithField("queue", cfg.RabbitMQOutcomeQueue).Info("Publishing outcomes to RabbitMQ.")
		}
	}

	reminderCfg := app.ReminderConfig{
		Location:      cfg.CronTimezone,
		Pacer:         app.FixedDelay(cfg.MessageDelay),
		SendTimeout:   cfg.SendTimeout,
		LookupTimeout: cfg.TickTimeout,
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			mainLogger.WithError(err).Warn("Redis connection failed. Tick lease will be retried on every tick.")
		}
		reminderCfg.TickLock = lock.NewRedisTickLock(rdb)
	}

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		promMetrics := metrics.NewPrometheusMetrics()
		reminderCfg.Metrics = promMetrics
		metricsServer = metrics.NewServer(cfg.MetricsAddr, promMetrics, logger.Component(log, "metrics"))
		metricsServer.Start()
	}

	outcomeLogger := app.NewOutcomeLogger(notificationRepo, logger.Component(log, "outcome_logger"), publishers...)
	reminderService := app.NewReminderService(medicationRepo, userRepo, outcomeLogger, gateway, reminderCfg, logger.Component(log, "reminder_service"))
	previewService := app.NewPreviewService(reminderService, medicationRepo, userRepo)
	instructionsService := app.NewInstructionsService(reminderService, medicationRepo, userRepo)
	historyService := app.NewHistoryService(notificationRepo, nil)
	adminService := app.NewAdminService(userRepo, reminderService, previewService, instructionsService, historyService, cfg.AdminTelegramID)

	reminderScheduler := scheduler.NewReminderScheduler(
		reminderService,
		logger.Component(log, "scheduler"),
		cfg.CronTimezone,
		cfg.CronSpecReminder,
		cfg.RunOnStart,
	)
	if err := reminderScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reminder scheduler")
	}

	if bot != nil {
		handlersLogger := logger.Component(log, "telegram")
		telegram.RegisterBotCommands(bot, adminService, handlersLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, handlersLogger)
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		mainLogger.Info("Telegram bot started.")
	}

	mainLogger.Info("Application setup complete.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	reminderScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("Metrics server did not shut down cleanly")
		}
		cancel()
	}
	mainLogger.Info("Application shut down gracefully.")
}
