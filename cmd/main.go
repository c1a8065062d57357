/**
 * @description
 * This is the main entry point for the checkout-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Local .env loading for development.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/*: Clients for the payment backend, processors, call scheduling and RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/will383842/Outil-sos-expat-sub004/internal/api"
	"github.com/will383842/Outil-sos-expat-sub004/internal/app"
	"github.com/will383842/Outil-sos-expat-sub004/internal/config"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/callclient"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/cardclient"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/gatewayclient"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/intentclient"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/rabbitmq"
	"github.com/will383842/Outil-sos-expat-sub004/pkg/redirectclient"
)

func main() {
	// Load .env for local development; in deployed environments the variables
	// are injected directly.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found, relying on environment variables\"")
	}

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.PaymentBackendURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"payment backend url must be configured\" env=PAYMENT_BACKEND_URL")
	}

	log.Printf("level=info component=bootstrap msg=\"starting checkout-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish provider notification events.
	// A missing broker degrades to a logging fallback; checkout must not block
	// on the notification pipeline.
	var publisher rabbitmq.Publisher
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		publisher = &rabbitmq.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		publisher = rabbitProducer
	}

	// Optional Redis-backed gateway decision cache. Without Redis, decisions
	// are cached in process memory only.
	var decisionCache app.DecisionCache = app.NewMemoryDecisionCache()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; using in-memory gateway cache\" err=%v", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; using in-memory gateway cache\" err=%v", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
				decisionCache = app.NewRedisDecisionCache(redisClient, cfg.GatewayCachePrefix)
			}
		}
	}

	// Initialize clients for the payment backend and the processors.
	intentClient := intentclient.NewClient(cfg.PaymentBackendURL, cfg.PaymentBackendAPIKey)
	gatewayClient := gatewayclient.NewClient(cfg.PaymentBackendURL, cfg.PaymentBackendAPIKey)
	cardChannel := cardclient.NewClient(cfg.CardProcessorURL, cfg.CardProcessorAPIKey)
	redirectChannel := redirectclient.NewClient(cfg.RedirectProcessorURL, cfg.RedirectProcessorAPIKey)
	callScheduling := callclient.NewClient(cfg.CallServiceURL, cfg.CallServiceAPIKey)

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the orchestration components.
	pricing := app.NewPricingResolver(repository, cfg.MinAmountCents, cfg.MaxAmountCents)
	gateway := app.NewGatewayRouter(decisionCache, gatewayClient)
	persistence := app.NewOrderPersistenceService(repository)
	scheduler := app.NewCallSchedulingAdapter(callScheduling, cfg.CallDelayMinutes)
	notifier := app.NewNotificationDispatcher(repository, publisher, cfg.NotificationLocale)

	controller := app.NewPaymentSubmissionController(
		intentClient,
		map[domain.PaymentChannel]app.ChannelConfirmer{
			domain.ChannelCard:     cardChannel,
			domain.ChannelRedirect: redirectChannel,
		},
		persistence,
		scheduler,
		notifier,
		app.ControllerConfig{
			MinAmountCents:     cfg.MinAmountCents,
			MaxAmountCents:     cfg.MaxAmountCents,
			ConfirmAmountCents: cfg.ConfirmAmountCents,
			ChallengeTimeout:   time.Duration(cfg.ChallengeTimeoutMinutes) * time.Minute,
			RPCTimeout:         time.Duration(cfg.RPCTimeoutSeconds) * time.Second,
		},
	)

	checkoutService := app.NewService(pricing, gateway, controller)

	// Start the stale payment sweeper.
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(repository, slogger, time.Duration(cfg.StaleAgeMinutes)*time.Minute)
	sweeper := app.NewSweeper(jobs, slogger, cfg.StaleSweepSchedule)
	sweeper.Start()

	// Initialize the API handlers.
	checkoutHandlers := api.NewCheckoutHandlers(checkoutService, repository)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.CheckoutRoutes(checkoutHandlers, cfg.JWKSURL))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}
	<-sweeper.Stop().Done()

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
