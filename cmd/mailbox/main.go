package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"mailbox/api"
	"mailbox/api/server"
	"mailbox/auth"
	"mailbox/codec"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/infrastructure/relay"
	"mailbox/infrastructure/verifier"
	"mailbox/moderation"
	"mailbox/repositories"
	"mailbox/runtime/workers"
	"mailbox/services"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT/SIGTERM.
// Returning instead of exiting lets the deferred closes run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	accessKey, err := auth.ParseAccessKeyHash(config.AccessKeyHash)
	if err != nil {
		return fmt.Errorf("ACCESS_KEY_HASH: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backends
	var db *badger.DB
	if config.uses(backendBadger) {
		db, err = badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
	}

	var redisClient *redis.Client
	if config.uses(backendRedis) {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		defer func() { _ = redisClient.Close() }()
		if err = redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
	}

	takeOptions := repositories.TakeOptions{MaxAttempts: config.TakeMaxAttempts, ScanBatch: config.TakeScanBatch}
	var store contract.IMessageStore
	switch config.StoreBackend {
	case backendBadger:
		store = repositories.NewBadgerMessageStore(db, log, takeOptions)
	case backendRedis:
		store = repositories.NewRedisMessageStore(redisClient, log, takeOptions)
	case backendPostgres:
		pg, err := sql.Open("postgres", config.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres opening failed: %w", err)
		}
		defer func() { _ = pg.Close() }()
		postgresStore := repositories.NewPostgresMessageStore(pg, log, takeOptions)
		if err = postgresStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		store = postgresStore
	}

	var cache contract.ITTLCache
	switch config.CacheBackend {
	case backendBadger:
		cache = repositories.NewBadgerTTLCache(db)
	case backendRedis:
		cache = repositories.NewRedisTTLCache(redisClient)
	}

	// 3. External collaborators
	messageRelay, closeRelay, err := buildRelay(config, log)
	if err != nil {
		return err
	}
	defer closeRelay()

	botVerifier := verifier.NewTurnstile(&http.Client{Timeout: config.VerifyTimeout},
		config.TurnstileVerifyURL, config.TurnstileSecretKey, log)

	blocklist, err := moderation.NewBlocklist(splitList(config.ModerationBlocklist))
	if err != nil {
		return fmt.Errorf("moderation blocklist: %w", err)
	}
	moderationClient := &http.Client{Timeout: config.ModerationTimeout}
	sessions := moderation.NewSessionCache(cache, moderationClient, config.ModerationPageURL,
		config.ModerationSessionTTL, log)
	moderator := moderation.NewContentModerator(sessions, blocklist, moderationClient, moderation.CheckConfig{
		CheckURL: config.ModerationCheckURL,
		Type:     config.ModerationCheckType,
		PageURL:  config.ModerationPageURL,
	}, log)

	// 4. Services & HTTP surface
	ingestion := services.NewIngestionService(botVerifier, services.NewRateLimiter(cache, config.RateLimitWindow),
		moderator, store, messageRelay, services.IngestionConfig{
			Rules:                 domain.DefaultRules,
			ModerationAuthRetries: config.ModerationAuthRetries,
			NotifyOnSubmit:        config.NotifyOnSubmit,
		}, log)
	delivery := services.NewDeliveryService(store, messageRelay, log)
	directRelay := services.NewDirectRelayService(messageRelay, domain.RelayRules, blocklist, log)

	if !log.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(api.Handlers{
		Ingestion: server.NewIngestionServer(ingestion, log),
		Delivery:  server.NewDeliveryServer(delivery, log),
		Relay:     server.NewRelayServer(directRelay, log),
		Health:    server.NewHealthServer(store, log),
	}, accessKey, splitList(config.TrustedProxies), log)
	if err != nil {
		return err
	}

	// 5. Supervision
	address := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewHTTPServerWorker(address, router, config.ShutdownTimeout, log))
	if db != nil {
		sup.Add(workers.NewBadgerGCWorker(db, config.GCInterval, log))
		if config.DebugPort > 0 {
			log.Info("Debug Badger inspector available",
				"url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
			database.StartDebugServer(db, config.DebugPort, "/inspect", messageMapper)
		}
	}

	log.Info("Mailbox started", "address", address, "store", config.StoreBackend,
		"cache", config.CacheBackend, "relay", config.RelayKind)
	sup.Run(ctx)
	log.Info("Program stopped cleanly")
	return nil
}

// buildRelay returns a nil relay when none is configured, never a typed nil.
func buildRelay(config Config, log *slog.Logger) (contract.IRelay, func(), error) {
	noop := func() {}
	switch config.RelayKind {
	case relayHTTP:
		return relay.NewHTTPRelay(&http.Client{}, config.RelayURL, config.RelayAPIKey, config.RelayTimeout, log), noop, nil
	case relayNATS:
		conn, err := nats.Connect(config.NatsURL, nats.Name("mailbox"), nats.Timeout(config.RelayTimeout))
		if err != nil {
			return nil, noop, fmt.Errorf("nats connection failed: %w", err)
		}
		return relay.NewNATSRelay(conn, config.NatsSubject, log), conn.Close, nil
	case relayKafka:
		writer := relay.NewKafkaWriter(splitList(config.KafkaBrokers), config.KafkaTopic, config.RelayTimeout)
		kafkaRelay := relay.NewKafkaRelay(writer, log)
		return kafkaRelay, func() { _ = kafkaRelay.Close() }, nil
	default:
		return nil, noop, nil
	}
}

// messageMapper renders stored messages in the badger inspector.
func messageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	var message domain.Message
	if err := codec.Unmarshal(val, &message); err != nil {
		row.Type = "RAW"
		return row
	}
	row.Type = "MESSAGE"
	row.Detail = message.Title
	return row
}
