package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/handler"
	"github.com/Koyo-os/survey-service/internal/repository"
	"github.com/Koyo-os/survey-service/internal/repository/mongostore"
	"github.com/Koyo-os/survey-service/internal/service"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/Koyo-os/survey-service/pkg/closer"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/health"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/Koyo-os/survey-service/pkg/retrier"
	"github.com/Koyo-os/survey-service/pkg/transport/casher"
	"github.com/Koyo-os/survey-service/pkg/transport/consumer"
	"github.com/Koyo-os/survey-service/pkg/transport/listener"
	"github.com/Koyo-os/survey-service/pkg/transport/publisher"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	connectRetries = 5
	connectSleep   = 2 // seconds

	cacheWriteTimeout = 5 * time.Second
	eventBuffer       = 64
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Init(configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error init config %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logCfg := logger.Config{
		LogFile:   cfg.Log.File,
		LogLevel:  cfg.Log.Level,
		AppName:   cfg.AppName,
		AddCaller: true,
	}

	if err = logger.Init(logCfg); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	log.Info("service stopped")
}

type store interface {
	service.Repository
	health.Healther
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store, error) {
	if cfg.Store.Kind == config.StoreMongo {
		client, err := retrier.Connect(connectRetries, connectSleep, func() (*mongo.Client, error) {
			return mongostore.Connect(ctx, cfg.Urls.Mongo)
		})
		if err != nil {
			return nil, fmt.Errorf("error connect to mongo: %w", err)
		}
		return mongostore.Init(ctx, client, cfg.Store.MongoDatabase, log)
	}

	db, err := retrier.Connect(connectRetries, connectSleep, func() (*gorm.DB, error) {
		return repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	})
	if err != nil {
		return nil, fmt.Errorf("error connect to database: %w", err)
	}
	return repository.Init(db, log), nil
}

func dialRabbit(url string) (*amqp.Connection, error) {
	return retrier.Connect(connectRetries, connectSleep, func() (*amqp.Connection, error) {
		return amqp.Dial(url)
	})
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	closers := closer.NewCloserGroup()
	defer func() {
		if err := closers.Close(); err != nil {
			log.Error("error closing resources", zap.Error(err))
		}
	}()

	checker := health.NewHealthChecker(log)

	repo, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers.Add(repo)
	checker.Register("store", repo)

	rdb, err := retrier.Connect(connectRetries, connectSleep, func() (*redis.Client, error) {
		return casher.Connect(ctx, cfg.Urls.Redis)
	})
	if err != nil {
		return fmt.Errorf("error connect to redis: %w", err)
	}
	cache := casher.Init(rdb, log, cfg.CacheTTL)
	closers.Add(cache)
	checker.Register("cache", cache)

	var pub service.Publisher
	switch cfg.Broker.Kind {
	case config.BrokerKafka:
		kafkaPub := publisher.InitKafka(cfg.Urls.Kafka, cfg.Broker.Topic, log)
		closers.Add(kafkaPub)
		pub = kafkaPub
	default:
		conn, err := dialRabbit(cfg.Urls.Rabbitmq)
		if err != nil {
			return fmt.Errorf("error connect to rabbitmq: %w", err)
		}
		rabbitPub, err := publisher.Init(cfg, log, conn)
		if err != nil {
			return err
		}
		closers.Add(rabbitPub)
		checker.Register("publisher", rabbitPub)
		pub = rabbitPub
	}

	// the consumer reconnects on its own, so it gets a connection of its own
	consumerConn, err := dialRabbit(cfg.Urls.Rabbitmq)
	if err != nil {
		return fmt.Errorf("error connect to rabbitmq: %w", err)
	}
	cons, err := consumer.Init(cfg, log, consumerConn)
	if err != nil {
		return err
	}
	closers.Add(cons)
	checker.Register("consumer", cons)

	svc := service.Init(cache, repo, pub, log, cacheWriteTimeout)
	closers.Add(closer.Func(func() error {
		svc.Wait()
		return nil
	}))

	tokens := session.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	api := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Init(svc, tokens, log).Routes(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	events := make(chan entity.Event, eventBuffer)
	list := listener.Init(events, log, cfg, svc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cons.ConsumeMessages(gctx, events)
		return nil
	})
	g.Go(func() error {
		list.Listen(gctx)
		return nil
	})
	g.Go(func() error {
		return health.RunServer(gctx, api, log)
	})
	g.Go(func() error {
		return checker.Serve(gctx, cfg.HTTP.HealthAddr)
	})

	log.Info("survey service started",
		zap.String("http", cfg.HTTP.Addr),
		zap.String("health", cfg.HTTP.HealthAddr),
		zap.String("store", cfg.Store.Kind),
		zap.String("broker", cfg.Broker.Kind))

	return g.Wait()
}
