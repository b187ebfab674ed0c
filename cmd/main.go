package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PapNorbert/WatchWise/internal/config"
	chatgrpc "github.com/PapNorbert/WatchWise/internal/grpc"
	"github.com/PapNorbert/WatchWise/internal/handler"
	"github.com/PapNorbert/WatchWise/internal/hub"
	"github.com/PapNorbert/WatchWise/internal/kafka"
	"github.com/PapNorbert/WatchWise/internal/relay"
	"github.com/PapNorbert/WatchWise/internal/service"
	"github.com/PapNorbert/WatchWise/internal/store"
	"github.com/PapNorbert/WatchWise/pkg/database"
	"github.com/PapNorbert/WatchWise/pkg/log"
	"github.com/PapNorbert/WatchWise/pkg/pubsub"
	"github.com/PapNorbert/WatchWise/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	instanceID := cfg.Chat.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	cfg.Log.InstanceID = instanceID
	log.Init(cfg.Log)
	l := log.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chatStore, err := newChatStore(cfg)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to initialize chat store")
	}
	defer chatStore.Close()

	rly, err := newRelay(cfg, instanceID)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to initialize relay")
	}

	var producer kafka.MessageProducer = kafka.NoopProducer{}
	if cfg.Events.Enabled {
		producer, err = kafka.NewConfluentProducer(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Partitions)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to initialize kafka producer")
		}
		l.Info().Str("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("chat event feed enabled")
	}

	blobs, err := storage.New(ctx, cfg.Archive.Storage)
	if err != nil {
		// Archiving is optional; the chat path does not depend on it.
		l.Warn().Err(err).Str("driver", cfg.Archive.Storage.Driver).Msg("archive storage unavailable")
	}

	// Initialize Hub
	wsHub := hub.NewHub(cfg.WebSocket)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		wsHub.Run(hubCtx)
		close(hubDone)
	}()

	history := service.NewHistoryReader(chatStore)
	chatSvc := service.NewChatService(wsHub, service.NewMessagePersister(chatStore, cfg.Chat.MaxBodyLength), history, rly, producer)
	chatLogSvc := service.NewChatLogService(chatStore, history, blobs, cfg.Archive.URLExpiry)

	if err := chatSvc.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to start chat service")
	}

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(l))

	handler.NewHTTPHandler(chatLogSvc).RegisterRoutes(router)
	handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket).RegisterRoutes(router)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("address", server.Addr).Msg("chat gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcServer *chatgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer, err = chatgrpc.NewServer(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port), l)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to start grpc server")
		}
		g.Go(grpcServer.Serve)
		grpcServer.SetServing(true)
	}

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down chat gateway")

		if grpcServer != nil {
			grpcServer.SetServing(false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("http server forced to shutdown")
		}

		stopHub()
		<-hubDone

		if err := chatSvc.Stop(); err != nil {
			l.Error().Err(err).Msg("failed to stop chat service")
		}
		if grpcServer != nil {
			grpcServer.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("chat gateway exited with error")
	}
	l.Info().Msg("chat gateway stopped")
}

func newChatStore(cfg *config.Config) (store.ChatStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return store.NewMemoryChatStore(), nil
	case config.StoreDriverGorm:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		s := store.NewGormChatStore(db)
		if cfg.Store.AutoMigrate {
			if err := s.Migrate(); err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to migrate chat tables: %w", err)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newRelay gives every instance its own kafka consumer group so each one
// sees every committed message.
func newRelay(cfg *config.Config, instanceID string) (relay.Relay, error) {
	if cfg.PubSub.Driver == "" || cfg.PubSub.Driver == pubsub.DriverNone {
		return relay.NoopRelay{}, nil
	}

	psCfg := cfg.PubSub
	psCfg.Kafka.GroupID = fmt.Sprintf("%s-%s", psCfg.Kafka.GroupID, instanceID)
	ps, err := pubsub.NewPubSub(psCfg)
	if err != nil {
		return nil, err
	}
	return relay.NewPubSubRelay(ps, instanceID), nil
}
