package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/artchain-labs/nft-broker/pkg/archive"
	"github.com/artchain-labs/nft-broker/pkg/broker"
	"github.com/artchain-labs/nft-broker/pkg/ethereum"
	"github.com/artchain-labs/nft-broker/pkg/journal"
	"github.com/artchain-labs/nft-broker/pkg/observability"
	"github.com/artchain-labs/nft-broker/pkg/redis"
	"github.com/artchain-labs/nft-broker/pkg/txmgr"
	"github.com/artchain-labs/nft-broker/pkg/watcher"
	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	log       logrus.FieldLogger
	config    *Config
	namespace string

	redis   *r.Client
	pool    *ethereum.Pool
	archive *archive.Client
	watcher *watcher.Manager
	broker  *broker.Service

	pprofServer  *http.Server
	healthServer *http.Server
}

func NewServer(ctx context.Context, log logrus.FieldLogger, namespace string, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pool, err := ethereum.NewPool(log.WithField("component", "ethereum"), &config.Ethereum)
	if err != nil {
		return nil, fmt.Errorf("failed to create node pool: %w", err)
	}

	txManager, err := txmgr.NewManager(log.WithField("component", "txmgr"), &config.Transactions, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}

	var (
		redisClient *r.Client
		jrnl        *journal.Journal
	)

	if config.Redis != nil {
		redisClient, err = redis.New(config.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		jrnl = journal.NewJournal(log.WithField("component", "journal"), redisClient, config.Redis.Prefix, config.JournalTTL)
	}

	var (
		archiveClient *archive.Client
		watchManager  *watcher.Manager
		archiver      broker.ArchiveEnqueuer
	)

	if config.Archive != nil {
		archiveClient, err = archive.New(log.WithField("component", "archive"), config.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}

		watchManager, err = watcher.NewManager(log.WithField("component", "watcher"), &config.Watcher, redisClient, pool, archiveClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}

		archiver = watchManager
	}

	brokerService, err := broker.NewService(log.WithField("component", "broker"), &config.Broker, pool, txManager, jrnl, archiver)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}

	return &Server{
		config:    config,
		log:       log,
		namespace: namespace,
		redis:     redisClient,
		pool:      pool,
		archive:   archiveClient,
		watcher:   watchManager,
		broker:    brokerService,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Start metrics server
	g.Go(func() error {
		observability.StartMetricsServer(ctx, s.config.MetricsAddr)

		return nil
	})

	// Start pprof server if configured
	if s.config.PProfAddr != nil {
		g.Go(func() error {
			if err := s.startPProf(); err != nil && err != http.ErrServerClosed {
				return err
			}

			return nil
		})
	}

	// Start health check server if configured
	if s.config.HealthCheckAddr != nil {
		g.Go(func() error {
			if err := s.startHealthCheck(); err != nil && err != http.ErrServerClosed {
				return err
			}

			return nil
		})
	}

	// Connect the broker. This starts the node pool and blocks until a
	// healthy node on the configured network is available.
	if err := s.broker.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect broker: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.Start(ctx); err != nil {
			return fmt.Errorf("failed to start archive: %w", err)
		}
	}

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		return s.stop(ctx)
	})

	return g.Wait()
}

func (s *Server) stop(ctx context.Context) error {
	// Create a timeout context for cleanup
	cleanupCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if s.broker != nil {
		if err := s.broker.Close(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to close broker")
		}
	}

	if s.watcher != nil {
		s.log.Info("Stopping watcher...")

		if err := s.watcher.Stop(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to stop watcher")
		}
	}

	if s.archive != nil {
		if err := s.archive.Stop(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to stop archive")
		}
	}

	// Close Redis connection
	if s.redis != nil {
		s.log.Info("Closing Redis connection...")

		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Error("failed to close redis")
		}
	}

	// Shutdown HTTP servers
	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	s.log.Info("Broker stopped gracefully")

	return nil
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}

func (s *Server) startHealthCheck() error {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	s.healthServer.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.healthServer.ListenAndServe()
}
