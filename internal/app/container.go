package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gig-match/internal/config"
	"gig-match/internal/database"
	"gig-match/internal/database/migration"
	dbpostgres "gig-match/internal/database/postgres"
	"gig-match/internal/domain/match"
	"gig-match/internal/infrastructure/cache"
	"gig-match/internal/infrastructure/lock"
	"gig-match/internal/logger"
	"gig-match/internal/notify"
	"gig-match/internal/pkg/jwt"
	"gig-match/internal/repository"
	"gig-match/internal/repository/memory"
	"gig-match/internal/usecase"
	"gig-match/internal/ws"
	"gig-match/migrations"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Container owns every long-lived dependency of the server and of matchctl.
type Container struct {
	Config config.Config
	Log    *zap.Logger

	DB    database.DB
	Redis *cache.Redis

	Jobs      repository.JobRepository
	Providers repository.ProviderRepository
	Matches   repository.MatchRepository

	JWT        jwt.Service
	Hub        *ws.Hub
	Dispatcher *notify.Dispatcher
	Matching   *usecase.Matching

	hubStop     chan struct{}
	stopSweep   context.CancelFunc
	stopWorkers context.CancelFunc
}

func NewContainer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{Config: cfg, Log: log}

	if err := c.initStore(ctx); err != nil {
		return nil, err
	}

	c.Redis = cache.NewRedis(cfg.Redis, logger.Component(log, "cache"))
	c.JWT = jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	c.Hub = ws.NewHub(logger.Component(log, "ws"))

	sink := notify.MultiSink{
		notify.NewHubSink(c.Hub),
		notify.NewLogSink(logger.Component(log, "notify")),
	}
	c.Dispatcher = notify.NewDispatcher(sink, cfg.Matching.NotifyWorkers, cfg.Matching.NotifyBuffer, logger.Component(log, "notify"))

	var locker usecase.JobLocker = usecase.NewLocalJobLocker()
	var pending usecase.JSONCache
	if c.Redis.Available() {
		locker = lock.Fallback{
			Primary:     lock.NewRedisJobLocker(c.Redis, cfg.Matching.LockWait, logger.Component(log, "lock")),
			Secondary:   locker,
			Unavailable: cache.ErrUnavailable,
		}
		pending = c.Redis
	}

	c.Matching = usecase.NewMatchingUsecase(usecase.MatchingDeps{
		Jobs:            c.Jobs,
		Providers:       c.Providers,
		Matches:         c.Matches,
		Locker:          locker,
		Cache:           pending,
		Notifier:        c.Dispatcher,
		Log:             logger.Component(log, "matching"),
		MatchTTL:        cfg.Matching.MatchTTL,
		QueryRadiusKm:   cfg.Matching.QueryRadiusKm,
		PendingCacheTTL: cfg.Matching.PendingCacheTTL,
	})

	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Matching.Store {
	case config.StoreMemory:
		c.Log.Warn("[Store] using in-memory store, data is lost on restart")
		c.Jobs = memory.NewJobStore()
		c.Providers = memory.NewProviderStore()
		c.Matches = memory.NewMatchStore()
		return nil

	case config.StorePostgres:
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		db, err := dbpostgres.Connect(cctx, c.Config.Database, logger.Component(c.Log, "db"))
		if err != nil {
			return err
		}
		c.DB = db
		c.Jobs = repository.NewPostgresJobRepository(db)
		c.Providers = repository.NewPostgresProviderRepository(db)
		c.Matches = repository.NewPostgresMatchRepository(db)
		return nil

	default:
		return fmt.Errorf("unknown store %q", c.Config.Matching.Store)
	}
}

// Migrate applies the embedded schema. It is a no-op for the memory store.
func (c *Container) Migrate(ctx context.Context, dir string) ([]migration.Migration, error) {
	if c.DB == nil {
		return nil, nil
	}
	r := migration.Runner{Dir: dir, FS: migrations.FS, Log: logger.Component(c.Log, "migration")}
	return r.Run(ctx, c.DB.SQLDB())
}

// AuthorizeSubscriber lets a user follow the events of a provider profile
// they own. Subscribing to one's own user id is handled by the ws package.
func (c *Container) AuthorizeSubscriber(ctx context.Context, subscriber string, userID uuid.UUID) error {
	providerID, err := uuid.Parse(subscriber)
	if err != nil {
		return usecase.ErrUnauthorized
	}
	return c.Matching.AuthorizeProvider(ctx, providerID, userID)
}

// Start launches the hub, the notification workers and, when an interval is
// configured, the expiry sweeper. They stop on Close.
func (c *Container) Start(ctx context.Context) {
	c.hubStop = make(chan struct{})
	go c.Hub.Run(c.hubStop)

	// Workers outlive ctx so Close can drain what is still queued.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	c.stopWorkers = stopWorkers
	c.Dispatcher.Start(workersCtx)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	c.stopSweep = stopSweep
	if interval := c.Config.Matching.SweepInterval; interval > 0 {
		go c.Matching.Sweeper().Run(sweepCtx, interval, func(expired []match.Match) {
			c.Matching.OnExpired(sweepCtx, expired)
		})
	}
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.stopSweep != nil {
		c.stopSweep()
	}
	// Drain queued events while the workers are still running.
	if c.Dispatcher != nil {
		c.Dispatcher.Close()
	}
	if c.stopWorkers != nil {
		c.stopWorkers()
	}
	if c.hubStop != nil {
		close(c.hubStop)
		c.hubStop = nil
	}

	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
