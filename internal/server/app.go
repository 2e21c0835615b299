package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"eventsphere/internal/analytics"
	analytics_api "eventsphere/internal/analytics/api"
	"eventsphere/internal/attendee"
	"eventsphere/internal/attendee/attendee_api"
	attendeedb "eventsphere/internal/attendee/db"
	"eventsphere/internal/auth"
	authdb "eventsphere/internal/auth/db"
	"eventsphere/internal/booth"
	"eventsphere/internal/booth/booth_api"
	boothdb "eventsphere/internal/booth/db"
	boothredis "eventsphere/internal/booth/redis"
	"eventsphere/internal/config"
	"eventsphere/internal/expo"
	expodb "eventsphere/internal/expo/db"
	"eventsphere/internal/expo/expo_api"
	"eventsphere/internal/jobs"
	"eventsphere/internal/kafka"
	"eventsphere/internal/logger"
	"eventsphere/internal/message"
	messagedb "eventsphere/internal/message/db"
	"eventsphere/internal/message/message_api"
	"eventsphere/internal/notify"
	"eventsphere/internal/notify/notify_api"
	"eventsphere/internal/registration"
	regdb "eventsphere/internal/registration/db"
	"eventsphere/internal/registration/registration_api"
	"eventsphere/internal/schedule"
	scheduledb "eventsphere/internal/schedule/db"
	"eventsphere/internal/schedule/schedule_api"
)

// App is the fully wired service: stores, domain services, fan-out and the
// background workers.
type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *bun.DB
	Redis  *redis.Client

	Tokens        *auth.Tokens
	Hub           *notify.Hub
	Producer      *kafka.Producer
	Holds         *boothredis.Holds
	Auth          *auth.Service
	Expos         *expo.Service
	Booths        *booth.Service
	Registrations *registration.Service
	Schedules     *schedule.Service
	Attendees     *attendee.Service
	Messages      *message.Service
	Analytics     *analytics.Service

	handler http.Handler
}

// NewApp wires everything. rdb may be nil, in which case holds, caching and
// rate limiting are off.
func NewApp(cfg *config.Config, log *logger.Logger, db *bun.DB, rdb *redis.Client) *App {
	timeout := cfg.Database.OpTimeout
	a := &App{Config: cfg, Logger: log, DB: db, Redis: rdb}

	a.Tokens = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	a.Hub = notify.NewHub(log)

	var pub notify.Publisher = a.Hub
	if cfg.Kafka.Enabled {
		a.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, a.Hub, log)
		pub = a.Producer
	}

	users := &authdb.DB{Bun: db, Timeout: timeout}
	expos := &expodb.DB{Bun: db, Timeout: timeout}
	booths := &boothdb.DB{Bun: db, Timeout: timeout}
	regs := &regdb.DB{Bun: db, Booths: booths, Timeout: timeout}
	schedules := &scheduledb.DB{Bun: db, Timeout: timeout}
	attendees := &attendeedb.DB{Bun: db, Timeout: timeout}
	messages := &messagedb.DB{Bun: db, Timeout: timeout}

	var cache booth.ListCache
	var regCache registration.ListInvalidator
	if rdb != nil {
		a.Holds = boothredis.NewHolds(rdb, cfg.Redis.ReservationHoldTTL, log)
		bc := boothredis.NewBoothCache(rdb, cfg.Redis.BoothCacheTTL, log)
		cache, regCache = bc, bc
	}
	var holds booth.HoldTracker
	var regHolds registration.BoothSideEffects
	if a.Holds != nil {
		holds, regHolds = a.Holds, a.Holds
	}

	a.Auth = auth.NewService(users, a.Tokens, cfg.Auth.BcryptCost, log)
	a.Expos = expo.NewService(expos, log,
		messages.DeleteByExpo, attendees.DeleteByExpo, schedules.DeleteByExpo, regs.DeleteByExpo, booths.DeleteByExpo)
	a.Expos.Cache = regCache
	a.Booths = booth.NewService(booths, expos, users, holds, cache, pub, cfg.Redis.ReservationHoldTTL, log)
	a.Registrations = registration.NewService(regs, expos, regHolds, regCache, pub, log)
	a.Schedules = schedule.NewService(schedules, expos, pub, log)
	a.Attendees = attendee.NewService(attendees, expos, schedules, log)
	a.Messages = message.NewService(messages, expos, users, pub, log)
	a.Analytics = analytics.NewService(analytics.NewDB(db, timeout), expos)

	a.handler = NewRouter(Deps{
		Config:        cfg,
		Logger:        log,
		DB:            db,
		Redis:         rdb,
		Tokens:        a.Tokens,
		Auth:          &auth.Handler{Service: a.Auth, Logger: log},
		Expos:         expo_api.NewHandler(a.Expos, log),
		Booths:        booth_api.NewHandler(a.Booths, log),
		Registrations: registration_api.NewHandler(a.Registrations, log),
		Schedules:     schedule_api.NewHandler(a.Schedules, log),
		Attendees:     attendee_api.NewHandler(a.Attendees, log),
		Messages:      message_api.NewHandler(a.Messages, log),
		Analytics:     analytics_api.NewHandler(a.Analytics, log),
		Stream:        notify_api.NewHandler(a.Hub, a.Tokens, log),
	})
	return a
}

func (a *App) Handler() http.Handler { return a.handler }

// Run starts the background workers and blocks until ctx ends or one fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.Holds.Enabled() {
		a.Holds.EnableExpiryEvents(ctx)
		g.Go(func() error {
			err := a.Holds.Watch(ctx, func(ctx context.Context, boothID, exhibitorID string) {
				_ = a.Booths.ExpireHold(ctx, boothID, exhibitorID)
			})
			if err != nil {
				a.Logger.Error("REDIS", fmt.Sprintf("Hold watcher stopped, relying on the sweeper: %v", err))
			}
			return nil
		})
	}

	if a.Config.Redis.ReservationHoldTTL > 0 {
		sweeper, err := jobs.NewSweeper(ctx, a.Config.Sweeper.Interval, a.Booths.SweepExpired, a.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sweeper.Run(ctx) })
	}

	if a.Producer != nil {
		kc := a.Config.Kafka
		if err := kafka.EnsureTopicsExist(ctx, kc.Brokers, []string{kc.NotificationTopic}, a.Logger); err != nil {
			a.Logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		consumer := kafka.NewConsumer(kc.Brokers, kc.NotificationTopic, instanceGroup(kc.GroupPrefix), a.Logger)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(ctx, a.Hub.Deliver)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// Close flushes the Kafka writer.
func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.Logger.Warn("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

// instanceGroup gives each process its own consumer group so every instance
// sees every notification.
func instanceGroup(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, host, uuid.NewString()[:8])
}
