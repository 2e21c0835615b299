// Package server assembles the HTTP surface: middleware, API routes and the
// streaming endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	analytics_api "eventsphere/internal/analytics/api"
	"eventsphere/internal/attendee/attendee_api"
	"eventsphere/internal/auth"
	"eventsphere/internal/booth/booth_api"
	"eventsphere/internal/config"
	"eventsphere/internal/expo/expo_api"
	"eventsphere/internal/logger"
	"eventsphere/internal/message/message_api"
	"eventsphere/internal/metrics"
	"eventsphere/internal/notify/notify_api"
	"eventsphere/internal/registration/registration_api"
	"eventsphere/internal/schedule/schedule_api"
	"eventsphere/internal/utils"
)

// Deps is everything the router mounts. Redis may be nil.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *bun.DB
	Redis  *redis.Client
	Tokens *auth.Tokens

	Auth          *auth.Handler
	Expos         *expo_api.Handler
	Booths        *booth_api.Handler
	Registrations *registration_api.Handler
	Schedules     *schedule_api.Handler
	Attendees     *attendee_api.Handler
	Messages      *message_api.Handler
	Analytics     *analytics_api.Handler
	Stream        *notify_api.Handler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(RequestLogger(d.Logger))

	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Handle("/ws", d.Stream.WebSocket())

	limit := auth.RateLimit(d.Config.RateLimit, d.Redis, "auth", d.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", Health(d.DB, d.Redis))

		d.Auth.RegisterRoutes(r, d.Tokens, limit)
		d.Expos.RegisterRoutes(r, d.Tokens)
		d.Booths.RegisterRoutes(r, d.Tokens)
		d.Registrations.RegisterRoutes(r, d.Tokens)
		d.Schedules.RegisterRoutes(r, d.Tokens)
		d.Attendees.RegisterRoutes(r, d.Tokens)
		d.Messages.RegisterRoutes(r, d.Tokens)
		d.Analytics.RegisterRoutes(r, d.Tokens)
		d.Stream.RegisterRoutes(r)
	})
	return r
}

// RequestLogger logs every request and records its latency by route pattern.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), elapsed.String())
		})
	}
}

type healthReport struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Health pings the database and Redis. A Redis failure degrades the report
// without failing it.
func Health(db *bun.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := healthReport{Database: "ok", Redis: "disabled"}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			report.Database = fmt.Sprintf("error: %v", err)
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			report.Redis = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				report.Redis = fmt.Sprintf("degraded: %v", err)
			}
		}

		if status == http.StatusOK {
			utils.WriteSuccess(w, status, "healthy", report)
			return
		}
		utils.WriteJSON(w, status, utils.APIResponse{Success: false, Message: "unhealthy", Data: report, Timestamp: time.Now().UTC()})
	}
}
