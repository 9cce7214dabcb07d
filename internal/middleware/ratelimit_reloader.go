package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/metrics"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/devboard/devboard-api/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRate applies until an operator stores another one.
const DefaultRate = "20-S"

const rateLimitPrefix = "devboard_ratelimit"

// NewRateLimitStore returns a Redis backed store shared by every server
// instance, or a process-local store when client is nil.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if client == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}
	return redisstore.NewStoreWithOptions(client, opts)
}

// RateLimitReloader limits API calls per user, re-reading the rate from
// runtime_settings so operators can retune it without a restart.
type RateLimitReloader struct {
	store       limiter.Store
	settings    database.RateLimitSettingsStore
	defaultRate limiter.Rate
	log         *zap.Logger
	interval    time.Duration
	current     atomic.Pointer[limiter.Limiter]
}

// NewRateLimitReloader loads the initial rate synchronously. An unparsable
// defaultRate falls back to DefaultRate.
func NewRateLimitReloader(ctx context.Context, store limiter.Store, settings database.RateLimitSettingsStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	rate, err := limiter.NewRateFromFormatted(defaultRate)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted(DefaultRate)
	}
	r := &RateLimitReloader{
		store:       store,
		settings:    settings,
		defaultRate: rate,
		log:         log,
		interval:    reloadInterval,
	}
	r.current.Store(limiter.New(store, rate))
	r.reload(ctx)
	return r
}

// Rate returns the rate currently enforced
func (r *RateLimitReloader) Rate() limiter.Rate {
	return r.current.Load().Rate
}

// Middleware must run after Auth so requests are keyed by user.
func (r *RateLimitReloader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mw := stdlibmw.NewMiddleware(r.current.Load(),
			stdlibmw.WithKeyGetter(request.RateKey),
			stdlibmw.WithLimitReachedHandler(r.limitReached),
			stdlibmw.WithErrorHandler(r.storeFailed(next)),
		)
		mw.Handler(next).ServeHTTP(w, req)
	})
}

func (r *RateLimitReloader) limitReached(w http.ResponseWriter, req *http.Request) {
	metrics.RecordRejection("rate_limited")
	writeError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, retry after the reset time", r.log)
}

// storeFailed lets requests through when the store is unreachable; an outage
// of Redis should not take the API down with it.
func (r *RateLimitReloader) storeFailed(next http.Handler) stdlibmw.ErrorHandler {
	return func(w http.ResponseWriter, req *http.Request, err error) {
		r.log.Warn("rate_limit_store_unavailable", zap.Error(err))
		next.ServeHTTP(w, req)
	}
}

// Start re-reads the rate every interval until ctx is cancelled
func (r *RateLimitReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

func (r *RateLimitReloader) reload(ctx context.Context) {
	settings, err := r.settings.RateLimit(ctx)
	if err != nil {
		r.log.Warn("rate_limit_settings_reload_failed", zap.Error(err), zap.String("rate", r.Rate().Formatted))
		return
	}
	if settings == nil {
		seed := &models.RateLimitSettings{Rate: r.defaultRate.Formatted}
		if err := r.settings.SetRateLimit(ctx, seed); err != nil {
			r.log.Warn("failed_to_seed_rate_limit_settings", zap.Error(err))
		}
		settings = seed
	}

	rate, err := limiter.NewRateFromFormatted(settings.Rate)
	if err != nil {
		r.log.Error("stored_rate_limit_invalid_keeping_current",
			zap.Error(err),
			zap.String("stored", settings.Rate),
			zap.String("rate", r.Rate().Formatted),
		)
		return
	}
	if rate == r.Rate() {
		return
	}
	r.current.Store(limiter.New(r.store, rate))
	r.log.Info("rate_limit_loaded", zap.String("rate", rate.Formatted))
}
