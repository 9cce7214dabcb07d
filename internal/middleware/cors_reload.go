package middleware

import (
	"context"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultCORSMaxAge = 86400

// corsPolicy is one loaded generation of CORS settings.
type corsPolicy struct {
	handler     *cors.Cors
	origins     []string
	credentials bool
	maxAge      int
}

func (p *corsPolicy) matches(s *models.CORSSettings) bool {
	return slices.Equal(p.origins, s.AllowedOrigins) && p.credentials == s.AllowCredentials && p.maxAge == s.MaxAge
}

// CORSReloader serves rs/cors with settings re-read from runtime_settings.
// Without stored settings the FRONTEND_URL origins apply.
type CORSReloader struct {
	source   database.CORSSettingsSource
	fallback []string
	log      *zap.Logger
	interval time.Duration
	policy   atomic.Pointer[corsPolicy]
}

// NewCORSReloader loads the initial policy synchronously
func NewCORSReloader(ctx context.Context, source database.CORSSettingsSource, frontendURL string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	fallback := database.ParseOrigins(frontendURL)
	if len(fallback) == 0 {
		fallback = []string{"http://localhost:3000"}
	}
	r := &CORSReloader{
		source:   source,
		fallback: fallback,
		log:      log,
		interval: reloadInterval,
	}
	r.reload(ctx)
	return r
}

// Middleware applies the current policy. Preflights are answered here.
func (r *CORSReloader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.policy.Load().handler.ServeHTTP(w, req, next.ServeHTTP)
	})
}

// OriginAllowed reports whether the request's Origin passes the current policy.
// The notification websocket uses it as its handshake origin check.
func (r *CORSReloader) OriginAllowed(req *http.Request) bool {
	if req.Header.Get("Origin") == "" {
		return true
	}
	return r.policy.Load().handler.OriginAllowed(req)
}

// Origins returns the origins of the current policy
func (r *CORSReloader) Origins() []string {
	return slices.Clone(r.policy.Load().origins)
}

// Start re-reads the settings every interval until ctx is cancelled
func (r *CORSReloader) Start(ctx context.Context) {
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

func (r *CORSReloader) reload(ctx context.Context) {
	settings, err := r.source.CORS(ctx)
	if err != nil {
		if r.policy.Load() != nil {
			r.log.Warn("cors_settings_reload_failed_keeping_current", zap.Error(err))
			return
		}
		r.log.Warn("cors_settings_load_failed_using_frontend_url", zap.Error(err))
	}
	if settings == nil || len(settings.AllowedOrigins) == 0 {
		settings = &models.CORSSettings{
			AllowedOrigins:   r.fallback,
			AllowCredentials: true,
			MaxAge:           defaultCORSMaxAge,
		}
	}

	if current := r.policy.Load(); current != nil && current.matches(settings) {
		return
	}
	r.policy.Store(buildCORSPolicy(settings))
	r.log.Info("cors_policy_loaded",
		zap.Strings("origins", settings.AllowedOrigins),
		zap.Bool("allow_credentials", settings.AllowCredentials),
	)
}

func buildCORSPolicy(s *models.CORSSettings) *corsPolicy {
	origins := slices.Clone(s.AllowedOrigins)
	return &corsPolicy{
		origins:     origins,
		credentials: s.AllowCredentials,
		maxAge:      s.MaxAge,
		handler: cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowCredentials: s.AllowCredentials,
			MaxAge:           s.MaxAge,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			ExposedHeaders:   []string{"X-Ratelimit-Limit", "X-Ratelimit-Remaining", "X-Ratelimit-Reset", "Content-Disposition"},
		}),
	}
}
