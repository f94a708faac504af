package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bnb-faucet/internal/config"
	"bnb-faucet/internal/service"
	"bnb-faucet/pkg/logger"
)

const burstWindow = time.Minute

// NewRouter 组装 HTTP 路由
func NewRouter(cfg config.ServerConfig, faucetSvc *service.FaucetService) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	claimHandler := NewClaimHandler(faucetSvc)
	networkHandler := NewNetworkHandler(faucetSvc)

	if cfg.BurstPerMinute > 0 {
		router.With(burstLimiter(cfg.BurstPerMinute)).Post("/claim", claimHandler.Claim)
	} else {
		router.Post("/claim", claimHandler.Claim)
	}
	router.Get("/claim", claimHandler.Stats)
	router.Get("/network", networkHandler.GetNetwork)
	router.Get("/health", HandleHealth)
	router.Handle("/metrics", promhttp.Handler())

	if cfg.StaticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return router
}

// burstLimiter 是路由层的粗粒度保护，在请求进入数据库限流之前拦截突发流量
func burstLimiter(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		burstWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":        "Too many requests",
				"rateLimited":  true,
				"blockedUntil": windowReset(w, time.Now()),
			})
		}),
	)
}

// windowReset 读取 httprate 写入的 X-RateLimit-Reset（Unix 秒），缺失时按一个窗口估算
func windowReset(w http.ResponseWriter, now time.Time) time.Time {
	if reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64); err == nil && reset > 0 {
		return time.Unix(reset, 0).UTC()
	}
	return now.Add(burstWindow).UTC()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   ClientIP(r),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("request handled")
	})
}
