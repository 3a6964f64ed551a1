package main

import (
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/philippkemmeter/mvcfun/internal/config"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/response"
	"github.com/philippkemmeter/mvcfun/internal/router"
	"github.com/philippkemmeter/mvcfun/internal/server"
)

const (
	rateLimit       = 100
	rateLimitWindow = time.Minute
)

func provideConfig() config.Config {
	return config.Load()
}

func provideLogger(out io.Writer, cfg config.Config) *logging.SlogLogger {
	logger := logging.New(cfg.LogLevel, logging.WithWriter(out))
	logger.SetDefault()
	return logger
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideManagers(cfg config.Config, logger *logging.SlogLogger) *response.Set {
	return response.NewSet(response.WithCharset(cfg.Charset), response.WithLogger(logger))
}

func provideRouter(cfg config.Config, reg *prometheus.Registry, logger *logging.SlogLogger) (*router.Router, error) {
	r := router.New(router.WithLogger(logger), router.WithMetrics(router.NewMetrics(reg)))
	if err := registerControllers(r, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

func provideServer(cfg config.Config, r *router.Router, managers *response.Set, reg *prometheus.Registry, logger *logging.SlogLogger) (*server.Server, func()) {
	srv := server.New(cfg.Server(), r,
		server.WithLogger(logger),
		server.WithManagers(managers),
		server.WithMetrics(server.NewMetrics(reg)),
	)

	limiter := server.NewRateLimiter(rateLimit, rateLimitWindow)
	srv.Use(server.RequestID())
	srv.Use(server.Logging(logger))
	srv.Use(server.MetricsMiddleware(srv.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		cors := server.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.CORSOrigins
		srv.Use(server.CORS(cors))
	}
	srv.Use(server.RateLimit(limiter))

	return srv, limiter.Stop
}

// provideAdminServer returns nil when the admin address is empty.
func provideAdminServer(cfg config.Config, srv *server.Server, r *router.Router, reg *prometheus.Registry) *http.Server {
	if cfg.AdminAddr == "" {
		return nil
	}
	return &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           server.NewAdminHandler(srv, r, reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
