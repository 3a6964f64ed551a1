package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
	"github.com/philippkemmeter/mvcfun/internal/server"
)

type Config struct {
	Addr           string
	AdminAddr      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBody        int64
	MaxHeaderBytes int
	AllowedMethods []string
	LogLevel       string
	HtdocsDir      string
	Charset        string
	CORSOrigins    []string
}

func Load() Config {
	defaults := server.DefaultConfig()
	return Config{
		Addr:           getEnv("MVCFUN_ADDR", defaults.Addr),
		AdminAddr:      getEnvAllowEmpty("MVCFUN_ADMIN_ADDR", ":2112"),
		ReadTimeout:    getEnvDuration("MVCFUN_READ_TIMEOUT", defaults.ReadTimeout),
		WriteTimeout:   getEnvDuration("MVCFUN_WRITE_TIMEOUT", defaults.WriteTimeout),
		IdleTimeout:    getEnvDuration("MVCFUN_IDLE_TIMEOUT", defaults.IdleTimeout),
		MaxBody:        int64(getEnvInt("MVCFUN_MAX_BODY", server.DefaultMaxRequestBodySize)),
		MaxHeaderBytes: getEnvInt("MVCFUN_MAX_HEADER_BYTES", request.DefaultMaxHeaderBytes),
		AllowedMethods: getEnvList("MVCFUN_ALLOWED_METHODS", server.DefaultAllowedMethods),
		LogLevel:       getEnv("MVCFUN_LOG_LEVEL", "info"),
		HtdocsDir:      getEnv("MVCFUN_HTDOCS", controller.DefaultHtdocsDir),
		Charset:        getEnv("MVCFUN_CHARSET", response.DefaultCharset),
		CORSOrigins:    splitList(os.Getenv("MVCFUN_CORS_ORIGINS")),
	}
}

// Server converts the settings into the server's configuration.
func (c Config) Server() server.Config {
	return server.Config{
		Addr:               c.Addr,
		ReadTimeout:        c.ReadTimeout,
		WriteTimeout:       c.WriteTimeout,
		IdleTimeout:        c.IdleTimeout,
		MaxHeaderBytes:     c.MaxHeaderBytes,
		MaxRequestBodySize: c.MaxBody,
		AllowedMethods:     append([]string(nil), c.AllowedMethods...),
	}
}

// Log writes the effective configuration, one entry per setting.
func Log(logger logging.Logger, cfg Config) {
	logger.Info("config", logging.String("MVCFUN_ADDR", cfg.Addr))
	if cfg.AdminAddr != "" {
		logger.Info("config", logging.String("MVCFUN_ADMIN_ADDR", cfg.AdminAddr))
	} else {
		logger.Info("config", logging.String("MVCFUN_ADMIN_ADDR", "(disabled)"))
	}
	logger.Info("config", logging.String("MVCFUN_READ_TIMEOUT", cfg.ReadTimeout.String()))
	logger.Info("config", logging.String("MVCFUN_WRITE_TIMEOUT", cfg.WriteTimeout.String()))
	logger.Info("config", logging.String("MVCFUN_IDLE_TIMEOUT", cfg.IdleTimeout.String()))
	if cfg.MaxBody < 0 {
		logger.Info("config", logging.String("MVCFUN_MAX_BODY", "(unlimited)"))
	} else {
		logger.Info("config", logging.Any("MVCFUN_MAX_BODY", cfg.MaxBody))
	}
	logger.Info("config", logging.Int("MVCFUN_MAX_HEADER_BYTES", cfg.MaxHeaderBytes))
	logger.Info("config", logging.String("MVCFUN_ALLOWED_METHODS", strings.Join(cfg.AllowedMethods, ",")))
	logger.Info("config", logging.String("MVCFUN_LOG_LEVEL", cfg.LogLevel))
	logger.Info("config", logging.String("MVCFUN_HTDOCS", cfg.HtdocsDir))
	logger.Info("config", logging.String("MVCFUN_CHARSET", cfg.Charset))
	if len(cfg.CORSOrigins) > 0 {
		logger.Info("config", logging.String("MVCFUN_CORS_ORIGINS", strings.Join(cfg.CORSOrigins, ",")))
	} else {
		logger.Info("config", logging.String("MVCFUN_CORS_ORIGINS", "(disabled)"))
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAllowEmpty returns fallback only when key is unset, so that an
// empty value can switch a feature off.
func getEnvAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvList reads an upper-cased comma separated list.
func getEnvList(key string, fallback []string) []string {
	out := splitList(os.Getenv(key))
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	for i, item := range out {
		out[i] = strings.ToUpper(item)
	}
	return out
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
