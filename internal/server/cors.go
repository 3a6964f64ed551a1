package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/response"
)

// CORSConfig configures the CORS middleware. An origin of "*" allows any
// origin.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows every origin, for development.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         12 * time.Hour,
	}
}

// CORS adds the Access-Control headers for allowed origins and answers
// preflight requests itself with an empty 200. Other OPTIONS requests
// reach the controllers.
func CORS(cfg CORSConfig) Middleware {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowedHeaders, ", ")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *controller.Context) {
			origin := ctx.Request.Header("origin")
			h := ctx.Response.Header()

			if origin != "" && isAllowedOrigin(origin, cfg.AllowedOrigins) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
				}
			}

			if isPreflight(ctx) {
				err := ctx.Response.WriteHead(response.StatusOK, nil)
				if err == nil {
					err = ctx.Response.End(nil)
				}
				if err != nil {
					logging.OrNop(ctx.Logger).Error("write failed", logging.String("request_id", ctx.RequestID), logging.Err(err))
				}
				return
			}

			next.ServeMVC(ctx)
		})
	}
}

func isPreflight(ctx *controller.Context) bool {
	return ctx.Request.Method() == "OPTIONS" &&
		ctx.Request.Header("origin") != "" &&
		ctx.Request.Header("access-control-request-method") != ""
}

func isAllowedOrigin(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
