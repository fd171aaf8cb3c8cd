package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig controls the cross-origin headers. An AllowOrigins entry of "*"
// admits any origin.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int
}

// DefaultCORSConfig admits any origin for the methods the API serves.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", "Accept", "Origin", RequestIDHeader, "Last-Event-ID"},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        86400,
	}
}

// corsHeaders renders the fixed header values once.
type corsHeaders struct {
	origins []string
	values  [][2]string
}

func newCORSHeaders(config CORSConfig) corsHeaders {
	return corsHeaders{
		origins: config.AllowOrigins,
		values: [][2]string{
			{"Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", ")},
			{"Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", ")},
			{"Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", ")},
			{"Access-Control-Max-Age", strconv.Itoa(config.MaxAge)},
		},
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not admitted.
func (c corsHeaders) allowOrigin(origin string) string {
	if slices.Contains(c.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func (c corsHeaders) apply(origin string, set func(name, value string)) {
	allowed := c.allowOrigin(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		set("Vary", "Origin")
	}
	for _, kv := range c.values {
		set(kv[0], kv[1])
	}
}

// NewCORSMiddleware sets CORS headers on every API response.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	headers := newCORSHeaders(config)
	return func(ctx huma.Context, next func(huma.Context)) {
		headers.apply(ctx.Header("Origin"), ctx.SetHeader)
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests for paths, since huma routes
// never see OPTIONS. Only the given paths get a preflight route: a catch-all
// OPTIONS pattern would turn every unknown path into a 405.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig, paths ...string) {
	headers := newCORSHeaders(config)
	preflight := func(w http.ResponseWriter, r *http.Request) {
		headers.apply(r.Header.Get("Origin"), w.Header().Set)
		w.WriteHeader(http.StatusNoContent)
	}
	for _, p := range paths {
		mux.HandleFunc("OPTIONS "+p, preflight)
	}
}
