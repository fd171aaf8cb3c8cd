// Package api serves the debezel HTTP API: job submission and control,
// wall profiles, run history, a live event stream and Prometheus metrics.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/events"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/history"
	"github.com/smazurov/debezel/internal/jobs"
	"github.com/smazurov/debezel/internal/logging"
	"github.com/smazurov/debezel/internal/profiles"
)

// JobService queues and controls encode jobs. *jobs.Manager satisfies it.
type JobService interface {
	Submit(req encode.Request) (jobs.Job, error)
	Get(id string) (jobs.Job, bool)
	List() []jobs.Job
	Cancel(id string) (jobs.Job, error)
}

// Planner previews runs and reports the engine. *encode.Orchestrator
// satisfies it.
type Planner interface {
	Preview(ctx context.Context, req encode.Request) (encode.Preview, error)
	Engine() (string, bool)
}

// ProfileStore is the wall profile collection. *profiles.Store satisfies it.
type ProfileStore interface {
	All() []profiles.Profile
	Get(name string) (profiles.Profile, error)
	Put(p profiles.Profile) error
	Delete(name string) error
}

// HistoryReader lists finished runs. *history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options wires the server to the rest of the application. Jobs, Planner
// and EventBus are required; Profiles and History may be nil.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Jobs              JobService
	Planner           Planner
	Profiles          ProfileStore
	History           HistoryReader
	EventBus          *events.Bus
	DefaultBezel      geometry.Bezel
	DefaultSizeMB     float64      // 0: default bitrate
	DefaultOutputDir  string       // empty: next to the input
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
	UIHandler         http.Handler // Optional dashboard
	CORSOrigins       []string     // empty: any origin
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     logging.Logger
}

// NewServer creates an API server on Go's native ServeMux routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if len(opts.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}

	config := huma.DefaultConfig("debezel API", "1.0.0")
	config.Info.Description = "Bezel removal encodes for 4-panel videowalls"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	if opts.DefaultBezel == (geometry.Bezel{}) {
		opts.DefaultBezel = geometry.DefaultBezel()
	}
	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(RequestIDMiddleware)
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	server.registerMetricsRoute()
	server.registerUIRoute()
	server.registerRoutes()
	AddCORSHandler(mux, corsConfig, server.apiPaths()...)
	return server
}

// apiPaths lists the registered operation paths in sorted order.
func (s *Server) apiPaths() []string {
	paths := make([]string, 0, len(s.api.OpenAPI().Paths))
	for p := range s.api.OpenAPI().Paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// GetMux returns the underlying HTTP ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting debezel API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+strings.TrimPrefix(addr, ":")+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, giving open requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Event streams never finish on their own.
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerJobRoutes()
	s.registerProfileRoutes()
	s.registerHistoryRoutes()
	s.registerSSERoutes()
}

// withAuth returns security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

// basicAuthMiddleware checks HTTP basic credentials on operations that
// declare a security requirement. Event streams may pass credentials in the
// auth query parameter because EventSource cannot set headers.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	reject := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="debezel"`)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var encoded string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				reject(ctx, "Invalid authentication type")
				return
			}
			encoded = authHeader[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			reject(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			reject(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			reject(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			reject(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}
