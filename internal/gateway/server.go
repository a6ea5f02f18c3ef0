// Package gateway re-exposes a subset of the backend API to browsers. It adds
// upstream timeouts, input validation, response reshaping and an audio proxy.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"whiterabbit/internal/apiclient"
)

const (
	DefaultUpstreamTimeout = 5 * time.Second
	shutdownTimeout        = 10 * time.Second
)

// Options configures a Server
type Options struct {
	Addr            string
	UpstreamTimeout time.Duration
	// RateLimit is requests per second across all clients; zero disables it
	RateLimit     float64
	Burst         int
	AllowedOrigin string
	Logger        *zap.Logger
}

// Server is the gateway HTTP server
type Server struct {
	upstream  *apiclient.Client
	addr      string
	timeout   time.Duration
	logger    *zap.Logger
	ttsSchema *jsonschema.Schema
	handler   http.Handler
}

// New builds a gateway in front of upstream
func New(upstream *apiclient.Client, opts Options) (*Server, error) {
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	schema, err := compileTTSSchema()
	if err != nil {
		return nil, err
	}

	s := &Server{
		upstream:  upstream,
		addr:      opts.Addr,
		timeout:   opts.UpstreamTimeout,
		logger:    opts.Logger.Named("gateway"),
		ttsSchema: schema,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/mysteries", s.handleListMysteries)
	mux.HandleFunc("GET /api/mysteries/{id}", s.handleGetMystery)
	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/nodes/{type}", s.handleNodes)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.HandleFunc("POST /api/tts/warmup", s.handleWarmup)
	mux.HandleFunc("GET /api/audio/{filename}", s.handleAudio)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mws := []middleware{s.withRequestID, s.withAccessLog, s.withRecover}
	if opts.AllowedOrigin != "" {
		mws = append(mws, s.withCORS(opts.AllowedOrigin))
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		mws = append(mws, s.withRateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), burst)))
	}
	s.handler = chain(mux, mws...)
	return s, nil
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gateway listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("gateway shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// upstreamContext bounds one upstream call
func (s *Server) upstreamContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}
