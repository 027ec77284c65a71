package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ozayn/signalmap/internal/config"
	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/server/ratelimit"
	"github.com/ozayn/signalmap/internal/signals"
	"github.com/ozayn/signalmap/internal/wayback"
)

// Store is the persistence surface the handlers need. *db.DB satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	jobs.Store
	CreateJob(ctx context.Context, j *db.Job) (uuid.UUID, error)
	ListJobs(ctx context.Context, platform, handle string, limit int) ([]db.Job, error)
	CancelJob(ctx context.Context, jobID uuid.UUID) (bool, error)
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
}

// SignalSource serves macro signal series, satisfied by *signals.Service.
type SignalSource interface {
	Brent(ctx context.Context, start, end string) (*signals.Series, error)
	USDToman(ctx context.Context, start, end string) (*signals.Series, error)
	OilPPP(ctx context.Context, country, start, end string) (*signals.Series, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         *config.Config
	store       Store // nil when running without a database
	database    *db.DB
	client      jobs.Discoverer
	fetcher     jobs.Fetcher
	runner      *jobs.Runner
	signals     SignalSource
	rateLimiter *ratelimit.Limiter
}

// New creates a server wired to the real archive client and, when a
// database URL is configured, to PostgreSQL. Without a database, job
// endpoints return 503 while ad-hoc lookups and signals keep working.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:         cfg,
		client:      wayback.NewClient(),
		fetcher:     wayback.NewFetcher(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
	}

	var signalStore signals.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(context.Background()); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		s.database = database
		s.store = database
		s.runner = jobs.NewRunner(database, s.client, s.fetcher)
		signalStore = database
	}
	s.signals = signals.NewService(signalStore)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // ad-hoc lookups fetch throttled archive pages
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// handler builds the routing table and middleware chain.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Archaeology jobs. The literal "jobs" segment wins over the {platform}
	// wildcard in the 1.22 mux, so job routes and ad-hoc lookups coexist.
	mux.HandleFunc("POST /api/wayback/{platform}/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/wayback/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/wayback/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/wayback/jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("DELETE /api/wayback/jobs/{id}", s.handleDeleteJob)

	// Synchronous cache-first lookup.
	mux.HandleFunc("GET /api/wayback/{platform}", s.handleLookup)

	// Macro signal series.
	mux.HandleFunc("GET /api/signals/brent", s.handleBrent)
	mux.HandleFunc("GET /api/signals/usd-toman", s.handleUSDToman)
	mux.HandleFunc("GET /api/signals/oil-ppp/{country}", s.handleOilPPP)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.database != nil {
		s.database.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers for the configured web origin
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.WebOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
			}
			log.Printf("[rate-limit] %s throttled on %s %s", clientID, r.Method, r.URL.Path)
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; X-Forwarded-For would only be safe
// behind a trusted proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex returns a short API index
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service": "signalmap",
		"endpoints": []string{
			"GET /health",
			"POST /api/wayback/{platform}/jobs",
			"GET /api/wayback/jobs",
			"GET /api/wayback/jobs/{id}",
			"POST /api/wayback/jobs/{id}/cancel",
			"DELETE /api/wayback/jobs/{id}",
			"GET /api/wayback/{platform}?handle=",
			"GET /api/signals/brent",
			"GET /api/signals/usd-toman",
			"GET /api/signals/oil-ppp/{country}",
		},
		"platforms": wayback.Platforms(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFor maps an error to its HTTP status and writes it
func (s *Server) errorFor(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}

// parseQueryInt reads an integer query parameter with a default and a cap.
func parseQueryInt(r *http.Request, key string, def, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
