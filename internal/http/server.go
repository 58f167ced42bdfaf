// Package http exposes the gateway as a JSON API with a server-sent event
// stream of change notifications.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"walletsync/internal/action"
	"walletsync/internal/events"
	"walletsync/internal/gateway"
	"walletsync/internal/log"
	"walletsync/internal/middleware/ratelimit"
	"walletsync/internal/middleware/security"
	"walletsync/internal/middleware/trace"
)

// Deps are the components the API serves from.
type Deps struct {
	Gateway   *gateway.Gateway
	Session   gateway.Session
	Bus       *events.Bus
	Publisher events.Publisher // defaults to Bus
	Uploader  action.Uploader  // optional
	RateLimit ratelimit.Config
	Logger    *log.Logger
}

type Server struct {
	http.Server

	gw        *gateway.Gateway
	session   gateway.Session
	bus       *events.Bus
	publisher events.Publisher
	txForm    *action.TransactionForm
	accForm   *action.AccountForm
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *log.Logger

	// heartbeat is the idle interval between SSE keep-alive comments.
	heartbeat    time.Duration
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := log.OrDefault(d.Logger, log.ComponentHTTP)
	pub := d.Publisher
	if pub == nil {
		pub = d.Bus
	}

	s := &Server{
		gw:        d.Gateway,
		session:   d.Session,
		bus:       d.Bus,
		publisher: pub,
		txForm:    action.NewTransactionForm(d.Gateway, pub, d.Logger),
		accForm:   action.NewAccountForm(d.Gateway, d.Uploader, pub, d.Logger),
		limiter:   ratelimit.NewLimiter(d.RateLimit),
		detector:  security.NewDetector(),
		logger:    logger,
		heartbeat: 25 * time.Second,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleSaveAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleSaveAccount)
	mux.HandleFunc("PUT /api/accounts/{id}/avatar", s.handleSetAvatar)
	mux.HandleFunc("POST /api/accounts/migrate-balances", s.handleMigrateBalances)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("POST /api/transactions", s.handleSaveTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleSaveTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded. Please try again later."})
	})(h)
	h = s.rejectSuspicious(h)
	h = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				"client_ip", s.detector.ExtractClientIP(r))
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad request"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a user is signed in.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Current(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
