// Package http exposes the ledger over a JSON HTTP API with an SSE event stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CallerHeader carries the caller identity. It is trusted as set by the gateway.
const CallerHeader = "X-Caller-Identity"

// Engine is the ledger surface served over HTTP.
type Engine interface {
	CreatePartner(ctx context.Context, caller domain.Identity) (domain.PartnerID, error)
	RemovePartner(ctx context.Context, caller domain.Identity, partner domain.PartnerID) error
	GetPartner(ctx context.Context, index uint64) (domain.PartnerID, error)
	IsPartner(ctx context.Context, id domain.PartnerID) (bool, error)
	GetPartnerTasks(ctx context.Context, partner domain.PartnerID) ([]uint64, error)
	PartnerCount(ctx context.Context) (int, error)

	SetupTask(ctx context.Context, caller domain.Identity, partner domain.PartnerID, timelockEndTime, deadline time.Time, amount uint64, btcAddress string) (uint64, error)
	ReceiveFunds(ctx context.Context, caller domain.Identity, amount, taskID uint64, txHash domain.TxHash, txOut uint32, witnessScript []byte) error
	Burn(ctx context.Context, caller domain.Identity, taskID uint64) error
	ForceBurn(ctx context.Context, caller domain.Identity, taskID uint64) error
	GetTask(ctx context.Context, id uint64) (domain.Task, error)
	TaskCount(ctx context.Context) (uint64, error)

	GrantRole(ctx context.Context, caller domain.Identity, role domain.Role, account domain.Identity) error
	RevokeRole(ctx context.Context, caller domain.Identity, role domain.Role, account domain.Identity) error

	Events() *events.Log
}

// Server serves the ledger API.
type Server struct {
	Engine   Engine
	Version  string
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		Version:  "dev",
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.SubscribeEvents)

	r.Route("/partners", func(r chi.Router) {
		r.Post("/", s.CreatePartner)
		r.Get("/at/{index}", s.GetPartner)
		r.Get("/{id}", s.IsPartner)
		r.Delete("/{id}", s.RemovePartner)
		r.Get("/{id}/tasks", s.GetPartnerTasks)
	})
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", s.SetupTask)
		r.Get("/{id}", s.GetTask)
		r.Post("/{id}/funds", s.ReceiveFunds)
		r.Post("/{id}/burn", s.Burn)
		r.Post("/{id}/force-burn", s.ForceBurn)
	})
	r.Post("/roles/{role}/{account}", s.GrantRole)
	r.Delete("/roles/{role}/{account}", s.RevokeRole)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CallerHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func caller(r *http.Request) domain.Identity {
	return domain.Identity(r.Header.Get(CallerHeader))
}

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidPartner),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrTaskExpired),
		errors.Is(err, domain.ErrTimelockNotReached),
		errors.Is(err, domain.ErrDepositNotFound):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.write(w, status, errorResponse{Error: domain.Reason(err), Message: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("Invalid request", "method", r.Method, "path", r.URL.Path, "err", err)
	s.write(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
}

func (s *Server) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func uintParam(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an unsigned integer", name)
	}
	return v, nil
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Engine.TaskCount(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	partners, err := s.Engine.PartnerCount(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, map[string]any{
		"app":      "timelockd",
		"version":  s.Version,
		"tasks":    tasks,
		"partners": partners,
	})
}
