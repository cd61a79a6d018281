// Package mcp exposes read-only ledger queries and the permissionless burn as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/internal/logging"
	httpapi "github.com/liqingnz/btc-timelock-contracts/pkg/adapters/http"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/events"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LedgerURI is the resource holding the ledger summary.
const LedgerURI = "timelock://ledger"

// DefaultCaller is the identity used by burn when no caller is given.
const DefaultCaller domain.Identity = "mcp"

// Engine is the ledger surface exposed over MCP.
type Engine interface {
	GetTask(ctx context.Context, id uint64) (domain.Task, error)
	GetPartner(ctx context.Context, index uint64) (domain.PartnerID, error)
	GetPartnerTasks(ctx context.Context, partner domain.PartnerID) ([]uint64, error)
	Burn(ctx context.Context, caller domain.Identity, taskID uint64) error
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	Events() *events.Log
}

// Summary is the content of the ledger resource.
type Summary struct {
	Partners     []domain.PartnerID                `json:"partners"`
	Tasks        int                               `json:"tasks"`
	TasksByState map[string]int                    `json:"tasks_by_state"`
	Roles        map[domain.Role][]domain.Identity `json:"roles"`
	LastEventSeq uint64                            `json:"last_event_seq"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("timelock-mcp", strings.TrimSpace(timelock.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the input is closed.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler returns the SSE transport rooted at /sse and /message.
func (s *Server) Handler(baseURL string) http.Handler {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sse.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sse.MessageHandler()))
	return mux
}

// ServeSSE listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	if baseURL == "" {
		baseURL = "http://localhost" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(baseURL),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a task by id, including its state and deposit once fulfilled."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
	), s.handleGetTask)

	s.mcpServer.AddTool(mcp.NewTool("get_partner",
		mcp.WithDescription("Get the partner id at a position of the partner list."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based position")),
	), s.handleGetPartner)

	s.mcpServer.AddTool(mcp.NewTool("partner_tasks",
		mcp.WithDescription("List the task ids created for a partner, in creation order."),
		mcp.WithString("partner", mcp.Required(), mcp.Description("Partner id")),
	), s.handlePartnerTasks)

	s.mcpServer.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List ledger events with a sequence number greater than since."),
		mcp.WithNumber("since", mcp.Description("Last sequence number already seen (default 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default 100)")),
	), s.handleListEvents)

	s.mcpServer.AddTool(mcp.NewTool("burn",
		mcp.WithDescription("Finalize a fulfilled task whose timelock has passed, burning its amount from the partner."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("caller", mcp.Description("Caller identity recorded in logs (optional)")),
	), s.handleBurn)
}

func (s *Server) handleGetTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := uintArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := s.engine.GetTask(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(httpapi.NewTaskView(task))
}

func (s *Server) handleGetPartner(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := uintArg(req, "index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	partner, err := s.engine.GetPartner(ctx, index)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(partner)), nil
}

func (s *Server) handlePartnerTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partner, err := req.RequireString("partner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.engine.GetPartnerTasks(ctx, domain.PartnerID(partner))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(ids)
}

func (s *Server) handleListEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since := req.GetFloat("since", 0)
	limit := req.GetFloat("limit", 100)
	if since < 0 || limit < 1 {
		return mcp.NewToolResultError("since must be >= 0 and limit >= 1"), nil
	}
	evs := s.engine.Events().Since(uint64(since))
	if len(evs) > int(limit) {
		evs = evs[:int(limit)]
	}
	return jsonResult(evs)
}

func (s *Server) handleBurn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := uintArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	caller := domain.Identity(req.GetString("caller", string(DefaultCaller)))
	if err := s.engine.Burn(ctx, caller, id); err != nil {
		s.logger.Warn("MCP burn rejected", "task_id", id, "reason", domain.Reason(err))
		return toolError(err), nil
	}
	task, err := s.engine.GetTask(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(httpapi.NewTaskView(task))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(LedgerURI, "Ledger summary",
		mcp.WithResourceDescription("Partners, task counts by state and role members"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summary, err := s.summary(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		data, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      LedgerURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) summary(ctx context.Context) (Summary, error) {
	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		Partners:     snap.Partners,
		Tasks:        len(snap.Tasks),
		TasksByState: make(map[string]int),
		Roles:        snap.Roles,
	}
	for _, t := range snap.Tasks {
		out.TasksByState[t.State.String()]++
	}
	if evs := s.engine.Events().Since(0); len(evs) > 0 {
		out.LastEventSeq = evs[len(evs)-1].Seq
	}
	return out, nil
}

func uintArg(req mcp.CallToolRequest, key string) (uint64, error) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	// float64(math.MaxUint64) rounds up to 2^64, which does not fit.
	if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return uint64(v), nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.Reason(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
