// Package mcp exposes the coach over the Model Context Protocol on the
// stdio transport. Tools call the internal packages directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coachd/internal/coordinator"
	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/session"
	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

// Server is the MCP facade over the coach.
type Server struct {
	mcp        *mcp.Server
	controller *session.Controller
	catalog    *workflow.Catalog
	tracker    *progress.Tracker
	engine     *learning.Engine
	coord      *coordinator.Coordinator
	metrics    *Metrics
	logger     *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "coachd").
	Name string

	// Version is the server version (default: "1.0.0").
	Version string

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "coachd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server over the given collaborators.
func NewServer(
	cfg *Config,
	controller *session.Controller,
	catalog *workflow.Catalog,
	tracker *progress.Tracker,
	engine *learning.Engine,
	coord *coordinator.Coordinator,
) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if controller == nil {
		return nil, fmt.Errorf("session controller is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("workflow catalog is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("progress tracker is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("learning engine is required")
	}
	if coord == nil {
		return nil, fmt.Errorf("state coordinator is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:        mcpServer,
		controller: controller,
		catalog:    catalog,
		tracker:    tracker,
		engine:     engine,
		coord:      coord,
		metrics:    NewMetrics(cfg.Logger),
		logger:     cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport and blocks until the
// context is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close finalizes the learning session and flushes state.
func (s *Server) Close() error {
	s.logger.Info("closing MCP server")
	s.engine.EndSession()
	return nil
}
