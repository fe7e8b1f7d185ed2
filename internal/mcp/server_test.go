package mcp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coachd/internal/coordinator"
	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/session"
	"github.com/fyrsmithlabs/coachd/internal/state"
	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()
	catalog := workflow.NewCatalog(filepath.Join(dir, "workflows"), logger)
	manager := state.NewManager(filepath.Join(dir, "workflow-state.json"), logger)
	tracker := progress.NewTracker(filepath.Join(dir, "progress.json"), logger)
	engine := learning.NewEngine(filepath.Join(dir, "profile.json"), logger)
	require.NoError(t, engine.LoadUserProfile())
	coord := coordinator.New(manager, tracker, engine, logger)
	controller := session.NewController(catalog, coord, tracker, engine, logger)

	srv, err := NewServer(nil, controller, catalog, tracker, engine, coord)
	require.NoError(t, err)
	return srv
}

func TestNewServer_RequiredDependencies(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		make func() (*Server, error)
	}{
		{"controller", func() (*Server, error) {
			return NewServer(nil, nil, srv.catalog, srv.tracker, srv.engine, srv.coord)
		}},
		{"catalog", func() (*Server, error) {
			return NewServer(nil, srv.controller, nil, srv.tracker, srv.engine, srv.coord)
		}},
		{"tracker", func() (*Server, error) {
			return NewServer(nil, srv.controller, srv.catalog, nil, srv.engine, srv.coord)
		}},
		{"engine", func() (*Server, error) {
			return NewServer(nil, srv.controller, srv.catalog, srv.tracker, nil, srv.coord)
		}},
		{"coordinator", func() (*Server, error) {
			return NewServer(nil, srv.controller, srv.catalog, srv.tracker, srv.engine, nil)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.make()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required")
		})
	}
}

func TestNewServer_DefaultConfig(t *testing.T) {
	srv := newTestServer(t)
	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.metrics)
}

func TestServerClose_EndsSession(t *testing.T) {
	srv := newTestServer(t)
	before := srv.engine.GetUserProfile().BehaviorMetrics.TotalSessions
	require.NoError(t, srv.Close())
	after := srv.engine.GetUserProfile().BehaviorMetrics.TotalSessions
	assert.Equal(t, before+1, after)
}
