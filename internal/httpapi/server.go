// Package httpapi exposes the snapshot, the verification ledger, the
// roster and the flagged captures to the dashboard over REST.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zerotwo/platewatch/internal/config"
	"github.com/zerotwo/platewatch/internal/models"
	"github.com/zerotwo/platewatch/internal/publish"
)

// Store is the slice of the database layer the API needs.
type Store interface {
	ListVerifications(ctx context.Context, limit int) ([]models.VerificationEntry, error)
	ListRoster(ctx context.Context) ([]models.RosterEntry, error)
	AddRosterEntry(ctx context.Context, entry models.RosterEntry) (models.RosterEntry, error)
	DeleteRosterEntry(ctx context.Context, holderID string) (bool, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      config.Config
	store    Store
	snapshot *publish.Snapshot
	engine   *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store, snapshot *publish.Snapshot) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, store: store, snapshot: snapshot, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")

	realtime := v1.Group("/realtime")
	{
		realtime.GET("/now", s.handleRealtimeNow)
	}

	v1.GET("/verifications", s.handleListVerifications)
	v1.GET("/flagged", s.handleListFlagged)

	roster := v1.Group("/roster")
	{
		roster.GET("", s.handleListRoster)
		roster.POST("", s.handleAddRosterEntry)
		roster.DELETE("/:holder_id", s.handleDeleteRosterEntry)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
