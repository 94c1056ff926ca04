// Package workerapi exposes the GPU worker's HTTP surface: a health
// probe for the frontend's wake loop, and the submit/poll job protocol
// that pkg/gpuclient drives from the other side.
package workerapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/meetscribe/pkg/workerengine"
)

// Server is the worker's HTTP API.
type Server struct {
	engine      *workerengine.Engine
	workerToken string
	router      *gin.Engine
	httpServer  *http.Server
}

// NewServer builds the worker API around engine. workerToken, if
// non-empty, is required as the X-Worker-Token header on every route,
// including /health.
func NewServer(engine *workerengine.Engine, workerToken string) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{engine: engine, workerToken: workerToken, router: router}
	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler, for use in tests with
// httptest.NewServer or httptest.NewRecorder.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	authorized := s.router.Group("/")
	authorized.Use(s.requireWorkerToken)
	authorized.GET("/health", s.handleHealth)
	authorized.POST("/transcribe", s.handleTranscribe)
	authorized.GET("/jobs/:id", s.handleGetJob)
}

// requireWorkerToken enforces X-Worker-Token when a token is configured.
// With no token configured, the worker is reachable without auth — the
// same "auth disabled when unset" posture as the frontend's API token.
func (s *Server) requireWorkerToken(c *gin.Context) {
	if s.workerToken == "" {
		c.Next()
		return
	}
	if c.GetHeader("X-Worker-Token") != s.workerToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing worker token"})
		return
	}
	c.Next()
}

// Start runs the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
