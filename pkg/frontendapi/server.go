// Package frontendapi implements the frontend service's HTTP surface:
// audio upload and transcription dispatch, job/transcript status, and the
// meeting/segment editing endpoints the UI uses once transcription
// completes.
package frontendapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/meetscribe/pkg/extraction"
	"github.com/meetscribe/meetscribe/pkg/jobstore"
	"github.com/meetscribe/meetscribe/pkg/meetingstore"
	"github.com/meetscribe/meetscribe/pkg/orchestrator"
)

// Server is the frontend's gin-based HTTP API.
type Server struct {
	meetings  *meetingstore.Store
	jobs      *jobstore.Store
	orch      *orchestrator.Orchestrator
	extractor extraction.Extractor

	uploadDir         string
	apiToken          string
	localSpeakerName  string
	remoteSpeakerName string

	router     *gin.Engine
	httpServer *http.Server
}

// Config bundles Server's collaborators and settings.
type Config struct {
	Meetings     *meetingstore.Store
	Jobs         *jobstore.Store
	Orchestrator *orchestrator.Orchestrator
	Extractor    extraction.Extractor

	UploadDir         string
	APIToken          string
	LocalSpeakerName  string
	RemoteSpeakerName string
}

// NewServer builds the frontend API around cfg. LocalSpeakerName defaults
// to "Me", RemoteSpeakerName to "Speaker", and Extractor to a no-op when
// left unset.
func NewServer(cfg Config) *Server {
	if cfg.LocalSpeakerName == "" {
		cfg.LocalSpeakerName = "Me"
	}
	if cfg.RemoteSpeakerName == "" {
		cfg.RemoteSpeakerName = "Speaker"
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extraction.NoopExtractor{}
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		meetings:          cfg.Meetings,
		jobs:              cfg.Jobs,
		orch:              cfg.Orchestrator,
		extractor:         cfg.Extractor,
		uploadDir:         cfg.UploadDir,
		apiToken:          cfg.APIToken,
		localSpeakerName:  cfg.LocalSpeakerName,
		remoteSpeakerName: cfg.RemoteSpeakerName,
		router:            router,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the underlying router for tests and for wrapping in an
// *http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(requestID())
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.requireAPIToken)
	api.POST("/upload", s.handleUpload)
	api.GET("/status/:job_id", s.handleStatus)
	api.GET("/transcripts", s.handleListTranscripts)
	api.GET("/transcripts/:id", s.handleGetTranscript)
	api.PATCH("/meetings/:id", s.handlePatchMeeting)
	api.PATCH("/meetings/:id/speakers", s.handlePatchSpeakers)
	api.PATCH("/segments/:id", s.handlePatchSegment)
	api.DELETE("/meetings/:id", s.handleDeleteMeeting)
	api.GET("/meetings/:id/audio", s.handleMeetingAudio)
}

// Start runs the HTTP server, blocking until it stops.
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
