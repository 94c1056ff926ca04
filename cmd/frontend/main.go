// meetscribe-frontend accepts meeting recordings over HTTP, dispatches
// them to the GPU worker (or a local CPU fallback), and serves the
// resulting transcripts and editing API to the UI.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/meetscribe/pkg/config"
	"github.com/meetscribe/meetscribe/pkg/dbutil"
	"github.com/meetscribe/meetscribe/pkg/extraction"
	"github.com/meetscribe/meetscribe/pkg/fallback"
	"github.com/meetscribe/meetscribe/pkg/frontendapi"
	"github.com/meetscribe/meetscribe/pkg/gpuclient"
	"github.com/meetscribe/meetscribe/pkg/gpuwaker"
	"github.com/meetscribe/meetscribe/pkg/jobstore"
	"github.com/meetscribe/meetscribe/pkg/meetingstore"
	"github.com/meetscribe/meetscribe/pkg/migrate"
	"github.com/meetscribe/meetscribe/pkg/orchestrator"
	"github.com/meetscribe/meetscribe/pkg/smartplug"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", ""), "Path to configuration YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting meetscribe-frontend")
	log.Printf("HTTP Port: %d", cfg.Port)

	ctx := context.Background()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	db, err := dbutil.Open(ctx, dbutil.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	if err := migrate.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database schema up to date")

	meetings := meetingstore.New(db)
	jobs := jobstore.New(db)

	gpuBaseURL := "http://" + cfg.GPU.Host + ":" + strconv.Itoa(cfg.GPU.WorkerPort)
	probe := gpuclient.NewHealthProbe(gpuBaseURL, cfg.GPU.WorkerToken)
	poller := gpuclient.NewSubmitPoller(gpuBaseURL, cfg.GPU.WorkerToken, cfg.GPU.SubmitTimeout, cfg.GPU.Timeout, cfg.GPU.PollInterval)

	var actuator smartplug.Actuator = smartplug.NoopActuator{}
	if cfg.SmartPlug.Enabled {
		actuator = smartplug.NewTuyaActuator(cfg.SmartPlug.DeviceID, cfg.SmartPlug.IPAddress, cfg.SmartPlug.LocalKey, cfg.SmartPlug.Version)
	}
	waker := gpuwaker.NewWaker(actuator, probe, cfg.GPU.BootWaitTime, cfg.GPU.CheckInterval)

	// TODO(model-loading): swap the stub Transcriber/Diarizer for a real
	// faster-whisper / pyannote process once the model runtime is chosen.
	fallbackPipeline := workerpipeline.NewPipeline(
		workerpipeline.StubTranscriber{},
		workerpipeline.StubDiarizer{},
		cfg.Fallback.Timeout,
	)
	fallbackPipeline.Device = "cpu"
	fallbackPipeline.ModelName = cfg.Fallback.ModelSize
	fb := fallback.New(fallbackPipeline, cfg.Fallback.Enabled)

	orch := orchestrator.New(probe, waker, poller, fb)

	var extractor extraction.Extractor = extraction.NoopExtractor{}
	if cfg.LLM.Endpoint != "" {
		extractor = extraction.NewHTTPExtractor(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Timeout)
	}

	server := frontendapi.NewServer(frontendapi.Config{
		Meetings:          meetings,
		Jobs:              jobs,
		Orchestrator:      orch,
		Extractor:         extractor,
		UploadDir:         cfg.UploadDir,
		APIToken:          cfg.APIToken,
		LocalSpeakerName:  cfg.LocalSpeakerName,
		RemoteSpeakerName: "Speaker",
	})

	cleanup := jobstore.NewCleanupService(jobs, cfg.JobRetention.MaxAge, cfg.JobRetention.Interval)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *frontendapi.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down meetscribe-frontend...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
