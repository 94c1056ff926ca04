// meetscribe-worker runs on the GPU host: it accepts transcription jobs
// over HTTP from the frontend service and runs them through the
// transcribe -> diarize -> merge -> format pipeline.
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
	"github.com/meetscribe/meetscribe/pkg/workerapi"
	"github.com/meetscribe/meetscribe/pkg/workerengine"
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

	log.Printf("Starting meetscribe-worker")
	log.Printf("HTTP Port: %d", cfg.Port)

	// TODO(model-loading): swap the stub Transcriber/Diarizer for a real
	// faster-whisper / pyannote process once the model runtime is chosen.
	pipeline := workerpipeline.NewPipeline(
		workerpipeline.StubTranscriber{},
		workerpipeline.StubDiarizer{},
		cfg.Fallback.Timeout,
	)
	pipeline.Device = "cpu"
	pipeline.ModelName = cfg.Fallback.ModelSize

	engine := workerengine.New(pipeline, 100)
	server := workerapi.NewServer(engine, cfg.GPU.WorkerToken)

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *workerapi.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down meetscribe-worker...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
