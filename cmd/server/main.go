package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/config"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/handler"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the RingDesk voice gateway server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new voice gateway server
func NewServer(cfg *config.Config) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the voice gateway server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
		// No WriteTimeout: media stream websockets stay open for the whole
		// call.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env file for local development if it exists. This will not
	// override environment variables set by Helm/Docker.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.LoadFromEnv()
	fmt.Printf("Starting RingDesk Voice Service (Instance: %s)\n", cfg.InstanceID)

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("deployment_mode", cfg.DeploymentMode),
		zap.String("instance_id", cfg.InstanceID))

	if err := server.Start(); err != nil {
		logger.Base().Error("Server stopped", zap.Error(err))
		server.handlerManager.Shutdown()
		logger.Sync()
		log.Fatalf("Server failed: %v", err)
	}
}
