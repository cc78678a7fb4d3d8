package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/adapters/convai"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/cache"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/config"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/repository"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/services/bridge"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/services/provision"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/storage"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/redis"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/twilio"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// templateSyncInterval controls how often the template cache is refreshed
// from the database.
const templateSyncInterval = 5 * time.Minute

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config           *config.Config
	repoManager      repository.RepositoryManager
	templateCache    *cache.TemplateCache
	convaiClient     *convai.Client
	provisionService *provision.Service
	sessionRegistry  *bridge.SessionRegistry
	audioArchive     *storage.AudioArchive
	streamHandler    *StreamHandler
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	// Initialize database connection
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	// Initialize Redis for the live-call session registry. The service runs
	// without it; calls just become invisible to sibling pods.
	var sessionRegistry *bridge.SessionRegistry
	redisSvc, err := redis.NewRedisService(redis.LoadConfigFromEnv())
	if err != nil {
		logger.Base().Warn("failed to initialize redis, running without session registry", zap.Error(err))
	} else {
		sessionRegistry = bridge.NewSessionRegistry(redisSvc, cfg.InstanceID)
		logger.Base().Info("session registry initialized", zap.String("instance_id", cfg.InstanceID))
	}

	// Template cache: load once now, then refresh in the background.
	templateCache := cache.NewTemplateCache()
	if err := templateCache.LoadFromRepository(context.Background(), repoManager.PromptTemplate()); err != nil {
		logger.Base().Warn("initial template load failed, using built-in defaults", zap.Error(err))
	}
	templateCache.StartPeriodicSync(context.Background(), repoManager.PromptTemplate(), templateSyncInterval)

	convaiClient, err := convai.NewClient(cfg.ConvAIBaseURL, cfg.ConvAIAPIKey)
	if err != nil {
		logger.Base().Error("failed to create speech-agent client", zap.Error(err))
		return nil, err
	}

	// Ownership verification uses the shared project credentials. Without
	// them the verifier is disabled and import proceeds unchecked.
	verifier := twilio.NewNumberVerifier(twilio.Credentials{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
	})

	provisionService := provision.NewService(
		repoManager.Account(),
		repoManager.AgentBinding(),
		repoManager.PhoneNumber(),
		convaiClient,
		templateCache,
		provision.NewCredentialResolver(cfg),
		verifier,
	)

	audioArchive, err := storage.NewAudioArchive(context.Background(), cfg.AudioArchiveEnabled, cfg.AudioArchiveBucket)
	if err != nil {
		logger.Base().Warn("failed to initialize audio archive, continuing without it", zap.Error(err))
		audioArchive = nil
	}

	streamHandler := NewStreamHandler(convaiClient, repoManager.Call(), sessionRegistry, audioArchive, cfg.MaxConnections)

	return &HandlerManager{
		config:           cfg,
		repoManager:      repoManager,
		templateCache:    templateCache,
		convaiClient:     convaiClient,
		provisionService: provisionService,
		sessionRegistry:  sessionRegistry,
		audioArchive:     audioArchive,
		streamHandler:    streamHandler,
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(GlobalLoggingMiddleware)

	hm.SetupAPIRoutes(router)
	hm.streamHandler.SetupStreamRoutes(router)

	router.HandleFunc("/health", hm.handleHealth).Methods("GET")

	logger.Base().Info("all application routes registered")
}

// SetupAPIRoutes sets up the provisioning API routes and middleware
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(ValidationMiddleware)

	agentHandler := NewAgentHandler(hm.provisionService)
	agentHandler.SetupAgentRoutes(apiRouter)

	router.PathPrefix("/api/").HandlerFunc(handleCORS).Methods("OPTIONS")

	logger.Base().Info("provisioning api routes registered")
}

// handleHealth reports service liveness, database reachability and load.
func (hm *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK

	if err := hm.repoManager.Ping(r.Context()); err != nil {
		logger.Base().Warn("health check database ping failed", zap.Error(err))
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":             status,
		"instance_id":        hm.config.InstanceID,
		"active_connections": hm.streamHandler.ActiveConnections(),
	})
}

// Shutdown releases held resources.
func (hm *HandlerManager) Shutdown() {
	hm.templateCache.Shutdown()
	if hm.audioArchive != nil {
		if err := hm.audioArchive.Close(); err != nil {
			logger.Base().Warn("failed to close audio archive", zap.Error(err))
		}
	}
	if err := hm.repoManager.Close(); err != nil {
		logger.Base().Warn("failed to close database", zap.Error(err))
	}
}

// GetRepoManager returns the repository manager
func (hm *HandlerManager) GetRepoManager() repository.RepositoryManager {
	return hm.repoManager
}
