package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/assistant"
	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/export"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

// ServiceManagerConfig holds the settings shared by the services
type ServiceManagerConfig struct {
	PublicBaseURL    string
	MailTopic        string
	HistoryLimit     int
	AssistantTimeout time.Duration
}

// NewServiceManagerConfig derives the service settings from the runtime configuration
func NewServiceManagerConfig(cfg *config.Config) ServiceManagerConfig {
	return ServiceManagerConfig{
		PublicBaseURL:    cfg.PublicBaseURL,
		MailTopic:        cfg.Queue.MailTopic,
		HistoryLimit:     500,
		AssistantTimeout: 30 * time.Second,
	}
}

// Dependencies are the collaborators the services are built from
type Dependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Logger    *slog.Logger
	Validator *validator.Validator

	Sessions  *auth.SessionStore
	Hasher    *auth.PasswordHasher
	Tokens    *auth.ResetTokenManager
	Publisher events.EventPublisher

	Hub         RoomHub
	Avatars     storage.AvatarStore
	Transcripts *export.TranscriptWriter
	Assistant   assistant.Client

	// IdentityProvider is nil when single sign-on is not configured
	IdentityProvider repositories.IdentityProvider
}

func (d Dependencies) check() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database is required")
	case d.Repo == nil:
		return fmt.Errorf("repository is required")
	case d.Sessions == nil:
		return fmt.Errorf("session store is required")
	case d.Publisher == nil:
		return fmt.Errorf("event publisher is required")
	case d.Hub == nil:
		return fmt.Errorf("realtime hub is required")
	}
	return nil
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	logger *slog.Logger
	config ServiceManagerConfig

	// Service instances
	authService      AuthService
	profileService   ProfileService
	studyRoomService StudyRoomService
	chatService      ChatService
	assistantService AssistantService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewPasswordHasher()
	}
	if deps.Transcripts == nil {
		deps.Transcripts = export.NewTranscriptWriter()
	}
	if deps.Assistant == nil {
		deps.Assistant = assistant.Unavailable{}
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 500
	}

	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.deps.check(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.authService = NewAuthService(sm.deps, sm.config)
	sm.profileService = NewProfileService(sm.deps)
	sm.studyRoomService = NewStudyRoomService(sm.deps, sm.config)
	sm.chatService = NewChatService(sm.deps)
	sm.assistantService = NewAssistantService(sm.deps, sm.config)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully", "sso_enabled", sm.deps.IdentityProvider != nil)

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mustBeInitialized()
	return sm.profileService
}

func (sm *serviceManager) StudyRoom() StudyRoomService {
	sm.mustBeInitialized()
	return sm.studyRoomService
}

func (sm *serviceManager) Chat() ChatService {
	sm.mustBeInitialized()
	return sm.chatService
}

func (sm *serviceManager) Assistant() AssistantService {
	sm.mustBeInitialized()
	return sm.assistantService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(_ context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	// connections and the message queue belong to main and are closed there
	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
