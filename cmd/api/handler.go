package api

import (
	"log"

	authUsecase "nexcrm-backend/internal/auth/usecase"
	contactDelivery "nexcrm-backend/internal/contact/delivery"
	contactRepo "nexcrm-backend/internal/contact/repository"
	contactUsecasePkg "nexcrm-backend/internal/contact/usecase"
	statsDelivery "nexcrm-backend/internal/stats/delivery"
	statsUsecasePkg "nexcrm-backend/internal/stats/usecase"
	syncDelivery "nexcrm-backend/internal/sync/delivery"
	syncRepo "nexcrm-backend/internal/sync/repository"
	syncUsecasePkg "nexcrm-backend/internal/sync/usecase"
	"nexcrm-backend/pkg/ai"
	"nexcrm-backend/pkg/chroma"
	"nexcrm-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	config         *config.Config
	syncHandler    *syncDelivery.SyncHandler
	contactHandler *contactDelivery.ContactHandler
	statsHandler   *statsDelivery.StatsHandler
	summaryWorker  *syncUsecasePkg.SummaryWorkerService
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	runner *syncUsecasePkg.Runner,
	contacts contactRepo.ContactRepository,
	threads syncRepo.ThreadRepository,
	messages syncRepo.MessageRepository,
	jobs syncRepo.SyncJobRepository,
	settings syncRepo.SyncSettingsRepository,
	accounts syncRepo.GoogleAccountRepository,
	cfg *config.Config,
) *Handler {
	// Initialize AI service from static config
	aiService, err := ai.NewSummarizerService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v", err)
	} else {
		log.Printf("AI service initialized with provider: %s", cfg.AIProvider)
	}

	// Initialize Chroma client for semantic contact search and summary indexing
	var vector contactUsecasePkg.VectorSearcher
	var indexer syncUsecasePkg.SummaryIndexer
	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Semantic search will not be available.", err)
		} else {
			vector = chromaClient
			indexer = chromaClient
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Semantic search will not be available.")
	}

	// Background worker that turns synced threads into AI summaries
	var summaryWorker *syncUsecasePkg.SummaryWorkerService
	if aiService != nil {
		summaryWorker = syncUsecasePkg.NewSummaryWorkerService(threads, messages, aiService, indexer, 3)
		summaryWorker.Start()
		log.Println("Summary worker service started")
	} else {
		log.Println("Warning: AI service unavailable, thread summaries disabled")
	}

	contactUc := contactUsecasePkg.NewContactUsecase(contacts, threads, vector, aiService, cfg)
	statsUc := statsUsecasePkg.NewStatsUsecase(contacts, threads, messages, jobs)

	return &Handler{
		authUsecase:    authUc,
		config:         cfg,
		syncHandler:    syncDelivery.NewSyncHandler(runner, jobs, settings, accounts),
		contactHandler: contactDelivery.NewContactHandler(contactUc),
		statsHandler:   statsDelivery.NewStatsHandler(statsUc),
		summaryWorker:  summaryWorker,
	}
}

// SummaryWorker exposes the background worker so the auto-sync scheduler can
// drain pending analyses after each pass. Nil when no AI provider is configured.
func (h *Handler) SummaryWorker() *syncUsecasePkg.SummaryWorkerService {
	return h.summaryWorker
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.authUsecase, h.config, h.syncHandler, h.contactHandler, h.statsHandler)

	return r.Run(addr)
}
