package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/api/handlers"
	mw "github.com/noemahq/noema/internal/api/middleware"
	"github.com/noemahq/noema/internal/config"
	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/kernel"
	"github.com/noemahq/noema/internal/llm"
	"github.com/noemahq/noema/internal/store"
)

// App holds the router and the kernel for lifecycle management.
type App struct {
	Router *chi.Mux
	Kernel *kernel.Kernel

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	stores := kernel.Stores{
		Sessions:        store.NewSessionStore(db),
		Units:           store.NewUnitStore(db),
		Propositions:    store.NewPropositionStore(db),
		Entities:        store.NewEntityStore(db),
		Claims:          store.NewClaimStore(db),
		Chains:          store.NewChainStore(db),
		Goals:           store.NewGoalStore(db),
		Patterns:        store.NewPatternStore(db),
		Contradictions:  store.NewContradictionStore(db),
		Corrections:     store.NewCorrectionStore(db),
		Vocabulary:      store.NewVocabularyStore(db),
		Tasks:           store.NewTaskStore(db),
		ExtractorStates: store.NewExtractorStateStore(db),
		SearchReplace:   store.NewMaintenanceStore(db),
	}

	client, err := llm.NewClient(config.ExtractionProvider(), config.ExtractionAPIKey())
	if err != nil {
		return nil, err
	}
	logger.Info("extraction client initialized", zap.String("provider", config.ExtractionProvider()))

	k, err := kernel.New(ctx, stores, client, kernel.Options{
		PipelineConcurrency: config.PipelineConcurrency(),
		MaxActiveChains:     config.MaxActiveChains(),
		ChainDormancy:       config.ChainDormancy(),
		SessionIdle:         config.SessionIdle(),
		UseCapabilityCheck:  config.UseCapabilityCheck(),
	}, logger)
	if err != nil {
		return nil, err
	}

	sessionHandler := handlers.NewSessionHandler(k)
	knowledgeHandler := handlers.NewKnowledgeHandler(k)
	goalHandler := handlers.NewGoalHandler(k)
	chainHandler := handlers.NewChainHandler(k)
	insightHandler := handlers.NewInsightHandler(k)
	memoryHandler := handlers.NewMemoryHandler(k)
	vocabularyHandler := handlers.NewVocabularyHandler(k)
	adminHandler := handlers.NewAdminHandler(k)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Kernel:    k,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		if key := config.APIKey(); key != "" {
			r.Use(mw.APIKeyAuth(key))
		}

		// Input
		r.Post("/input", sessionHandler.Submit)
		r.Get("/queue", sessionHandler.QueueStatus)

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Post("/end", sessionHandler.End)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetByID)
				r.Get("/units", sessionHandler.ListUnits)
			})
		})

		// Units (propositions and relations extracted from a unit)
		r.Route("/units/{id}", func(r chi.Router) {
			r.Get("/propositions", knowledgeHandler.ListPropositions)
			r.Get("/relations", knowledgeHandler.ListRelations)
		})

		// Claims
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", knowledgeHandler.ListClaims)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", knowledgeHandler.GetClaim)
				r.Post("/reinforce", knowledgeHandler.ReinforceClaim)
				r.Post("/promote", knowledgeHandler.PromoteClaim)
			})
		})

		// Entities
		r.Get("/entities", knowledgeHandler.ListEntities)

		// Goals
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", goalHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/progress", goalHandler.UpdateProgress)
				r.Put("/status", goalHandler.UpdateStatus)
				r.Get("/blockers", goalHandler.ListBlockers)
				r.Post("/blockers", goalHandler.AddBlocker)
				r.Post("/blockers/{blockerID}/resolve", goalHandler.ResolveBlocker)
				r.Get("/milestones", goalHandler.ListMilestones)
				r.Post("/milestones", goalHandler.AddMilestone)
			})
		})

		// Thought chains
		r.Route("/chains", func(r chi.Router) {
			r.Get("/", chainHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/claims", chainHandler.ListClaims)
				r.Post("/branch", chainHandler.Branch)
				r.Post("/conclude", chainHandler.Conclude)
			})
		})

		// Patterns and contradictions
		r.Get("/patterns", insightHandler.ListPatterns)
		r.Route("/contradictions", func(r chi.Router) {
			r.Get("/", insightHandler.ListContradictions)
			r.Post("/{id}/resolve", insightHandler.ResolveContradiction)
		})

		// Memory
		r.Route("/memory", func(r chi.Router) {
			r.Get("/stats", memoryHandler.Stats)
			r.Get("/top-of-mind", memoryHandler.TopOfMind)
		})

		// Vocabulary and corrections
		r.Route("/corrections", func(r chi.Router) {
			r.Get("/", vocabularyHandler.ListCorrections)
			r.Post("/", vocabularyHandler.AddCorrection)
			r.Delete("/{id}", vocabularyHandler.RemoveCorrection)
		})
		r.Route("/vocabulary", func(r chi.Router) {
			r.Get("/", vocabularyHandler.List)
			r.Post("/", vocabularyHandler.AddEntry)
			r.Delete("/{id}", vocabularyHandler.RemoveEntry)
			r.Get("/suggest", vocabularyHandler.Suggest)
			r.Post("/apply", vocabularyHandler.ApplySuggestion)
			r.Post("/sync", vocabularyHandler.Sync)
		})

		// Administration
		r.Route("/admin", func(r chi.Router) {
			r.Get("/extractors", adminHandler.ListExtractors)
			r.Put("/extractors/{name}", adminHandler.SetExtractorActive)
			r.Get("/observers", adminHandler.ObserverStats)
			r.Post("/observers/{name}/disable", adminHandler.DisableObserver)
			r.Post("/search-replace", adminHandler.SearchAndReplace)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.SessionStore        = (*store.SessionStore)(nil)
	_ domain.UnitStore           = (*store.UnitStore)(nil)
	_ domain.PropositionStore    = (*store.PropositionStore)(nil)
	_ domain.EntityStore         = (*store.EntityStore)(nil)
	_ domain.ClaimStore          = (*store.ClaimStore)(nil)
	_ domain.ChainStore          = (*store.ChainStore)(nil)
	_ domain.GoalStore           = (*store.GoalStore)(nil)
	_ domain.PatternStore        = (*store.PatternStore)(nil)
	_ domain.ContradictionStore  = (*store.ContradictionStore)(nil)
	_ domain.CorrectionStore     = (*store.CorrectionStore)(nil)
	_ domain.VocabularyStore     = (*store.VocabularyStore)(nil)
	_ domain.TaskStore           = (*store.TaskStore)(nil)
	_ domain.ExtractorStateStore = (*store.ExtractorStateStore)(nil)
	_ domain.SearchReplaceStore  = (*store.MaintenanceStore)(nil)
	_ domain.ExtractionClient    = (*llm.OpenAIClient)(nil)
	_ domain.ExtractionClient    = (*llm.AnthropicClient)(nil)
	_ domain.ExtractionClient    = (*llm.MockClient)(nil)
)
