// catalogd discovers and indexes source-code projects under one or more
// filesystem roots, schedules the catalog jobs that keep them fresh, and
// serves hybrid keyword/semantic/natural-language search over HTTP.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/evercatalog/catalog/pkg/config"
	"github.com/evercatalog/catalog/pkg/database"
	"github.com/evercatalog/catalog/pkg/embedding"
	"github.com/evercatalog/catalog/pkg/events"
	"github.com/evercatalog/catalog/pkg/jobs"
	"github.com/evercatalog/catalog/pkg/llmclient"
	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
	"github.com/evercatalog/catalog/pkg/queue"
	"github.com/evercatalog/catalog/pkg/search"
	"github.com/evercatalog/catalog/pkg/store"
	"github.com/evercatalog/catalog/pkg/vectorstore"
	"github.com/evercatalog/catalog/pkg/watch"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := getEnv("CONFIG_DIR", "./deploy/config")

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}

	initLogging(getEnv("CATALOG_LOG_FORMAT", "json"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(filepath.Join(configDir, "catalog.yaml"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	initLogging(cfg.LogFormat)

	orgID := getEnv("CATALOG_ORG_ID", "default")
	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	slog.Info("starting catalogd", "org_id", orgID, "http_port", httpPort, "watch_paths", cfg.WatchPaths)

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to postgres", "database", dbCfg.Database)

	st := store.New(dbClient.DB)

	embedder, generator := buildModelClients(cfg)

	vstore := vectorstore.New(cfg.VectorCachePath)
	if err := vstore.Load(); err != nil {
		slog.Warn("no existing vector cache loaded, starting empty", "path", cfg.VectorCachePath, "error", err)
	}

	embedSvc := embedding.New(embedder, vstore, embedding.Config{ModelID: cfg.EmbeddingModel})
	searchSvc := search.New(st, embedSvc, generator, search.Config{
		FTSWeight:      cfg.FTSWeight,
		SemanticWeight: cfg.SemanticWeight,
		SemanticAuto:   cfg.SemanticAuto,
	})

	recorder := events.NewRecorder(st)

	deps := &jobs.Deps{Store: st, Embedding: embedSvc, Generator: generator, Recorder: recorder}
	scheduler := queue.New(st, deps, queue.Config{
		PollInterval:  cfg.WorkerPollInterval,
		MaxConcurrent: cfg.WorkerMaxConcurrent,
	})
	scheduler.SetRecorder(recorder)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	pipeline, err := startWatchPipeline(ctx, cfg, orgID, st, recorder)
	if err != nil {
		slog.Error("failed to start filesystem watch pipeline", "error", err)
		os.Exit(1)
	}
	if pipeline != nil {
		defer func() {
			if err := pipeline.Stop(); err != nil {
				slog.Error("error stopping watch pipeline", "error", err)
			}
		}()
	}

	dispatcher := events.NewDispatcher()
	dispatcher.Subscribe(func(e models.CatalogEvent) {
		slog.Info("catalog event", "event_id", e.ID, "event_type", e.EventType, "org_id", e.OrgID)
	})
	listener := events.NewListener(dbCfg.DSN(), dispatcher, st.GetEvent)
	if err := listener.Start(ctx); err != nil {
		slog.Error("failed to start event listener", "error", err)
		os.Exit(1)
	}
	defer listener.Stop(context.Background())

	router := newRouter(dbClient, st, searchSvc, scheduler)

	srv := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		slog.Info("http server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http shutdown", "error", err)
	}
	if vstore.Len() > 0 {
		if err := vstore.Save(true); err != nil {
			slog.Error("error saving vector cache on shutdown", "error", err)
		}
	}
}

func initLogging(format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildModelClients wires the embedding and generation ports to concrete
// adapters. An empty ANTHROPIC_API_KEY degrades Generator to nil — search's
// NL-query parsing then falls back to plain tokenization, llm_analysis
// records an empty analysis, and quality assessment uses its
// indicator-only fallback; none of these fail the job.
func buildModelClients(cfg config.Config) (ports.Embedder, ports.Generator) {
	var generator ports.Generator
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		generator = llmclient.NewAnthropicGenerator(apiKey, cfg.LLMModel)
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, LLM-dependent features are disabled")
	}

	embedder := ports.Embedder(llmclient.NewLocalHashEmbedder(256))
	return embedder, generator
}

// startWatchPipeline wires C8's filesystem watcher into C7's debouncer,
// enqueueing a scan job for cfg.WatchPaths and, for every root whose burst
// of filesystem events has settled, a refresh job (or a scan job when no
// project is cataloged at that root yet). Returns a nil pipeline (not
// an error) when no roots are configured.
func startWatchPipeline(ctx context.Context, cfg config.Config, orgID string, st *store.Store, recorder *events.Recorder) (*watch.Pipeline, error) {
	if len(cfg.WatchPaths) == 0 {
		slog.Info("no watch paths configured, skipping filesystem watcher")
		return nil, nil
	}

	watcher, err := watch.NewWatcher(nil, nil)
	if err != nil {
		return nil, err
	}

	debouncer := watch.New(cfg.DebounceWindow, cfg.MaxWait, watch.RefreshTriggerFunc(func(root string) {
		enqueueRefreshOrScan(ctx, st, orgID, root)
	}))

	pipeline := watch.NewPipeline(watcher, debouncer)
	for _, root := range cfg.WatchPaths {
		if err := pipeline.AddRoot(root); err != nil {
			return nil, err
		}

		job := &models.Job{ID: uuid.NewString(), OrgID: orgID, Kind: models.JobKindScan, Result: models.JSONMap{"paths": []string{root}}}
		if err := st.CreateJob(ctx, job); err != nil {
			slog.Error("failed to enqueue initial scan job", "root", root, "error", err)
			continue
		}
		slog.Info("enqueued initial scan job", "root", root, "job_id", job.ID)
	}

	return pipeline, nil
}

// enqueueRefreshOrScan is the debounced fire point for one settled root:
// handleRefresh (pkg/jobs) operates on an existing project's ProjectID, so
// an already-cataloged root gets a refresh job; a root with no matching
// project yet (the common case for a newly created directory under a
// watched tree) gets re-scanned instead, which is what discovers it.
func enqueueRefreshOrScan(ctx context.Context, st *store.Store, orgID, root string) {
	project, err := st.GetProjectByPath(ctx, orgID, root)
	if err != nil {
		job := &models.Job{ID: uuid.NewString(), OrgID: orgID, Kind: models.JobKindScan, Result: models.JSONMap{"paths": []string{root}}}
		if err := st.CreateJob(ctx, job); err != nil {
			slog.Error("failed to enqueue scan job for changed root", "root", root, "error", err)
			return
		}
		slog.Info("enqueued scan job for changed root", "root", root, "job_id", job.ID)
		return
	}

	job := &models.Job{ID: uuid.NewString(), OrgID: orgID, ProjectID: &project.ID, Kind: models.JobKindRefresh}
	if err := st.CreateJob(ctx, job); err != nil {
		slog.Error("failed to enqueue refresh job", "root", root, "project_id", project.ID, "error", err)
		return
	}
	slog.Info("enqueued refresh job", "root", root, "project_id", project.ID, "job_id", job.ID)
}

func newRouter(dbClient *database.Client, st *store.Store, searchSvc *search.Service, scheduler *queue.Scheduler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, dbClient.SQLDB())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbHealth, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": dbHealth,
			"queue":    scheduler.Health(reqCtx),
		})
	})

	router.GET("/search", func(c *gin.Context) {
		orgID := c.Query("org_id")
		query := c.Query("q")
		limit := 20
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		results, parsed, err := searchSvc.Query(ctx, orgID, query, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "parsed_query": parsed})
	})

	router.GET("/projects/:id", func(c *gin.Context) {
		orgID := c.Query("org_id")
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		project, err := st.GetProject(ctx, orgID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, project)
	})

	return router
}
