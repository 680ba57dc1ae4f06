package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obviyus/pg-backloggd/internal/client/igdb"
	"github.com/obviyus/pg-backloggd/internal/client/twitch"
	"github.com/obviyus/pg-backloggd/internal/config"
	"github.com/obviyus/pg-backloggd/internal/crawler/backloggd"
	cronrunner "github.com/obviyus/pg-backloggd/internal/cron"
	"github.com/obviyus/pg-backloggd/internal/db"
	"github.com/obviyus/pg-backloggd/internal/handler"
	"github.com/obviyus/pg-backloggd/internal/logger"
	gormrepository "github.com/obviyus/pg-backloggd/internal/repository/gorm"
	"github.com/obviyus/pg-backloggd/internal/service"
)

func main() {
	cfgPath := os.Getenv("PGB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PGB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	crawlHTTP := &http.Client{Timeout: cfg.Backloggd.Timeout}
	crawler := backloggd.New(crawlHTTP, cfg.Backloggd.BaseURL, logger)

	tokenHTTP := &http.Client{Timeout: cfg.Twitch.Timeout}
	tokenClient := twitch.NewClient(tokenHTTP, cfg.Twitch.TokenURL, cfg.Twitch.ClientID, cfg.Twitch.ClientSecret)

	igdbHTTP := &http.Client{Timeout: cfg.IGDB.Timeout}
	igdbClient := igdb.NewClient(igdbHTTP, cfg.IGDB.BaseURL, cfg.Twitch.ClientID).
		WithRetries(cfg.IGDB.MaxRetries, cfg.IGDB.DefaultRetryAfter)

	store := gormrepository.New(dbConn.Gorm)

	syncService := &service.CrawlSyncService{
		Store:     store,
		Crawler:   crawler,
		ExportDir: cfg.Export.Dir,
		Logger:    logger,
	}
	enrichService := &service.EnrichService{
		Store:  store,
		Tokens: tokenClient,
		IGDB:   igdbClient,
		Pace:   rate.NewLimiter(rate.Every(cfg.IGDB.PaceInterval), 1),
		Logger: logger,
	}
	reportService := &service.ReportService{
		Store:             store,
		NameSubstitutions: cfg.Report.NameSubstitutions,
	}

	mode := "run"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "run":
		runPipeline(ctx, cfg, logger, syncService, enrichService, reportService)
	case "serve":
		serve(ctx, cfg, logger, dbConn, syncService, enrichService, reportService)
	default:
		logger.Fatal("unknown mode, expected run or serve", zap.String("mode", mode))
	}
}

// runPipeline runs one full pass: seed the store from previous exports,
// crawl every configured user, enrich missing metadata and write the
// recommendation export.
func runPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger, syncService *service.CrawlSyncService, enrichService *service.EnrichService, reportService *service.ReportService) {
	if cfg.Export.Dir != "" {
		imported, err := syncService.ImportDir(ctx, cfg.Export.Dir)
		if err != nil {
			logger.Warn("export import failed", zap.Error(err))
		} else if imported > 0 {
			logger.Info("imported previous exports", zap.Int("files", imported))
		}
	}

	results := syncService.SyncAll(ctx, cfg.Backloggd.Usernames)
	for _, result := range results {
		if result.Error != "" {
			continue
		}
		logger.Info("user synced",
			zap.String("username", result.Username),
			zap.Int("entries", result.Entries),
			zap.Int("journal_hits", result.JournalHits))
	}

	enrichResult, err := enrichService.Run(ctx)
	if err != nil {
		logger.Error("enrichment run failed", zap.Error(err))
	} else {
		logger.Info("enrichment complete",
			zap.Int("candidates", enrichResult.Candidates),
			zap.Int("enriched", enrichResult.Enriched),
			zap.Int("not_found", enrichResult.NotFound),
			zap.Int("errors", enrichResult.Errors))
	}

	rows, err := reportService.WriteCSV(ctx, cfg.Export.RecommendationsPath)
	if err != nil {
		logger.Fatal("recommendation export failed", zap.Error(err))
	}
	logger.Info("recommendation export written",
		zap.String("path", cfg.Export.RecommendationsPath),
		zap.Int("rows", rows))
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, dbConn *db.DB, syncService *service.CrawlSyncService, enrichService *service.EnrichService, reportService *service.ReportService) {
	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	libraryHandler := &handler.LibraryHandler{
		Sync:      syncService,
		Enrich:    enrichService,
		Report:    reportService,
		Usernames: cfg.Backloggd.Usernames,
		Logger:    logger,
	}
	libraryHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.LibrarySync, func(ctx context.Context) {
			results := syncService.SyncAll(ctx, cfg.Backloggd.Usernames)
			logger.Info("cron library sync done", zap.Int("users", len(results)))
			if _, err := enrichService.Run(ctx); err != nil {
				logger.Warn("cron enrichment failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register library sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
