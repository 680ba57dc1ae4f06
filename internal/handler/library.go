package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/obviyus/pg-backloggd/internal/service"
)

// LibraryHandler exposes the pipeline over HTTP: trigger crawls and
// enrichment, read the recommendation report and per-user crawl state.
type LibraryHandler struct {
	Sync      *service.CrawlSyncService
	Enrich    *service.EnrichService
	Report    *service.ReportService
	Usernames []string
	Logger    *zap.Logger
}

func (h *LibraryHandler) Register(r *gin.Engine) {
	group := r.Group("/api/library")
	group.POST("/sync", h.sync)
	group.POST("/enrich", h.enrich)
	group.GET("/report", h.report)
	group.GET("/crawl-state", h.crawlState)
}

func (h *LibraryHandler) sync(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	username := strings.TrimSpace(c.Query("username"))
	if username != "" {
		result, err := h.Sync.SyncUser(c.Request.Context(), username)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, result, nil)
		return
	}

	results := h.Sync.SyncAll(c.Request.Context(), h.Usernames)
	Ok(c, results, map[string]any{"users": len(results)})
}

func (h *LibraryHandler) enrich(c *gin.Context) {
	if h.Enrich == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Enrich.Run(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("enrichment run failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}

func (h *LibraryHandler) report(c *gin.Context) {
	if h.Report == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	rows, err := h.Report.Build(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, rows, Total(len(rows)))
}

func (h *LibraryHandler) crawlState(c *gin.Context) {
	if h.Sync == nil || h.Sync.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Sync.Store.ListCrawlStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, states, Total(len(states)))
}
