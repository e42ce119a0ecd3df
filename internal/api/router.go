package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/LJTian/Newsy/internal/batch"
	"github.com/LJTian/Newsy/internal/collector"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/LJTian/Newsy/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BatchRunner 执行一次全量抓取，*batch.Runner 是默认实现
type BatchRunner interface {
	Run(ctx context.Context, sources []registry.Source, locale string) (*batch.Report, error)
}

// History 是可选的运行记录后端，*storage.Store 是默认实现
type History interface {
	HistoryEnabled() bool
	ListRuns(ctx context.Context, limit int) ([]storage.BatchRun, error)
	Health(ctx context.Context, ids []string) map[string]storage.SourceHealth
	RecordSource(ctx context.Context, sourceID string, titles int, errMsg string)
}

type Server struct {
	registry *registry.Registry
	scraper  batch.SourceScraper
	runner   BatchRunner
	history  History
	log      zerolog.Logger
}

// NewServer history 可以为 nil
func NewServer(reg *registry.Registry, scraper batch.SourceScraper, runner BatchRunner, history History, log zerolog.Logger) *Server {
	return &Server{registry: reg, scraper: scraper, runner: runner, history: history, log: log}
}

// NewEngine 构建带日志与恢复中间件的 gin 引擎并注册路由
func (s *Server) NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	api := r.Group("/api", noStore())
	{
		api.GET("/news", s.getNews)
		api.GET("/news/batch", s.getBatch)
		api.GET("/sources", s.listSources)
		api.GET("/runs", s.listRuns)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getNews GET /api/news?site=<id>
func (s *Server) getNews(c *gin.Context) {
	site := strings.TrimSpace(c.Query("site"))
	if site == "" {
		c.JSON(http.StatusBadRequest, collector.ScrapeResult{
			Source: "Unknown",
			Titles: []string{},
			Error:  "Site parameter is required",
		})
		return
	}

	// 在发起任何网络请求之前校验 id
	src, err := s.registry.Lookup(site)
	if err != nil {
		c.JSON(http.StatusBadRequest, collector.ScrapeResult{
			SourceID: site,
			Source:   site,
			Titles:   []string{},
			Error:    "Invalid site parameter: " + site,
		})
		return
	}

	res := s.scraper.ScrapeOne(c.Request.Context(), src)
	if s.history != nil {
		s.history.RecordSource(c.Request.Context(), res.SourceID, len(res.Titles), res.Error)
	}

	status := http.StatusOK
	if res.Failed() {
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

// getBatch GET /api/news/batch?lang=it|en
func (s *Server) getBatch(c *gin.Context) {
	lang := c.DefaultQuery("lang", batch.LocaleIT)

	rep, err := s.runner.Run(c.Request.Context(), s.registry.Sources(), lang)
	if err != nil {
		s.log.Error().Err(err).Msg("batch scrape failed")
		if errors.Is(err, batch.ErrEmptyRegistry) && rep != nil {
			out := *rep
			out.FailedSources = []string{"All sources failed"}
			c.JSON(http.StatusInternalServerError, out)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, rep)
}

type sourceView struct {
	registry.Source
	Health *storage.SourceHealth `json:"health,omitempty"`
}

// listSources GET /api/sources
func (s *Server) listSources(c *gin.Context) {
	sources := s.registry.Sources()

	var health map[string]storage.SourceHealth
	if s.history != nil {
		ids := make([]string, 0, len(sources))
		for _, src := range sources {
			ids = append(ids, src.ID)
		}
		health = s.history.Health(c.Request.Context(), ids)
	}

	out := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		v := sourceView{Source: src}
		if h, ok := health[src.ID]; ok {
			v.Health = &h
		}
		out = append(out, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    out,
	})
}

// listRuns GET /api/runs?limit=N
func (s *Server) listRuns(c *gin.Context) {
	if s.history == nil || !s.history.HistoryEnabled() {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "history_disabled",
			"message": "run history is not configured",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list runs failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    runs,
	})
}
