package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/Newsy/internal/api"
	"github.com/LJTian/Newsy/internal/batch"
	"github.com/LJTian/Newsy/internal/collector"
	"github.com/LJTian/Newsy/internal/config"
	"github.com/LJTian/Newsy/internal/logx"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/LJTian/Newsy/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.LogFormat)

	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load registry failed")
	}

	// 运行记录可选：未配置 POSTGRES_DSN / REDIS_ADDR 时 store 为空壳
	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init store failed")
	}

	client := collector.NewClient(collector.ClientOptions{
		UserAgent:      cfg.UserAgent,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		DefaultTimeout: cfg.FetchTimeout,
		SlowTimeout:    cfg.SlowFetchTimeout,
	})
	scraper := collector.NewScraper(client, collector.DefaultStrategies(), log)
	if err := scraper.Validate(reg.Sources()); err != nil {
		log.Fatal().Err(err).Msg("registry has sources without extraction strategy")
	}

	var recorder batch.Recorder
	if store.Enabled() {
		recorder = store
	}
	runner := batch.NewRunner(scraper, recorder, log)

	gin.SetMode(gin.ReleaseMode)
	r := api.NewServer(reg, scraper, runner, store, log).NewEngine()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Int("sources", reg.Len()).Bool("history", cfg.HistoryEnabled()).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
