package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/LJTian/Newsy/internal/batch"
	"github.com/LJTian/Newsy/internal/collector"
	"github.com/LJTian/Newsy/internal/config"
	"github.com/LJTian/Newsy/internal/logx"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/LJTian/Newsy/internal/storage"
)

// 一次性抓取的命令行入口：-site 抓单个源，否则抓全部源并输出报告
func main() {
	site := flag.String("site", "", "source id to scrape; empty runs the whole batch")
	lang := flag.String("lang", batch.LocaleIT, "prompt locale for batch runs (it|en)")
	promptOnly := flag.Bool("prompt", false, "print only the generated prompt text")
	timeout := flag.Duration("timeout", 60*time.Second, "upper bound for the whole run")
	flag.Parse()

	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.LogFormat)

	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load registry failed")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *site != "" {
		src, err := reg.Lookup(*site)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid site parameter: %s\n", *site)
			os.Exit(2)
		}
		res := scraper.ScrapeOne(ctx, src)
		writeJSON(res)
		if res.Failed() {
			os.Exit(1)
		}
		return
	}

	var recorder batch.Recorder
	if cfg.StoreEnabled() {
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init store failed")
		}
		recorder = store
	}

	rep, err := batch.NewRunner(scraper, recorder, log).Run(ctx, reg.Sources(), *lang)
	if err != nil {
		log.Error().Err(err).Msg("batch scrape failed")
	}
	if *promptOnly {
		fmt.Println(rep.AIPrompt)
	} else {
		writeJSON(rep)
	}
	if err != nil {
		os.Exit(1)
	}
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
