package batch

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/Newsy/internal/collector"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyRegistry 表示没有任何可抓取的新闻源
var ErrEmptyRegistry = errors.New("batch: registry is empty")

// SourceScraper 抓取单个新闻源，*collector.Scraper 是默认实现
type SourceScraper interface {
	ScrapeOne(ctx context.Context, src registry.Source) collector.ScrapeResult
}

// Recorder 在报告生成后保存运行记录（只含统计与错误，不含标题）
type Recorder interface {
	RecordBatch(ctx context.Context, r *Report) error
}

// Report 是一次批量抓取的结果，生成后不再修改
type Report struct {
	Sources           []collector.ScrapeResult `json:"sources"`
	TotalNews         int                      `json:"totalNews"`
	SuccessfulSources int                      `json:"successfulSources"`
	FailedSources     []string                 `json:"failedSources"`
	AIPrompt          string                   `json:"aiPrompt"`

	Locale     string    `json:"locale"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

type Runner struct {
	scraper  SourceScraper
	recorder Recorder
	log      zerolog.Logger
}

// NewRunner recorder 可以为 nil
func NewRunner(scraper SourceScraper, recorder Recorder, logger zerolog.Logger) *Runner {
	return &Runner{scraper: scraper, recorder: recorder, log: logger}
}

// Run 并发抓取 sources 中的全部新闻源并汇总。
// 每个源独立超时、互不取消；单个源失败只体现在报告里，不会让 Run 返回错误。
// sources 为空时返回空报告和 ErrEmptyRegistry。
func (r *Runner) Run(ctx context.Context, sources []registry.Source, locale string) (*Report, error) {
	locale = NormalizeLocale(locale)
	start := time.Now()

	if len(sources) == 0 {
		rep := build(nil, locale, start)
		return rep, ErrEmptyRegistry
	}

	r.log.Info().Int("sources", len(sources)).Str("locale", locale).Msg("start batch scrape")

	results := make([]collector.ScrapeResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = r.scraper.ScrapeOne(ctx, src)
			return nil
		})
	}
	// 各 goroutine 恒返回 nil，这里只是等待全部结束
	_ = g.Wait()

	rep := build(results, locale, start)
	r.log.Info().
		Int("successful", rep.SuccessfulSources).
		Int("total", len(rep.Sources)).
		Int("news", rep.TotalNews).
		Int64("took_ms", rep.DurationMs).
		Msg("batch scrape done")

	if r.recorder != nil {
		if err := r.recorder.RecordBatch(ctx, rep); err != nil {
			r.log.Warn().Err(err).Msg("record batch failed")
		}
	}
	return rep, nil
}

// build 按注册表顺序一次性计算统计值
func build(results []collector.ScrapeResult, locale string, start time.Time) *Report {
	rep := &Report{
		Sources:       make([]collector.ScrapeResult, 0, len(results)),
		FailedSources: []string{},
		Locale:        locale,
		StartedAt:     start.UTC(),
	}
	for _, res := range results {
		if res.Titles == nil {
			res.Titles = []string{}
		}
		rep.Sources = append(rep.Sources, res)
		if res.Failed() {
			rep.FailedSources = append(rep.FailedSources, res.Source+": "+res.Error)
			continue
		}
		rep.TotalNews += len(res.Titles)
	}
	rep.SuccessfulSources = len(rep.Sources) - len(rep.FailedSources)
	rep.AIPrompt = BuildPrompt(rep.Sources, locale)
	rep.DurationMs = time.Since(start).Milliseconds()
	return rep
}
