package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/Newsy/internal/processor"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/rs/zerolog"
)

// Fetcher 抽象网络请求，*Client 是默认实现
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, p Profile) (*FetchResult, error)
}

// ScrapeResult 是单个新闻源的抓取结果；Error 非空时 Titles 为空切片
type ScrapeResult struct {
	SourceID  string    `json:"sourceId"`
	Source    string    `json:"source"`
	Titles    []string  `json:"titles"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (r ScrapeResult) Failed() bool {
	return r.Error != ""
}

// Scraper 把 抓取 -> 解码 -> 抽取 串起来，任何一步失败都转成带 Error 的结果
type Scraper struct {
	fetcher    Fetcher
	strategies Strategies
	log        zerolog.Logger
}

// NewScraper strategies 为 nil 时使用 DefaultStrategies
func NewScraper(fetcher Fetcher, strategies Strategies, logger zerolog.Logger) *Scraper {
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	return &Scraper{fetcher: fetcher, strategies: strategies, log: logger}
}

// Validate 在启动时校验注册表中的每个源都有抽取策略
func (s *Scraper) Validate(sources []registry.Source) error {
	return s.strategies.Validate(sources)
}

// ScrapeOne 抓取一个新闻源。它不会返回 error 也不会 panic，失败信息写入 ScrapeResult.Error
func (s *Scraper) ScrapeOne(ctx context.Context, src registry.Source) (res ScrapeResult) {
	start := time.Now()
	res = ScrapeResult{
		SourceID:  src.ID,
		Source:    src.Name,
		Titles:    []string{},
		Timestamp: start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Titles = []string{}
			res.Error = fmt.Sprintf("extractor panic: %v", r)
		}
		took := time.Since(start)
		if res.Failed() {
			s.log.Warn().Str("source", src.ID).Dur("took", took).Str("error", res.Error).Msg("scrape failed")
			return
		}
		s.log.Info().Str("source", src.ID).Int("titles", len(res.Titles)).Dur("took", took).Msg("scrape done")
	}()

	titles, err := s.scrape(ctx, src)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Titles = titles
	return res
}

func (s *Scraper) scrape(ctx context.Context, src registry.Source) ([]string, error) {
	st, err := s.strategies.Lookup(src.ID)
	if err != nil {
		return nil, err
	}
	st = st.WithLanguage(src.Language)
	if st.Family == FamilyFeed {
		return s.scrapeFeed(ctx, src, st)
	}

	text, pageURL, err := s.fetchText(ctx, src.URL, st.Profile)
	if err != nil {
		return nil, err
	}
	return extract(st, pageURL, text)
}

// scrapeFeed 先读 RSS；有效标题不足 MinTitles 时抓取页面补充。
// 订阅源失败只记日志，页面也失败且订阅源没有任何标题时才算失败。
func (s *Scraper) scrapeFeed(ctx context.Context, src registry.Source, st Strategy) ([]string, error) {
	var titles []string
	if st.Feed.URL != "" {
		feedProfile := FeedProfile()
		feedProfile.Timeout = st.Profile.Timeout
		text, _, err := s.fetchText(ctx, st.Feed.URL, feedProfile)
		if err == nil {
			titles, err = s.strategies.ExtractFeed(src.ID, text)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.ID).Msg("feed unavailable, falling back to page")
		}
	}
	if len(titles) >= st.Feed.MinTitles {
		return titles, nil
	}

	text, pageURL, err := s.fetchText(ctx, src.URL, st.Profile)
	if err != nil {
		if len(titles) > 0 {
			s.log.Warn().Err(err).Str("source", src.ID).Int("feed_titles", len(titles)).Msg("page fallback failed, keeping feed titles")
			return titles, nil
		}
		return nil, err
	}
	pageTitles, err := extract(st, pageURL, text)
	if err != nil {
		if len(titles) > 0 {
			return titles, nil
		}
		return nil, err
	}
	return processor.Titles(append(titles, pageTitles...), processor.MaxTitles), nil
}

func (s *Scraper) fetchText(ctx context.Context, rawURL string, p Profile) (string, string, error) {
	res, err := s.fetcher.Fetch(ctx, rawURL, p)
	if err != nil {
		return "", "", err
	}
	finalURL := res.URL
	if finalURL == "" {
		finalURL = rawURL
	}
	return Decode(res.Body, res.ContentType), finalURL, nil
}
