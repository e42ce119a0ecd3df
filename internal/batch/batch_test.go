package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/Newsy/internal/collector"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubScraper 按 source id 返回预设结果，可选地为每个源设置延迟
type stubScraper struct {
	results map[string]collector.ScrapeResult
	delay   map[string]time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (s *stubScraper) ScrapeOne(_ context.Context, src registry.Source) collector.ScrapeResult {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay[src.ID])
	res := s.results[src.ID]
	res.SourceID = src.ID
	res.Source = src.Name
	return res
}

type memRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (m *memRecorder) RecordBatch(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func threeSources() []registry.Source {
	return []registry.Source{
		{ID: "slow", Name: "Slow Source"},
		{ID: "empty", Name: "Empty Source"},
		{ID: "busy", Name: "Busy Source"},
	}
}

func TestRunMixedOutcomes(t *testing.T) {
	s := &stubScraper{
		results: map[string]collector.ScrapeResult{
			"slow":  {Titles: []string{}, Error: "timeout after 10s"},
			"empty": {Titles: []string{}},
			"busy":  {Titles: []string{"one headline", "two headline", "three headline", "four headline", "five headline"}},
		},
		delay: map[string]time.Duration{"slow": 30 * time.Millisecond},
	}
	rec := &memRecorder{}

	rep, err := NewRunner(s, rec, zerolog.Nop()).Run(context.Background(), threeSources(), "it")
	require.NoError(t, err)

	assert.Equal(t, 2, rep.SuccessfulSources)
	assert.Equal(t, []string{"Slow Source: timeout after 10s"}, rep.FailedSources)
	assert.Equal(t, 5, rep.TotalNews)

	ids := []string{}
	for _, r := range rep.Sources {
		ids = append(ids, r.SourceID)
	}
	assert.Equal(t, []string{"slow", "empty", "busy"}, ids, "registry order must be preserved")

	assert.Contains(t, rep.AIPrompt, "## Slow Source\nERROR: timeout after 10s\n")
	assert.Contains(t, rep.AIPrompt, "## Empty Source\nNo news found from this source.\n")
	assert.Contains(t, rep.AIPrompt, "## Busy Source\nTotal articles: 5\n\n1. one headline\n")

	require.Len(t, rec.reports, 1)
	assert.Same(t, rep, rec.reports[0])
}

func TestRunIsConcurrent(t *testing.T) {
	sources := make([]registry.Source, 0, 8)
	s := &stubScraper{results: map[string]collector.ScrapeResult{}, delay: map[string]time.Duration{}}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		sources = append(sources, registry.Source{ID: id, Name: id})
		s.delay[id] = 50 * time.Millisecond
	}

	_, err := NewRunner(s, nil, zerolog.Nop()).Run(context.Background(), sources, "en")
	require.NoError(t, err)
	assert.Greater(t, s.peak.Load(), int32(1))
}

func TestRunEmptyRegistry(t *testing.T) {
	rep, err := NewRunner(&stubScraper{}, nil, zerolog.Nop()).Run(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrEmptyRegistry)
	require.NotNil(t, rep)

	assert.Equal(t, 0, rep.TotalNews)
	assert.Equal(t, 0, rep.SuccessfulSources)
	assert.Empty(t, rep.Sources)
	assert.Empty(t, rep.FailedSources)
	assert.Equal(t, LocaleIT, rep.Locale)
}

func TestRunRecorderErrorIsIgnored(t *testing.T) {
	s := &stubScraper{results: map[string]collector.ScrapeResult{"busy": {Titles: []string{"only headline here"}}}}
	rec := &memRecorder{err: errors.New("db down")}

	rep, err := NewRunner(s, rec, zerolog.Nop()).Run(context.Background(), []registry.Source{{ID: "busy", Name: "Busy"}}, "en")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalNews)
}

func TestBuildTotalsMatchSources(t *testing.T) {
	results := []collector.ScrapeResult{
		{Source: "A", Titles: []string{"x1", "x2"}},
		{Source: "B", Titles: nil, Error: "boom"},
		{Source: "C", Titles: []string{"y1"}},
		{Source: "D", Titles: nil},
	}
	rep := build(results, LocaleEN, time.Now())

	sum, failed := 0, 0
	for _, r := range rep.Sources {
		assert.NotNil(t, r.Titles)
		if r.Failed() {
			failed++
			continue
		}
		sum += len(r.Titles)
	}
	assert.Equal(t, sum, rep.TotalNews)
	assert.Equal(t, failed, len(rep.FailedSources))
	assert.Equal(t, len(rep.Sources)-failed, rep.SuccessfulSources)
}
