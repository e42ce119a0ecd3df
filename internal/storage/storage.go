package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/Newsy/internal/batch"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDisabled 表示未配置 Postgres，运行记录不可用
var ErrDisabled = errors.New("storage: history disabled")

const (
	runsCacheTTL   = time.Minute
	errorMaxRunes  = 500
	defaultRunsCap = 20
	runsCacheKey   = "newsy:runs:latest"
)

// BatchRun 记录一次批量抓取的统计信息；不保存任何抓取到的标题
type BatchRun struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Locale        string         `gorm:"size:8" json:"locale"`
	StartedAt     time.Time      `gorm:"index" json:"startedAt"`
	DurationMs    int64          `json:"durationMs"`
	SourceCount   int            `json:"sourceCount"`
	SuccessCount  int            `json:"successCount"`
	TotalTitles   int            `json:"totalTitles"`
	FailedSources datatypes.JSON `gorm:"type:jsonb" json:"failedSources"`
	Sources       []SourceRun    `gorm:"constraint:OnDelete:CASCADE" json:"sources,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// SourceRun 是某次批量抓取中单个新闻源的结果摘要
type SourceRun struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	BatchRunID uint   `gorm:"index" json:"batchRunId"`
	SourceID   string `gorm:"size:64;index" json:"sourceId"`
	Name       string `gorm:"size:128" json:"name"`
	TitleCount int    `json:"titleCount"`
	Error      string `gorm:"size:600" json:"error,omitempty"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
	log   zerolog.Logger
}

// NewStore dsn 或 redisAddr 为空时对应的后端不启用
func NewStore(dsn, redisAddr string, log zerolog.Logger) (*Store, error) {
	s := &Store{log: log}

	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		if err := db.AutoMigrate(&BatchRun{}, &SourceRun{}); err != nil {
			return nil, fmt.Errorf("storage: migrate: %w", err)
		}
		s.DB = db
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", redisAddr).Msg("redis ping failed")
		}
		s.Redis = rdb
	}
	return s, nil
}

// Enabled 报告是否至少有一个后端（Postgres 或 Redis）可以接收记录
func (s *Store) Enabled() bool {
	return s != nil && (s.DB != nil || s.Redis != nil)
}

func (s *Store) HistoryEnabled() bool {
	return s != nil && s.DB != nil
}

// RecordBatch 实现 batch.Recorder：写入运行记录并更新各源健康计数
func (s *Store) RecordBatch(ctx context.Context, rep *batch.Report) error {
	if s == nil {
		return nil
	}
	for _, res := range rep.Sources {
		s.RecordSource(ctx, res.SourceID, len(res.Titles), res.Error)
	}
	if s.DB == nil {
		return nil
	}

	run, err := newBatchRun(rep)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("storage: save batch run: %w", err)
	}
	// 只有默认条数的列表会被缓存，新记录写入后让它失效
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, runsCacheKey).Err()
	}
	return nil
}

func newBatchRun(rep *batch.Report) (*BatchRun, error) {
	failed, err := json.Marshal(rep.FailedSources)
	if err != nil {
		return nil, fmt.Errorf("storage: encode failed sources: %w", err)
	}
	run := &BatchRun{
		Locale:        rep.Locale,
		StartedAt:     rep.StartedAt,
		DurationMs:    rep.DurationMs,
		SourceCount:   len(rep.Sources),
		SuccessCount:  rep.SuccessfulSources,
		TotalTitles:   rep.TotalNews,
		FailedSources: datatypes.JSON(failed),
		Sources:       make([]SourceRun, 0, len(rep.Sources)),
	}
	for _, res := range rep.Sources {
		run.Sources = append(run.Sources, SourceRun{
			SourceID:   res.SourceID,
			Name:       toValidUTF8(res.Source),
			TitleCount: len(res.Titles),
			Error:      truncateRunesDB(toValidUTF8(res.Error), errorMaxRunes),
		})
	}
	return run, nil
}

// ListRuns 按时间倒序返回最近的运行记录，默认条数的结果缓存在 Redis 中
func (s *Store) ListRuns(ctx context.Context, limit int) ([]BatchRun, error) {
	if !s.HistoryEnabled() {
		return nil, ErrDisabled
	}
	limit = runsLimit(limit)

	useCache := s.cachesRuns(limit)
	if useCache {
		if bs, err := s.Redis.Get(ctx, runsCacheKey).Bytes(); err == nil {
			var cached []BatchRun
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var runs []BatchRun
	err := s.DB.WithContext(ctx).
		Preload("Sources").
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}

	if useCache && len(runs) > 0 {
		if bs, err := json.Marshal(runs); err == nil {
			_ = s.Redis.Set(ctx, runsCacheKey, bs, runsCacheTTL).Err()
		}
	}
	return runs, nil
}

// cachesRuns 只缓存默认条数，RecordBatch 只需要清理一个键
func (s *Store) cachesRuns(limit int) bool {
	return s.Redis != nil && limit == defaultRunsCap
}

func runsLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return defaultRunsCap
	}
	return limit
}

// toValidUTF8 避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断，确保不超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
