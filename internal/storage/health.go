package storage

import (
	"context"
	"strconv"
	"time"
)

const healthKeyPrefix = "newsy:health:"

// SourceHealth 是某个新闻源的累计抓取情况
type SourceHealth struct {
	OK        int64     `json:"ok"`
	Fail      int64     `json:"fail"`
	LastError string    `json:"lastError,omitempty"`
	LastAt    time.Time `json:"lastAt,omitempty"`
	LastCount int       `json:"lastCount"`
}

// RecordSource 更新 Redis 中的健康计数；未配置 Redis 时什么也不做，失败只记日志
func (s *Store) RecordSource(ctx context.Context, sourceID string, titles int, errMsg string) {
	if s == nil || s.Redis == nil || sourceID == "" {
		return
	}
	key := healthKeyPrefix + sourceID
	now := time.Now().UTC().Format(time.RFC3339)

	pipe := s.Redis.TxPipeline()
	if errMsg != "" {
		pipe.HIncrBy(ctx, key, "fail", 1)
		pipe.HSet(ctx, key, "last_error", truncateRunesDB(errMsg, errorMaxRunes))
	} else {
		pipe.HIncrBy(ctx, key, "ok", 1)
		pipe.HDel(ctx, key, "last_error")
	}
	pipe.HSet(ctx, key, "last_at", now, "last_count", titles)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("source", sourceID).Msg("update source health failed")
	}
}

// Health 读取多个新闻源的健康计数；没有记录的源不出现在结果中
func (s *Store) Health(ctx context.Context, ids []string) map[string]SourceHealth {
	out := make(map[string]SourceHealth, len(ids))
	if s == nil || s.Redis == nil {
		return out
	}
	for _, id := range ids {
		m, err := s.Redis.HGetAll(ctx, healthKeyPrefix+id).Result()
		if err != nil {
			s.log.Warn().Err(err).Str("source", id).Msg("read source health failed")
			continue
		}
		if len(m) == 0 {
			continue
		}
		out[id] = parseHealth(m)
	}
	return out
}

func parseHealth(m map[string]string) SourceHealth {
	h := SourceHealth{LastError: m["last_error"]}
	h.OK, _ = strconv.ParseInt(m["ok"], 10, 64)
	h.Fail, _ = strconv.ParseInt(m["fail"], 10, 64)
	h.LastCount, _ = strconv.Atoi(m["last_count"])
	if t, err := time.Parse(time.RFC3339, m["last_at"]); err == nil {
		h.LastAt = t
	}
	return h
}
