package processor

import "strings"

// MaxTitles 是每个新闻源最多保留的标题数
const MaxTitles = 50

// Titles 对抽取出的候选标题做统一清洗：
// 去除首尾空白、丢弃空串、按完全相等去重（保留首次出现顺序）、截断到 limit 条。
// limit <= 0 时使用 MaxTitles。
func Titles(in []string, limit int) []string {
	if limit <= 0 {
		limit = MaxTitles
	}
	out := make([]string, 0, min(len(in), limit))
	seen := make(map[string]struct{}, len(in))

	for _, raw := range in {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// CollapseSpace 把标题内部连续的空白（含换行、制表符）压缩成单个空格
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
