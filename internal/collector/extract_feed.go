package collector

import (
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedRule 描述 RSS 优先、页面兜底的抽取策略
type FeedRule struct {
	URL string
	// MinTitles 订阅源有效标题少于该值时，再抓取页面补充
	MinTitles int
	// Placeholders 订阅源中的占位/视频预告标题（小写匹配）
	Placeholders []string
	// PlaceholderPrefixes 以这些前缀开头的标题视为视频/图集预告（区分大小写）
	PlaceholderPrefixes []string
	Page                SelectorRule
}

// feedTitles 解析 RSS/Atom 文本，返回 <item><title> 列表，跳过占位标题
func feedTitles(text string, rule FeedRule) ([]string, error) {
	feed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		t := strings.TrimSpace(item.Title)
		if t == "" || isPlaceholder(t, rule) {
			continue
		}
		titles = append(titles, t)
	}
	return titles, nil
}

func isPlaceholder(t string, rule FeedRule) bool {
	for _, p := range rule.PlaceholderPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return containsAny(strings.ToLower(t), rule.Placeholders)
}
