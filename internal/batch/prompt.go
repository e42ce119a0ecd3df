package batch

import (
	"fmt"
	"strings"

	"github.com/LJTian/Newsy/internal/collector"
)

const (
	LocaleIT = "it"
	LocaleEN = "en"
)

// NormalizeLocale 只识别 en，其余一律按默认的意大利语处理
func NormalizeLocale(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), LocaleEN) {
		return LocaleEN
	}
	return LocaleIT
}

type promptText struct {
	translate   string
	translateTo string
	secondary   string
}

var promptTexts = map[string]promptText{
	LocaleIT: {
		translate:   "TRANSLATE TO ITALIAN: Provide all summaries and final output in Italian language.",
		translateTo: "Translate everything into Italian.",
		secondary:   "News Secondarie",
	},
	LocaleEN: {
		translate:   "TRANSLATE TO ENGLISH: Provide all summaries and final output in English language.",
		translateTo: "Translate everything into English.",
		secondary:   "Secondary News",
	},
}

// BuildPrompt 根据各源结果生成交给外部摘要模型的提示词。
// 输出只取决于 results 的内容与顺序以及 locale。
func BuildPrompt(results []collector.ScrapeResult, locale string) string {
	txt := promptTexts[NormalizeLocale(locale)]

	var b strings.Builder
	b.WriteString("Please analyze and summarize all the news in this comprehensive news collection. Follow these instructions:\n\n")
	b.WriteString("ELIMINATE DUPLICATE NEWS: Remove any duplicate or very similar news stories.\n\n")
	b.WriteString("ORGANIZE BY TOPIC: Group news into relevant categories (Politics, Economy, Technology, Sports, Health, International, etc.).\n\n")
	b.WriteString("ORGANIZE BY COUNTRY: Within each topic, organize by country/region (Italy, Germany, USA, International).\n\n")
	b.WriteString(txt.translate + "\n\n")
	b.WriteString("PROVIDE INSIGHTS: Add brief analysis of major trends and connections between stories.\n\n")
	b.WriteString("HIGHLIGHT IMPORTANT STORIES: Focus on the most impactful or relevant news of the day.\n\n")
	fmt.Fprintf(&b, "INCLUDE SECONDARY NEWS SECTION: At the end, provide a separate section called %q that lists less important or marginal news items that were excluded from the main summary. This allows the reader to explore additional stories if desired.\n\n", txt.secondary)
	b.WriteString("NEWS SOURCES AND CONTENT:\n---\n\n")

	for _, res := range results {
		fmt.Fprintf(&b, "## %s\n", res.Source)
		switch {
		case res.Failed():
			fmt.Fprintf(&b, "ERROR: %s\n\n", res.Error)
		case len(res.Titles) == 0:
			b.WriteString("No news found from this source.\n\n")
		default:
			fmt.Fprintf(&b, "Total articles: %d\n\n", len(res.Titles))
			for i, title := range res.Titles {
				fmt.Fprintf(&b, "%d. %s\n", i+1, title)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\nSUMMARY REQUIREMENTS:\n\n")
	b.WriteString("Remove duplicates and very similar stories.\n\n")
	b.WriteString("Group by topic categories.\n\n")
	b.WriteString("Sub-organize by country within each topic.\n\n")
	b.WriteString(txt.translateTo + "\n\n")
	b.WriteString("Provide concise but informative summaries.\n\n")
	b.WriteString("Include trend analysis and connections between stories.\n\n")
	b.WriteString("Highlight the most important stories of the day.\n\n")
	fmt.Fprintf(&b, "Include a final section %q for minor or supplementary news.\n\n", txt.secondary)
	b.WriteString("Please provide a well-structured summary following these guidelines.")
	return b.String()
}
