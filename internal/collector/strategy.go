package collector

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/LJTian/Newsy/internal/processor"
	"github.com/LJTian/Newsy/internal/registry"
	"github.com/PuerkitoBio/goquery"
)

// ErrUnknownSource 表示某个 source id 没有对应的抽取策略，属于配置错误
var ErrUnknownSource = errors.New("collector: no extraction strategy for source")

// Family 区分三类抽取方式
type Family int

const (
	FamilySelector Family = iota // 结构化选择器
	FamilyTeletext               // 纯文本逐行启发式
	FamilyFeed                   // RSS 优先，不足时抓页面
)

func (f Family) String() string {
	switch f {
	case FamilySelector:
		return "selector"
	case FamilyTeletext:
		return "teletext"
	case FamilyFeed:
		return "feed"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Strategy 是单个新闻源的抽取策略；按 Family 只使用对应的规则字段
type Strategy struct {
	Family   Family
	Profile  Profile
	Selector SelectorRule
	Teletext TeletextRule
	Feed     FeedRule
}

// Strategies 把 source id 映射到抽取策略
type Strategies map[string]Strategy

const headingSelectors = "h1, h2, h3"

var (
	denyIT = []string{"cookie", "privacy", "accedi", "abbonati", "abbonamento", "newsletter", "contatti", "pubblicità", "area riservata", "termini e condizioni"}
	denyEN = []string{"cookie", "privacy", "sign in", "log in", "subscribe", "newsletter", "contact us", "terms of use", "terms of service", "skip to", "advertisement"}
	denyDE = []string{"cookie", "datenschutz", "impressum", "anmelden", "abonnieren", "newsletter", "werbung", "jetzt registrieren"}
)

func denyFor(lang string) []string {
	switch lang {
	case "it":
		return denyIT
	case "de":
		return denyDE
	default:
		return denyEN
	}
}

func siteRule(selectors, lang string, w Window) SelectorRule {
	return SelectorRule{
		Selectors: headingSelectors + ", " + selectors,
		Window:    w,
		Lang:      lang,
	}
}

func k68Strategy(lang string) Strategy {
	return Strategy{
		Family:  FamilySelector,
		Profile: SlowProfile(),
		Selector: SelectorRule{
			Selectors:     headingSelectors + ", .title, .headline, .story-title",
			Window:        Window{Min: 10, Max: 200},
			Lang:          lang,
			Deny:          []string{"68k.news", "home", "about"},
			Links:         &LinkScope{PathContains: "article.php"},
			LinksFirst:    true,
			RequireLetter: true,
		},
	}
}

// DefaultStrategies 返回内置新闻源的抽取策略表
func DefaultStrategies() Strategies {
	std := Window{Min: 10, Max: 200}

	badische := siteRule(`.headline, .article-title, [class*="title"]`, "de", std)
	badische.RequireLetter = true

	ansaPage := siteRule(`.news-title, .headline, .entry-title, [class*="title"]`, "it", Window{Min: 10, Max: 150})
	ansaPage.Links = &LinkScope{PathContains: "/notizie/"}

	return Strategies{
		"televideo": {
			Family:   FamilyTeletext,
			Profile:  DefaultProfile(),
			Teletext: DefaultTeletextRule(),
		},
		"il-fatto": {
			Family:   FamilySelector,
			Profile:  DefaultProfile(),
			Selector: siteRule(`.entry-title, .article-title, .headline, [class*="title"]`, "it", std),
		},
		"repubblica": {
			Family:   FamilySelector,
			Profile:  DefaultProfile(),
			Selector: siteRule(`.entry-title, .story__headline, .headline, [data-testid*="headline"]`, "it", std),
		},
		"ansa": {
			Family:  FamilyFeed,
			Profile: DefaultProfile(),
			Feed: FeedRule{
				URL:                 "https://www.ansa.it/sito/ansait_rss.xml",
				MinTitles:           10,
				Placeholders:        []string{"(video)", "(foto)", "riproduzione riservata", "titolo non disponibile"},
				PlaceholderPrefixes: []string{"VIDEO", "FOTO", "Video:", "Foto:"},
				Page:                ansaPage,
			},
		},
		"reuters": {
			Family:   FamilySelector,
			Profile:  DefaultProfile(),
			Selector: siteRule(`[data-testid*="Heading"], .story-title, .headline`, "en", Window{Min: 15, Max: 200}),
		},
		"nytimes": {
			Family:   FamilySelector,
			Profile:  DefaultProfile(),
			Selector: siteRule(`.story-heading, .headline, [data-testid*="headline"]`, "en", std),
		},
		"badische": {
			Family:   FamilySelector,
			Profile:  DefaultProfile(),
			Selector: badische,
		},
		"68k-it": k68Strategy("it"),
		"68k-de": k68Strategy("de"),
		"68k-us": k68Strategy("en"),
	}
}

// WithLanguage 按注册表中的内容语言选择样板词黑名单；lang 为空时保持内置设置
func (st Strategy) WithLanguage(lang string) Strategy {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return st
	}
	st.Selector.Lang = lang
	st.Feed.Page.Lang = lang
	return st
}

func (s Strategies) Lookup(sourceID string) (Strategy, error) {
	st, ok := s[sourceID]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	return st, nil
}

// Extract 对已解码的页面文本执行 sourceID 对应的页面抽取，结果已去重并截断。
// Feed 类策略在这里执行的是页面兜底部分，订阅源本身由 ExtractFeed 处理。
func (s Strategies) Extract(sourceID, pageURL, text string) ([]string, error) {
	st, err := s.Lookup(sourceID)
	if err != nil {
		return nil, err
	}
	return extract(st, pageURL, text)
}

// Validate 检查每个新闻源都有抽取策略，缺失的 id 一并报告
func (s Strategies) Validate(sources []registry.Source) error {
	var missing []string
	for _, src := range sources {
		if _, ok := s[src.ID]; !ok {
			missing = append(missing, src.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, strings.Join(missing, ", "))
	}
	return nil
}

// ExtractFeed 解析 Feed 类策略的订阅源文本
func (s Strategies) ExtractFeed(sourceID, text string) ([]string, error) {
	st, err := s.Lookup(sourceID)
	if err != nil {
		return nil, err
	}
	if st.Family != FamilyFeed {
		return nil, fmt.Errorf("collector: source %s has no feed", sourceID)
	}
	titles, err := feedTitles(text, st.Feed)
	if err != nil {
		return nil, fmt.Errorf("collector: parse feed for %s: %w", sourceID, err)
	}
	return processor.Titles(titles, processor.MaxTitles), nil
}

func extract(st Strategy, pageURL, text string) ([]string, error) {
	raw, err := extractPage(st, pageURL, text)
	if err != nil {
		return nil, err
	}
	return processor.Titles(raw, processor.MaxTitles), nil
}

func extractPage(st Strategy, pageURL, text string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("collector: parse html: %w", err)
	}

	switch st.Family {
	case FamilyTeletext:
		return teletextTitles(doc.Find("body").Text(), st.Teletext), nil
	case FamilySelector, FamilyFeed:
		page, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("collector: parse page url %q: %w", pageURL, err)
		}
		rule := st.Selector
		if st.Family == FamilyFeed {
			rule = st.Feed.Page
		}
		return selectorTitles(doc, page, rule), nil
	default:
		return nil, fmt.Errorf("collector: unsupported strategy %s", st.Family)
	}
}
