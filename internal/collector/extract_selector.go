package collector

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/LJTian/Newsy/internal/processor"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Window 是标题字符数（按 rune 计）的开区间 (Min, Max)
type Window struct {
	Min int
	Max int
}

func (w Window) Contains(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > w.Min && n < w.Max
}

// LinkScope 限定只收集指向本站、且路径包含指定片段的链接文本
type LinkScope struct {
	PathContains string
}

// SelectorRule 描述一个站点的结构化选择器抽取策略
type SelectorRule struct {
	Selectors string
	Window    Window
	// Lang 选择通用的样板词黑名单（it/en/de）
	Lang string
	// Deny 为站点额外的小写子串，标题（转小写后）包含任意一项即丢弃
	Deny []string

	Links *LinkScope
	// LinksFirst 为 true 时先只看站内链接，链接一个都没命中再退回 Selectors
	LinksFirst bool
	// RequireLetter 要求标题至少含一个字母或空白，过滤纯数字/符号块
	RequireLetter bool
}

// selectorTitles 在解析好的文档上执行 rule，返回未去重的候选标题
func selectorTitles(doc *goquery.Document, page *url.URL, rule SelectorRule) []string {
	resp := &colly.Response{Request: &colly.Request{URL: page}}

	if rule.Links != nil && rule.LinksFirst {
		if titles := linkTitles(doc, resp, page, rule); len(titles) > 0 {
			return titles
		}
		return headingTitles(doc, resp, rule)
	}

	titles := headingTitles(doc, resp, rule)
	if rule.Links != nil {
		titles = append(titles, linkTitles(doc, resp, page, rule)...)
	}
	return titles
}

func headingTitles(doc *goquery.Document, resp *colly.Response, rule SelectorRule) []string {
	if rule.Selectors == "" {
		return nil
	}
	var titles []string
	doc.Find(rule.Selectors).Each(func(i int, s *goquery.Selection) {
		e := colly.NewHTMLElementFromSelectionNode(resp, s, s.Get(0), i)
		if t := processor.CollapseSpace(e.Text); acceptTitle(t, rule) {
			titles = append(titles, t)
		}
	})
	return titles
}

func linkTitles(doc *goquery.Document, resp *colly.Response, page *url.URL, rule SelectorRule) []string {
	var titles []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		e := colly.NewHTMLElementFromSelectionNode(resp, s, s.Get(0), i)
		href := e.Attr("href")
		if rule.Links.PathContains != "" && !strings.Contains(href, rule.Links.PathContains) {
			return
		}
		if !sameSite(e.Request.AbsoluteURL(href), page) {
			return
		}
		if t := processor.CollapseSpace(e.Text); acceptTitle(t, rule) {
			titles = append(titles, t)
		}
	})
	return titles
}

func acceptTitle(t string, rule SelectorRule) bool {
	if t == "" || !rule.Window.Contains(t) {
		return false
	}
	if rule.RequireLetter && strings.IndexFunc(t, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsSpace(r) }) == -1 {
		return false
	}
	lower := strings.ToLower(t)
	return !containsAny(lower, denyFor(rule.Lang)) && !containsAny(lower, rule.Deny)
}

// sameSite 判断链接是否指向页面所在站点（忽略 www. 前缀）
func sameSite(abs string, page *url.URL) bool {
	if abs == "" || page == nil {
		return false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	return bareHost(u.Hostname()) == bareHost(page.Hostname())
}

func bareHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}
