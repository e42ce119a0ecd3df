package collector

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	teletextTimestampRe = regexp.MustCompile(`^\d{2}/\d{2}\s+\d{2}:\d{2}\s+(.+)$`)
	teletextDatePrefix  = regexp.MustCompile(`^\d{2}/\d{2}`)
)

// TeletextRule 是纯文本（televideo）页面的逐行判定参数
type TeletextRule struct {
	Stamped Window // "DD/MM HH:MM 标题" 行中标题的长度
	Caps    Window // 全大写行
	Mixed   Window // 大小写混合行

	CapsDeny  []string // 全大写行中出现即丢弃（区分大小写）
	MixedDeny []string
}

// DefaultTeletextRule 对应 RAI Televideo 纯文本页
func DefaultTeletextRule() TeletextRule {
	return TeletextRule{
		Stamped: Window{Min: 10, Max: 150},
		Caps:    Window{Min: 15, Max: 100},
		Mixed:   Window{Min: 20, Max: 120},
		CapsDeny: []string{
			"PAGINA", "TELEVIDEO", "RAI", "HTTP", "PRIMA", "ULTIMA",
			"POLITICA", "ECONOMIA", "DALL'ITALIA", "DAL MONDO", "CULTURE",
		},
		MixedDeny: []string{"Pagina", "sottopagina", "inserisci", "Cattura", "Copyright", "http"},
	}
}

// teletextTitles 把页面文本按行切分，每行依次尝试：带时间戳、全大写、大小写混合。
// 第一个命中的规则决定该行的去留，同一行不会被计入两次。
func teletextTitles(text string, rule TeletextRule) []string {
	// 页面常用 &nbsp; 分隔日期、时间与标题
	text = strings.ReplaceAll(text, "\u00a0", " ")

	var titles []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := teletextTimestampRe.FindStringSubmatch(line); m != nil && m[1] != "" {
			if t := strings.TrimSpace(m[1]); rule.Stamped.Contains(t) {
				titles = append(titles, t)
			}
			continue
		}

		if isCapsHeadline(line, rule) || isMixedHeadline(line, rule) {
			titles = append(titles, line)
		}
	}
	return titles
}

func isCapsHeadline(line string, rule TeletextRule) bool {
	if !rule.Caps.Contains(line) || !startsUpper(line) {
		return false
	}
	if line != strings.ToUpper(line) || !strings.Contains(line, " ") {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(line); unicode.IsDigit(r) {
		return false
	}
	return !containsAny(line, rule.CapsDeny)
}

func isMixedHeadline(line string, rule TeletextRule) bool {
	if !rule.Mixed.Contains(line) || !startsUpper(line) || !strings.Contains(line, " ") {
		return false
	}
	if teletextDatePrefix.MatchString(line) || containsAny(line, rule.MixedDeny) {
		return false
	}
	return strings.IndexFunc(line, unicode.IsLower) != -1
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
