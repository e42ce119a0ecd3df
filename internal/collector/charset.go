package collector

import (
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decode 把原始响应字节按 Content-Type 声明的字符集解码成文本。
// 任何输入都会得到一个字符串：UTF-8 非法时退回 Latin-1，未知字符集同样兜底，不会返回错误。
func Decode(body []byte, contentType string) string {
	label := charsetLabel(contentType)

	switch label {
	case "", "utf-8", "utf8":
		return decodeUTF8(body)
	case "iso-8859-1", "latin1", "latin-1", "iso8859-1":
		return decodeLatin1(body)
	case "windows-1252", "cp1252":
		if s, err := decodeWith(charmap.Windows1252, body); err == nil {
			return s
		}
		return decodeLatin1(body)
	}

	// 其余字符集按 WHATWG 标签表查找，例如 iso-8859-15、shift_jis
	if enc, _ := htmlcharset.Lookup(label); enc != nil {
		if s, err := decodeWith(enc, body); err == nil {
			return s
		}
	}
	return decodeUTF8(body)
}

// charsetLabel 从 Content-Type 中取出小写的 charset 参数，未声明时返回空串
func charsetLabel(contentType string) string {
	ct := strings.ToLower(contentType)
	idx := strings.Index(ct, "charset=")
	if idx == -1 {
		return ""
	}
	v := ct[idx+len("charset="):]
	if end := strings.IndexAny(v, "; ,"); end != -1 {
		v = v[:end]
	}
	return strings.Trim(strings.TrimSpace(v), `"'`)
}

func decodeUTF8(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return decodeLatin1(body)
}

// decodeLatin1 每个字节直接映射到同码位的 rune，对任意字节都成立
func decodeLatin1(body []byte) string {
	if s, err := decodeWith(charmap.ISO8859_1, body); err == nil {
		return s
	}
	var b strings.Builder
	b.Grow(len(body))
	for _, c := range body {
		b.WriteRune(rune(c))
	}
	return b.String()
}

func decodeWith(enc encoding.Encoding, body []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
