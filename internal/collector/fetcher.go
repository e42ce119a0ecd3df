package collector

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	defaultAcceptLanguage = "de-DE,de;q=0.9,en-US,en;q=0.8,it;q=0.7"
	defaultAcceptCharset  = "utf-8, iso-8859-1;q=0.5"
	defaultTimeout        = 10 * time.Second
	slowTimeout           = 15 * time.Second
	defaultMaxBodyBytes   = 5 << 20 // 5MB，防止超大页面占满内存
)

// StatusError 表示目标站点返回了非 2xx 状态码
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// FetchResult 保存未经解码的原始响应
type FetchResult struct {
	Body        []byte
	ContentType string
	URL         string
}

// Profile 是某一类新闻源的请求参数
type Profile struct {
	// Timeout 显式指定时优先；为 0 时按 Slow 选择客户端的默认或慢速超时
	Timeout        time.Duration
	Slow           bool
	Accept         string
	AcceptLanguage string
	// DowngradeHTTPS 把 https:// 改写为 http://，用于证书链有问题的站点
	DowngradeHTTPS bool
	// InsecureTLS 仅对该 Profile 的请求关闭证书校验
	InsecureTLS bool
}

// DefaultProfile 大部分新闻站点使用的请求参数
func DefaultProfile() Profile {
	return Profile{
		Accept:         defaultAccept,
		AcceptLanguage: defaultAcceptLanguage,
	}
}

// SlowProfile 用于 68k.news 这类响应慢且证书链不完整的站点
func SlowProfile() Profile {
	return Profile{
		Slow:           true,
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.5",
		DowngradeHTTPS: true,
		InsecureTLS:    true,
	}
}

// FeedProfile 用于 RSS 订阅源
func FeedProfile() Profile {
	p := DefaultProfile()
	p.Accept = "application/rss+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
	return p
}

type ClientOptions struct {
	UserAgent    string
	MaxBodyBytes int64
	// 0 表示使用内置的 10s / 15s
	DefaultTimeout time.Duration
	SlowTimeout    time.Duration
}

// Client 是无状态的抓取客户端：构造后只读，可在多个 goroutine 间共享
type Client struct {
	http           *http.Client
	insecure       *http.Client
	userAgent      string
	maxBodyBytes   int64
	defaultTimeout time.Duration
	slowTimeout    time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	insecure := http.DefaultTransport.(*http.Transport).Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // 仅 68k.news 使用

	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultTimeout
	}
	if opts.SlowTimeout <= 0 {
		opts.SlowTimeout = slowTimeout
	}

	return &Client{
		http:           &http.Client{Transport: base},
		insecure:       &http.Client{Transport: insecure},
		userAgent:      opts.UserAgent,
		maxBodyBytes:   opts.MaxBodyBytes,
		defaultTimeout: opts.DefaultTimeout,
		slowTimeout:    opts.SlowTimeout,
	}
}

// Fetch 按 Profile 请求 rawURL，返回原始字节；超时、DNS 失败与非 2xx 都以 error 返回
func (c *Client) Fetch(ctx context.Context, rawURL string, p Profile) (*FetchResult, error) {
	if p.DowngradeHTTPS && strings.HasPrefix(rawURL, "https://") {
		rawURL = "http://" + strings.TrimPrefix(rawURL, "https://")
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
		if p.Slow {
			timeout = c.slowTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("collector: build request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", orDefault(p.Accept, defaultAccept))
	req.Header.Set("Accept-Language", orDefault(p.AcceptLanguage, defaultAcceptLanguage))
	req.Header.Set("Accept-Charset", defaultAcceptCharset)

	client := c.http
	if p.InsecureTLS {
		client = c.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, fmt.Errorf("collector: fetch %s: timeout after %s: %w", rawURL, timeout, err)
		}
		return nil, fmt.Errorf("collector: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("collector: read %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         finalURL,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
