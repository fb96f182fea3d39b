// 包 fetch 封装 HTTP 客户端（代理/超时/重试），面向 JSON 接口的 GET/POST。
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http  *http.Client
	retry int
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
}

// StatusError 表示非 2xx 响应，保留状态码便于调用方区分探测失败与翻页失败。
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("http status: %s", e.Status) }

// New 创建客户端，支持 http/https 代理与基础超时配置。
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	cl := &http.Client{Transport: transport}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	cl.Timeout = opts.Timeout
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return &Client{http: cl, retry: opts.Retry}, nil
}

// GetJSON 发起 GET 并将响应体解码到 out（out 为 nil 时丢弃响应体）。
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, header, nil, out)
}

// PostJSON 将 body 序列化为 JSON 发起 POST，并将响应体解码到 out。
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body any, out any) error {
	return c.DoJSON(ctx, http.MethodPost, url, header, body, out)
}

// DoJSON 发起一次 JSON 请求，失败时做简单线性回退重试。
// 非 2xx 返回 *StatusError；重试只覆盖网络错误与 5xx，4xx 直接返回。
func (c *Client) DoJSON(ctx context.Context, method, url string, header http.Header, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, url, rd)
		if reqErr != nil {
			return fmt.Errorf("new request: %w", reqErr)
		}
		req.Header.Set("Accept", "application/json, text/plain, */*")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response %s: %w", url, err)
			}
			return nil
		}
		if err == nil {
			serr := &StatusError{Code: resp.StatusCode, Status: resp.Status}
			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			if resp.StatusCode < 500 {
				return serr
			}
			lastErr = serr
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return lastErr
}
