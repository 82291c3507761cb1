// Package collab client HTTP cho các dịch vụ bên ngoài mà pipeline dùng: research, LLM, TTS,
// transcribe, sinh ảnh, render và đăng bài mạng xã hội.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 2 * time.Minute
	defaultMaxBodyBytes = 200 << 20
	maxRedirects        = 5
)

// ClientConfig cấu hình một client cho một dịch vụ
type ClientConfig struct {
	Service string // Tên dùng trong log/lỗi
	BaseURL string
	APIKey  string
	// AuthHeader mặc định "Authorization" với prefix "Bearer "
	AuthHeader string
	AuthPrefix string

	Timeout           time.Duration
	RequestsPerMinute int // 0 là không giới hạn

	// dial thay thế kết nối mạng, chỉ dùng trong test
	dial fasthttp.DialFunc
}

// APIError dịch vụ trả về mã lỗi HTTP
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API failed: %d %s", e.Service, e.Status, e.Body)
}

// Client JSON client dùng fasthttp, có rate limit phía gửi
type Client struct {
	cfg     ClientConfig
	http    *fasthttp.Client
	limiter *rate.Limiter
}

// NewClient tạo client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
		if cfg.AuthPrefix == "" {
			cfg.AuthPrefix = "Bearer "
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                cfg.Service,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxResponseBodySize: defaultMaxBodyBytes,
			Dial:                cfg.dial,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return c
}

// URL ghép BaseURL với path; path tuyệt đối (http...) giữ nguyên
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// Request một lần gọi HTTP
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
	Headers     map[string]string
	NoAuth      bool
}

// Response kết quả đã copy ra khỏi buffer của fasthttp
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Do gửi request. Mã >= 300 trả về *APIError
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.SetRequestURI(c.URL(r.Path))
	req.Header.SetMethod(method)
	if r.ContentType != "" {
		req.Header.SetContentType(r.ContentType)
	}
	if !r.NoAuth && c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.AuthHeader, c.cfg.AuthPrefix+c.cfg.APIKey)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else if method == fasthttp.MethodGet {
		err = c.http.DoRedirects(req, resp, maxRedirects)
	} else {
		err = c.http.DoTimeout(req, resp, c.cfg.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.cfg.Service, err)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	out := &Response{
		Status:      resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        append([]byte(nil), resp.Body()...),
	}
	if out.Status >= 300 {
		return out, &APIError{Service: c.cfg.Service, Status: out.Status, Body: truncate(string(out.Body), 500)}
	}
	return out, nil
}

// DoJSON gửi body dạng JSON (nil thì không có body) và decode kết quả vào out (nil thì bỏ qua)
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	r := Request{Method: method, Path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r.Body = data
		r.ContentType = "application/json"
	}
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s response decode: %w", c.cfg.Service, err)
	}
	return nil
}

// Download tải nội dung của một URL tuyệt đối, không gửi API key
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.Do(ctx, Request{Method: fasthttp.MethodGet, Path: url, NoAuth: true})
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.ContentType, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
