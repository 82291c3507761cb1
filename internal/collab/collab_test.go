package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/pipeline"
)

// testServer fasthttp server trong bộ nhớ, ghi lại các request nhận được
type testServer struct {
	mu       sync.Mutex
	ln       *fasthttputil.InmemoryListener
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Auth   string
	Body   []byte
}

func newTestServer(t *testing.T, handler func(ctx *fasthttp.RequestCtx)) *testServer {
	t.Helper()
	s := &testServer{ln: fasthttputil.NewInmemoryListener()}
	go func() {
		_ = fasthttp.Serve(s.ln, func(ctx *fasthttp.RequestCtx) {
			q := map[string]string{}
			ctx.QueryArgs().VisitAll(func(k, v []byte) { q[string(k)] = string(v) })
			s.mu.Lock()
			s.requests = append(s.requests, recordedRequest{
				Method: string(ctx.Method()),
				Path:   string(ctx.Path()),
				Query:  q,
				Auth:   string(ctx.Request.Header.Peek("Authorization")),
				Body:   append([]byte(nil), ctx.PostBody()...),
			})
			s.mu.Unlock()
			handler(ctx)
		})
	}()
	t.Cleanup(func() { _ = s.ln.Close() })
	return s
}

func (s *testServer) client(service, apiKey string) *Client {
	return NewClient(ClientConfig{
		Service: service,
		BaseURL: "http://collab.test/",
		APIKey:  apiKey,
		Timeout: 5 * time.Second,
		dial:    func(string) (net.Conn, error) { return s.ln.Dial() },
	})
}

func (s *testServer) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	ctx.SetContentType("application/json")
	data, _ := json.Marshal(v)
	ctx.SetBody(data)
}

func TestExtractImages(t *testing.T) {
	content := "Intro ![A cat](https://x.test/cat.PNG) text ![](https://x.test/logo.svg) " +
		"![Chart](https://x.test/chart.webp) ![doc](https://x.test/file.pdf) ![Dog](https://x.test/dog.jpeg)"
	imgs := ExtractImages(content)
	require.Len(t, imgs, 3, "chỉ giữ ảnh png/jpg/jpeg/gif/webp")
	assert.Equal(t, MarkdownImage{Description: "A cat", URL: "https://x.test/cat.PNG"}, imgs[0])
	assert.Equal(t, "![Chart](https://x.test/chart.webp)", imgs[1].Markdown())
	assert.Equal(t, "https://x.test/dog.jpeg", imgs[2].URL)
	assert.Empty(t, ExtractImages("no images here"))
}

func TestClient_APIErrorAndAuth(t *testing.T) {
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
		ctx.SetBodyString("slow down")
	})
	c := srv.client("Fish Audio TTS", "secret")

	_, err := c.Do(context.Background(), Request{Method: "POST", Path: "/v1/tts"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Status)
	assert.Equal(t, "Fish Audio TTS API failed: 429 slow down", apiErr.Error())

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer secret", reqs[0].Auth)
	assert.Equal(t, "/v1/tts", reqs[0].Path)
}

func TestTavilyResearcher_SearchThenExtract(t *testing.T) {
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/search":
			writeJSON(ctx, map[string]interface{}{"results": []map[string]string{
				{"url": "https://a.test"}, {"url": "https://given.test"}, {"url": "https://b.test"},
			}})
		case "/extract":
			writeJSON(ctx, map[string]interface{}{"results": []map[string]string{
				{"url": "https://given.test", "raw_content": "First ![Tide](https://i.test/tide.png)"},
				{"url": "https://a.test", "raw_content": "Second ![Tide](https://i.test/tide.png) ![Moon](https://i.test/moon.gif)"},
			}})
		default:
			ctx.SetStatusCode(404)
		}
	})
	r := NewTavilyResearcher(srv.client("Tavily", "tvly"))

	res, err := r.Research(context.Background(), pipeline.ResearchRequest{
		Topic:          "tides",
		URLs:           []string{"https://given.test"},
		DoMoreResearch: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "First ![Tide](https://i.test/tide.png)\n\n---\n\nSecond ![Tide](https://i.test/tide.png) ![Moon](https://i.test/moon.gif)", res.RawText)
	assert.Equal(t, []string{"![Tide](https://i.test/tide.png)", "![Moon](https://i.test/moon.gif)"}, res.ImageURLs, "ảnh trùng phải bị loại")

	reqs := srv.recorded()
	require.Len(t, reqs, 2)
	var search tavilySearchRequest
	require.NoError(t, json.Unmarshal(reqs[0].Body, &search))
	assert.Equal(t, SearchMaxResults, search.MaxResults)

	var extract tavilyExtractRequest
	require.NoError(t, json.Unmarshal(reqs[1].Body, &extract))
	assert.Equal(t, []string{"https://given.test", "https://a.test", "https://b.test"}, extract.URLs, "URL giữ thứ tự và không trùng")
	assert.Equal(t, "markdown", extract.Format)
}

func TestTavilyResearcher_URLsOnlySkipsSearch(t *testing.T) {
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, map[string]interface{}{"results": []map[string]string{{"raw_content": "body"}}})
	})
	r := NewTavilyResearcher(srv.client("Tavily", "tvly"))

	res, err := r.Research(context.Background(), pipeline.ResearchRequest{Topic: "x", URLs: []string{"https://given.test"}})
	require.NoError(t, err)
	assert.Equal(t, "body", res.RawText)
	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/extract", reqs[0].Path)
}

func TestWordsToCaptions_RestoresPunctuation(t *testing.T) {
	caps := wordsToCaptions("Hello, world! It works.", []whisperWord{
		{Word: "Hello", Start: 0, End: 0.4},
		{Word: "world", Start: 0.5, End: 0.9},
		{Word: "It", Start: 1.0, End: 1.1},
		{Word: "works", Start: 1.2, End: 1.6},
	})
	require.Len(t, caps, 4)
	texts := make([]string, 0, len(caps))
	for _, c := range caps {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"Hello,", " world!", " It", " works."}, texts)
	assert.Equal(t, int64(500), caps[1].StartMs)
	assert.Equal(t, int64(900), caps[1].EndMs)
	assert.Equal(t, caps[1].StartMs, caps[1].TimestampMs)
}

func TestProgressOutcome(t *testing.T) {
	assert.Nil(t, progressOutcome(renderProgressResponse{OverallProgress: 0.4}), "job đang chạy trả về nil")

	done := progressOutcome(renderProgressResponse{Done: true, OutputFile: "https://cdn.test/out.mp4"})
	require.NotNil(t, done)
	assert.Equal(t, pipeline.RenderSucceeded, done.Kind)
	assert.Equal(t, "https://cdn.test/out.mp4", done.OutputURL)

	failed := progressOutcome(renderProgressResponse{
		FatalErrorEncountered: true,
		Errors: []struct {
			Message string `json:"message"`
			IsFatal bool   `json:"isFatal"`
		}{{Message: "retrying chunk", IsFatal: false}, {Message: "out of memory", IsFatal: true}},
	})
	require.NotNil(t, failed)
	assert.Equal(t, pipeline.RenderFailed, failed.Kind)
	assert.Equal(t, []string{"out of memory"}, failed.Errors)

	timedOut := progressOutcome(renderProgressResponse{TimedOut: true})
	assert.Equal(t, pipeline.RenderTimedOut, timedOut.Kind)
}

func instagramCred() automodels.PlatformCredential {
	return automodels.PlatformCredential{
		Platform:    automodels.PlatformInstagram,
		Handle:      "duo",
		UserID:      "17841",
		AccessToken: "ig-token",
	}
}

func TestInstagramPublisher_PollsUntilFinished(t *testing.T) {
	var polls int32
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case path == "/17841/media":
			writeJSON(ctx, map[string]string{"id": "container-1"})
		case path == "/container-1":
			status := "IN_PROGRESS"
			if atomic.AddInt32(&polls, 1) == 3 {
				status = "FINISHED"
			}
			writeJSON(ctx, map[string]string{"status_code": status})
		case path == "/17841/media_publish":
			writeJSON(ctx, map[string]string{"id": "media-99"})
		}
	})
	p := NewInstagramPublisher(srv.client("Instagram", ""), time.Millisecond)

	id, err := p.Publish(context.Background(), instagramCred(), PublishRequest{
		VideoURL: "https://cdn.test/out.mp4",
		Caption:  "Tides are fun 🌊 #science",
		CoverURL: "https://cdn.test/thumb.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "media-99", id)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))

	reqs := srv.recorded()
	require.Len(t, reqs, 5)
	assert.Equal(t, "REELS", reqs[0].Query["media_type"])
	assert.Equal(t, "https://cdn.test/thumb.png", reqs[0].Query["cover_url"])
	assert.Equal(t, "ig-token", reqs[0].Query["access_token"])
	assert.Empty(t, reqs[0].Auth, "token chỉ gửi qua query")
	assert.Equal(t, "container-1", reqs[4].Query["creation_id"])
}

func TestInstagramPublisher_BoundedPolling(t *testing.T) {
	var polls int32
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/17841/media":
			writeJSON(ctx, map[string]string{"id": "container-2"})
		case "/container-2":
			atomic.AddInt32(&polls, 1)
			writeJSON(ctx, map[string]string{"status_code": "IN_PROGRESS"})
		default:
			t.Errorf("không được gọi %s khi container chưa xong", ctx.Path())
		}
	})
	p := NewInstagramPublisher(srv.client("Instagram", ""), time.Millisecond)

	_, err := p.Publish(context.Background(), instagramCred(), PublishRequest{VideoURL: "https://cdn.test/out.mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, int32(InstagramStatusPolls), atomic.LoadInt32(&polls))
}

func TestInstagramPublisher_ContainerError(t *testing.T) {
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		if strings.HasSuffix(string(ctx.Path()), "/media") {
			writeJSON(ctx, map[string]string{"id": "container-3"})
			return
		}
		writeJSON(ctx, map[string]string{"status_code": "ERROR"})
	})
	p := NewInstagramPublisher(srv.client("Instagram", ""), time.Millisecond)

	_, err := p.Publish(context.Background(), instagramCred(), PublishRequest{VideoURL: "https://cdn.test/out.mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed processing")
	assert.Len(t, srv.recorded(), 2)
}

func TestInstagramPublisher_ExpiredToken(t *testing.T) {
	p := NewInstagramPublisher(NewClient(ClientConfig{Service: "Instagram"}), time.Millisecond)
	p.now = func() time.Time { return time.UnixMilli(2000) }
	cred := instagramCred()
	cred.ExpiresAt = 1000

	_, err := p.Publish(context.Background(), cred, PublishRequest{})
	assert.EqualError(t, err, "instagram access token expired")
}

func TestYouTubeTitle(t *testing.T) {
	assert.Equal(t, "Tides #shorts", youTubeTitle("  Tides "))
	long := strings.Repeat("é", 120)
	assert.Len(t, []rune(youTubeTitle(long)), 100)
}

func TestLLM_JSONStripsCodeFence(t *testing.T) {
	srv := newTestServer(t, func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, map[string]interface{}{"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": "```json\n{\"bestTopic\":\"Moon tides\"}\n```"}},
		}})
	})
	llm := NewLLM(srv.client("LLM", "sk"), "gpt-test")

	var out struct {
		BestTopic string `json:"bestTopic"`
	}
	require.NoError(t, llm.JSON(context.Background(), "sys", "prompt", &out))
	assert.Equal(t, "Moon tides", out.BestTopic)

	var req chatRequest
	require.NoError(t, json.Unmarshal(srv.recorded()[0].Body, &req))
	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, "json_object", req.ResponseFormat["type"])
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
}
