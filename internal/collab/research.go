package collab

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"shorts_farm/internal/logger"
	"shorts_farm/internal/pipeline"
)

const (
	// SearchMaxResults số kết quả tìm kiếm tối đa cho một topic
	SearchMaxResults  = 5
	documentSeparator = "\n\n---\n\n"
)

var (
	markdownImageRe = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// MarkdownImage ảnh markdown trích từ nội dung
type MarkdownImage struct {
	Description string
	URL         string
}

// Markdown dạng ![mô tả](url)
func (m MarkdownImage) Markdown() string {
	return fmt.Sprintf("![%s](%s)", m.Description, m.URL)
}

// ExtractImages lấy các ảnh markdown có đuôi ảnh hợp lệ
func ExtractImages(content string) []MarkdownImage {
	var out []MarkdownImage
	for _, m := range markdownImageRe.FindAllStringSubmatch(content, -1) {
		url := strings.ToLower(m[2])
		for _, ext := range imageExtensions {
			if strings.HasSuffix(url, ext) {
				out = append(out, MarkdownImage{Description: m[1], URL: m[2]})
				break
			}
		}
	}
	return out
}

// TavilyResearcher search + extract nội dung nguồn qua Tavily API
type TavilyResearcher struct {
	client *Client
}

// NewTavilyResearcher tạo researcher
func NewTavilyResearcher(client *Client) *TavilyResearcher {
	return &TavilyResearcher{client: client}
}

type tavilySearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilySearchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

type tavilyExtractRequest struct {
	URLs          []string `json:"urls"`
	IncludeImages bool     `json:"include_images"`
	ExtractDepth  string   `json:"extract_depth"`
	Format        string   `json:"format"`
}

type tavilyExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Research tìm theo topic khi không có URL hoặc khi yêu cầu research thêm, sau đó extract toàn bộ URL
func (t *TavilyResearcher) Research(ctx context.Context, req pipeline.ResearchRequest) (*pipeline.ResearchResult, error) {
	urls := dedupe(req.URLs)

	if req.Topic != "" && (len(urls) == 0 || req.DoMoreResearch) {
		var sr tavilySearchResponse
		err := t.client.DoJSON(ctx, "POST", "/search", tavilySearchRequest{Query: req.Topic, MaxResults: SearchMaxResults}, &sr)
		if err != nil {
			return nil, err
		}
		for _, r := range sr.Results {
			urls = append(urls, r.URL)
		}
		urls = dedupe(urls)
	}

	result := &pipeline.ResearchResult{}
	if len(urls) == 0 {
		return result, nil
	}

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"urls": len(urls),
	}).Info("🔎 [RESEARCH] Extract nội dung")

	var er tavilyExtractResponse
	err := t.client.DoJSON(ctx, "POST", "/extract", tavilyExtractRequest{
		URLs:          urls,
		IncludeImages: true,
		ExtractDepth:  "advanced",
		Format:        "markdown",
	}, &er)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(er.Results))
	var images []string
	for _, r := range er.Results {
		texts = append(texts, r.RawContent)
		for _, img := range ExtractImages(r.RawContent) {
			images = append(images, img.Markdown())
		}
	}
	result.RawText = strings.Join(texts, documentSeparator)
	result.ImageURLs = dedupe(images)
	return result, nil
}

// dedupe giữ thứ tự xuất hiện đầu tiên
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
