package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/logger"
)

// PublishRequest nội dung một bài đăng video
type PublishRequest struct {
	Title    string
	VideoURL string
	Caption  string
	CoverURL string
}

// ====================================
// INSTAGRAM
// ====================================

const (
	// InstagramGraphURL base URL mặc định của Graph API
	InstagramGraphURL = "https://graph.instagram.com/v23.0"
	// InstagramStatusPolls số lần kiểm tra trạng thái container trước khi bỏ cuộc
	InstagramStatusPolls = 5
)

// InstagramPublisher đăng Reels qua Graph API: tạo container, chờ FINISHED, publish
type InstagramPublisher struct {
	client       *Client
	pollInterval time.Duration
	now          func() time.Time
}

// NewInstagramPublisher tạo publisher; client.BaseURL là Graph API base
func NewInstagramPublisher(client *Client, pollInterval time.Duration) *InstagramPublisher {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &InstagramPublisher{client: client, pollInterval: pollInterval, now: time.Now}
}

type graphID struct {
	ID string `json:"id"`
}

type graphStatus struct {
	StatusCode string `json:"status_code"`
}

func (p *InstagramPublisher) graph(ctx context.Context, method, path string, params url.Values, token string, out interface{}) error {
	params.Set("access_token", token)
	resp, err := p.client.Do(ctx, Request{Method: method, Path: path + "?" + params.Encode(), NoAuth: true})
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.Body, out)
}

// Publish trả về media id đã đăng
func (p *InstagramPublisher) Publish(ctx context.Context, cred automodels.PlatformCredential, req PublishRequest) (string, error) {
	if cred.UserID == "" || cred.AccessToken == "" {
		return "", errors.New("instagram credentials not found")
	}
	if cred.ExpiresAt > 0 && cred.ExpiresAt <= p.now().UnixMilli() {
		return "", errors.New("instagram access token expired")
	}
	log := logger.GetAppLogger().WithFields(map[string]interface{}{
		"platform": automodels.PlatformInstagram,
		"handle":   cred.Handle,
	})

	params := url.Values{}
	params.Set("media_type", "REELS")
	params.Set("video_url", req.VideoURL)
	params.Set("caption", req.Caption)
	if req.CoverURL != "" {
		params.Set("cover_url", req.CoverURL)
	}
	var container graphID
	if err := p.graph(ctx, "POST", cred.UserID+"/media", params, cred.AccessToken, &container); err != nil {
		return "", fmt.Errorf("instagram upload: %w", err)
	}
	if container.ID == "" {
		return "", errors.New("instagram upload returned no container id")
	}
	log.WithField("containerId", container.ID).Info("📤 [PUBLISH] Đã tạo container Reels")

	if err := p.waitFinished(ctx, container.ID, cred.AccessToken); err != nil {
		return "", err
	}

	var published graphID
	params = url.Values{}
	params.Set("creation_id", container.ID)
	if err := p.graph(ctx, "POST", cred.UserID+"/media_publish", params, cred.AccessToken, &published); err != nil {
		return "", fmt.Errorf("instagram publish: %w", err)
	}
	if published.ID == "" {
		return "", errors.New("instagram publish returned no media id")
	}
	return published.ID, nil
}

// waitFinished kiểm tra status_code tối đa InstagramStatusPolls lần
func (p *InstagramPublisher) waitFinished(ctx context.Context, containerID, token string) error {
	for i := 0; i < InstagramStatusPolls; i++ {
		var st graphStatus
		params := url.Values{}
		params.Set("fields", "status_code")
		err := p.graph(ctx, "GET", containerID, params, token, &st)
		switch {
		case err != nil:
			// Lỗi mạng khi kiểm tra không làm hỏng container, thử lại lần sau
			logger.GetAppLogger().WithError(err).WithField("containerId", containerID).Warn("📤 [PUBLISH] Lỗi kiểm tra trạng thái container")
		case st.StatusCode == "FINISHED":
			return nil
		case st.StatusCode == "ERROR":
			return fmt.Errorf("instagram container %s failed processing", containerID)
		}

		if i == InstagramStatusPolls-1 {
			break
		}
		timer := time.NewTimer(p.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("instagram reel upload timed out for container %s", containerID)
}

// ====================================
// YOUTUBE
// ====================================

// YouTubeConfig OAuth client của ứng dụng
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	PrivacyState string // public / unlisted / private
}

// YouTubePublisher upload Shorts qua YouTube Data API v3
type YouTubePublisher struct {
	cfg        YouTubeConfig
	downloader *Client
}

// NewYouTubePublisher tạo publisher; downloader dùng để tải video đã render
func NewYouTubePublisher(cfg YouTubeConfig, downloader *Client) *YouTubePublisher {
	if cfg.PrivacyState == "" {
		cfg.PrivacyState = "public"
	}
	return &YouTubePublisher{cfg: cfg, downloader: downloader}
}

// Publish trả về video id trên YouTube
func (y *YouTubePublisher) Publish(ctx context.Context, cred automodels.PlatformCredential, req PublishRequest) (string, error) {
	if cred.RefreshToken == "" {
		return "", errors.New("youtube credentials not found")
	}
	if y.cfg.ClientID == "" || y.cfg.ClientSecret == "" {
		return "", errors.New("youtube oauth client is not configured")
	}

	conf := &oauth2.Config{
		ClientID:     y.cfg.ClientID,
		ClientSecret: y.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	data, _, err := y.downloader.Download(ctx, req.VideoURL)
	if err != nil {
		return "", fmt.Errorf("download rendered video: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       youTubeTitle(req.Title),
			Description: req.Caption,
			Tags:        []string{"shorts"},
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           y.cfg.PrivacyState,
			SelfDeclaredMadeForKids: false,
		},
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	return uploaded.Id, nil
}

// YouTube giới hạn title 100 ký tự
func youTubeTitle(title string) string {
	title = strings.TrimSpace(title) + " #shorts"
	r := []rune(title)
	if len(r) > 100 {
		return string(r[:100])
	}
	return title
}
