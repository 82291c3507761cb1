package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration cấu hình tĩnh của ứng dụng, đọc từ config/env/<GO_ENV>.env rồi từ biến môi trường
type Configuration struct {
	Address               string `env:"ADDRESS" envDefault:":8080"`
	PublicBaseURL         string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"` // Dùng dựng URL media và webhook
	JwtSecret             string `env:"JWT_SECRET,required"`
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"` // Giây
	EnableTLS             bool   `env:"ENABLE_TLS" envDefault:"false"`
	TLSCertFile           string `env:"TLS_CERT_FILE"`
	TLSKeyFile            string `env:"TLS_KEY_FILE"`

	// ===== STORAGE =====
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`
	MongoDB_DBName        string `env:"MONGODB_DBNAME" envDefault:"shorts_farm"`
	Redis_Addr            string `env:"REDIS_ADDR"` // Rỗng thì cờ hủy chỉ giữ trong bộ nhớ
	Redis_Password        string `env:"REDIS_PASSWORD"`
	Redis_DB              int    `env:"REDIS_DB" envDefault:"0"`

	// ===== PIPELINE =====
	PipelineMaxParallelism int           `env:"PIPELINE_MAX_PARALLELISM" envDefault:"4"`
	RenderPollInterval     time.Duration `env:"RENDER_POLL_INTERVAL" envDefault:"30s"`
	PublishPollInterval    time.Duration `env:"PUBLISH_POLL_INTERVAL" envDefault:"1m"`
	SchedulerDailyAt       string        `env:"SCHEDULER_DAILY_AT" envDefault:"09:00"` // HH:MM UTC
	SchedulerEnabled       bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`

	// ===== COLLABORATORS =====
	LLM_BaseURL      string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLM_APIKey       string `env:"LLM_API_KEY"`
	LLM_Model        string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLM_RPM          int    `env:"LLM_RPM" envDefault:"60"`
	Whisper_Model    string `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	Image_Model      string `env:"IMAGE_MODEL" envDefault:"gpt-image-1"`
	Tavily_BaseURL   string `env:"TAVILY_BASE_URL" envDefault:"https://api.tavily.com"`
	Tavily_APIKey    string `env:"TAVILY_API_KEY"`
	FishAudio_URL    string `env:"FISH_AUDIO_BASE_URL" envDefault:"https://api.fish.audio"`
	FishAudio_APIKey string `env:"FISH_AUDIO_API_KEY"`
	FishAudio_RPM    int    `env:"FISH_AUDIO_RPM" envDefault:"0"`

	Render_BaseURL        string        `env:"RENDER_BASE_URL"`
	Render_APIKey         string        `env:"RENDER_API_KEY"`
	Render_ServeURL       string        `env:"RENDER_SERVE_URL"`
	Render_WebhookSecret  string        `env:"RENDER_WEBHOOK_SECRET"`
	Render_FramesPerChunk int           `env:"RENDER_FRAMES_PER_CHUNK" envDefault:"50"`
	Render_Timeout        time.Duration `env:"RENDER_TIMEOUT" envDefault:"5m"`

	// ===== PUBLISHING =====
	Instagram_GraphURL     string        `env:"INSTAGRAM_GRAPH_URL" envDefault:"https://graph.instagram.com/v23.0"`
	Instagram_PollInterval time.Duration `env:"INSTAGRAM_POLL_INTERVAL" envDefault:"1m"`
	YouTube_ClientID       string        `env:"YOUTUBE_CLIENT_ID"`
	YouTube_ClientSecret   string        `env:"YOUTUBE_CLIENT_SECRET"`
	YouTube_Privacy        string        `env:"YOUTUBE_PRIVACY" envDefault:"public"`

	// ===== SMTP (thông báo lỗi cho chủ account) =====
	SMTP_Host      string `env:"SMTP_HOST"`
	SMTP_Port      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTP_Username  string `env:"SMTP_USERNAME"`
	SMTP_Password  string `env:"SMTP_PASSWORD"`
	SMTP_FromName  string `env:"SMTP_FROM_NAME" envDefault:"Shorts Farm"`
	SMTP_FromEmail string `env:"SMTP_FROM_EMAIL"`
	FrontendURL    string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// RenderWebhookURL URL công khai của webhook render
func (c *Configuration) RenderWebhookURL() string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return c.PublicBaseURL + "/api/v1/render/webhook"
}

// getEnvPath tìm config/env/<GO_ENV>.env đi ngược lên từ working directory
func getEnvPath() string {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		// Logger chưa init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", goEnv))
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc cấu hình. Không có file env thì chỉ dùng biến môi trường.
func NewConfig() (*Configuration, error) {
	if envPath := getEnvPath(); envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
