package main

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"shorts_farm/config"
	automodels "shorts_farm/internal/api/automation/models"
	automationsvc "shorts_farm/internal/api/automation/service"
	"shorts_farm/internal/api/studio/models"
	studiosvc "shorts_farm/internal/api/studio/service"
	"shorts_farm/internal/collab"
	"shorts_farm/internal/database"
	"shorts_farm/internal/global"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/notifier"
	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/runstate"
	"shorts_farm/internal/scheduler"
	"shorts_farm/internal/worker"
)

// cancelFlagTTL cờ hủy tự hết hạn nếu run không bao giờ đọc tới
const cancelFlagTTL = 24 * time.Hour

// services các service Mongo dùng chung giữa handler, pipeline và worker
type services struct {
	projects *studiosvc.ProjectService
	scripts  *studiosvc.ScriptService
	videos   *studiosvc.VideoService
	casts    *studiosvc.CastService
	credits  *studiosvc.UserCreditService
	posts    *studiosvc.ScheduledPostService
	media    *studiosvc.MediaService
	accounts *automationsvc.AccountService
}

// serverApp toàn bộ dependency của tiến trình server, dựng một lần trong main
type serverApp struct {
	cfg   *config.Configuration
	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client // nil khi chạy không có Redis

	svc          *services
	render       *collab.RenderService
	publishers   map[string]worker.Publisher
	topics       *collab.LLMTopicGenerator
	limiter      *pipeline.StepLimiter // trần song song dùng chung cho pipeline và scheduler
	orchestrator *pipeline.Orchestrator
	scheduler    *scheduler.Scheduler
}

// Hàm khởi tạo toàn bộ dependency theo thứ tự: config, validator, database, service, collaborator, pipeline
func initApp() *serverApp {
	cfg := initConfig()
	initValidator()

	client, db := initDatabase_MongoDB(cfg)
	a := &serverApp{cfg: cfg, mongo: client, db: db}

	a.svc = initServices(db, cfg)
	cancels := a.initCancelSignals()
	a.initPipeline(cancels)
	a.initScheduler()
	return a
}

// Hàm khởi tạo cấu hình server
func initConfig() *config.Configuration {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize config: %v", err)
	}
	logrus.Info("Initialized server config")
	return cfg
}

// Hàm khởi tạo validator (đăng ký no_xss, hhmm, topic_or_urls)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo kết nối database và index cho các collection
func initDatabase_MongoDB(cfg *config.Configuration) (*mongo.Client, *mongo.Database) {
	client, err := database.GetInstance(cfg)
	if err != nil {
		logrus.Fatalf("Failed to get database instance: %v", err)
	}
	db := client.Database(cfg.MongoDB_DBName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cols := global.MongoDB_ColNames
	indexes := []struct {
		name  string
		model interface{}
	}{
		{cols.Projects, models.Project{}},
		{cols.Scripts, models.Script{}},
		{cols.Videos, models.Video{}},
		{cols.Casts, models.Cast{}},
		{cols.Characters, models.Character{}},
		{cols.Assets, models.Asset{}},
		{cols.UserCredits, models.UserCredit{}},
		{cols.ScheduledPosts, models.ScheduledPost{}},
		{cols.AutomationAccounts, automodels.Account{}},
	}
	for _, idx := range indexes {
		if err := database.EnsureIndexes(ctx, db.Collection(idx.name), idx.model); err != nil {
			// Index lỗi không chặn khởi động, chỉ cảnh báo
			logrus.WithField("collection", idx.name).WithError(err).Warn("Failed to ensure indexes")
		}
	}
	logrus.Info("Ensured collection indexes")
	return client, db
}

// Hàm khởi tạo các service Mongo
func initServices(db *mongo.Database, cfg *config.Configuration) *services {
	media, err := studiosvc.NewMediaService(db, cfg.PublicBaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize media storage: %v", err)
	}
	return &services{
		projects: studiosvc.NewProjectService(db),
		scripts:  studiosvc.NewScriptService(db),
		videos:   studiosvc.NewVideoService(db),
		casts:    studiosvc.NewCastService(db),
		credits:  studiosvc.NewUserCreditService(db),
		posts:    studiosvc.NewScheduledPostService(db),
		media:    media,
		accounts: automationsvc.NewAccountService(db),
	}
}

// initCancelSignals cờ hủy trên Redis để nhiều instance cùng thấy, không có Redis thì giữ trong bộ nhớ
func (a *serverApp) initCancelSignals() pipeline.CancelSignals {
	log := logger.WithModule("runstate")
	if a.cfg.Redis_Addr == "" {
		log.Warn("REDIS_ADDR trống, cờ hủy chỉ giữ trong bộ nhớ tiến trình")
		return pipeline.NewMemoryCancelSignals()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := runstate.Connect(ctx, a.cfg.Redis_Addr, a.cfg.Redis_Password, a.cfg.Redis_DB)
	if err != nil {
		log.WithError(err).Warn("Không kết nối được Redis, dùng cờ hủy trong bộ nhớ")
		return pipeline.NewMemoryCancelSignals()
	}
	a.redis = client
	log.WithField("addr", a.cfg.Redis_Addr).Info("Connected to Redis")
	return runstate.NewRedisCancelSignals(client, cancelFlagTTL)
}

// Hàm khởi tạo client các dịch vụ bên ngoài và orchestrator
func (a *serverApp) initPipeline(cancels pipeline.CancelSignals) {
	cfg := a.cfg
	a.limiter = pipeline.NewStepLimiter(cfg.PipelineMaxParallelism)

	llmClient := collab.NewClient(collab.ClientConfig{
		Service:           "llm",
		BaseURL:           cfg.LLM_BaseURL,
		APIKey:            cfg.LLM_APIKey,
		Timeout:           2 * time.Minute,
		RequestsPerMinute: cfg.LLM_RPM,
	})
	llm := collab.NewLLM(llmClient, cfg.LLM_Model)
	tavily := collab.NewClient(collab.ClientConfig{
		Service: "tavily",
		BaseURL: cfg.Tavily_BaseURL,
		APIKey:  cfg.Tavily_APIKey,
		Timeout: time.Minute,
	})
	fish := collab.NewClient(collab.ClientConfig{
		Service:           "fish-audio",
		BaseURL:           cfg.FishAudio_URL,
		APIKey:            cfg.FishAudio_APIKey,
		Timeout:           2 * time.Minute,
		RequestsPerMinute: cfg.FishAudio_RPM,
	})
	a.render = collab.NewRenderService(collab.NewClient(collab.ClientConfig{
		Service: "render",
		BaseURL: cfg.Render_BaseURL,
		APIKey:  cfg.Render_APIKey,
		Timeout: time.Minute,
	}), collab.RenderConfig{
		ServeURL:       cfg.Render_ServeURL,
		WebhookURL:     cfg.RenderWebhookURL(),
		WebhookSecret:  cfg.Render_WebhookSecret,
		FramesPerChunk: cfg.Render_FramesPerChunk,
		Timeout:        cfg.Render_Timeout,
		MaxRetries:     1,
	})

	// Graph API nhận access token qua query nên client không gắn header xác thực
	graph := collab.NewClient(collab.ClientConfig{
		Service: "instagram",
		BaseURL: cfg.Instagram_GraphURL,
		Timeout: 2 * time.Minute,
	})
	downloader := collab.NewClient(collab.ClientConfig{Service: "video-download", Timeout: 5 * time.Minute})
	a.publishers = map[string]worker.Publisher{
		automodels.PlatformInstagram: collab.NewInstagramPublisher(graph, cfg.Instagram_PollInterval),
		automodels.PlatformYouTube: collab.NewYouTubePublisher(collab.YouTubeConfig{
			ClientID:     cfg.YouTube_ClientID,
			ClientSecret: cfg.YouTube_ClientSecret,
			PrivacyState: cfg.YouTube_Privacy,
		}, downloader),
	}

	svc := a.svc
	deps := pipeline.Deps{
		Projects: svc.projects,
		Scripts:  svc.scripts,
		Videos:   svc.videos,
		Casts:    svc.casts,
		Assets:   svc.casts,
		Accounts: svc.accounts,
		Posts:    svc.posts,

		Research:    collab.NewTavilyResearcher(tavily),
		Planner:     collab.NewLLMPlanner(llm),
		Writer:      collab.NewLLMWriter(llm),
		Voice:       collab.NewFishVoice(fish),
		Transcriber: collab.NewWhisperTranscriber(llmClient, cfg.Whisper_Model),
		Blobs:       svc.media,
		Renderer:    a.render,
		Social:      collab.NewLLMSocialCopywriter(llm),
		Images:      collab.NewOpenAIImages(llmClient, cfg.Image_Model),

		Cancels: cancels,
		Limiter: a.limiter,
	}
	if n := notifier.NewEmailNotifier(notifier.SMTPConfig{
		Host:      cfg.SMTP_Host,
		Port:      cfg.SMTP_Port,
		Username:  cfg.SMTP_Username,
		Password:  cfg.SMTP_Password,
		FromName:  cfg.SMTP_FromName,
		FromEmail: cfg.SMTP_FromEmail,
		BaseURL:   cfg.FrontendURL,
	}); n != nil {
		deps.Notifier = n
	}

	orchestrator, err := pipeline.NewOrchestrator(deps, pipeline.Config{})
	if err != nil {
		logrus.Fatalf("Failed to initialize pipeline: %v", err)
	}
	a.orchestrator = orchestrator
	a.topics = collab.NewLLMTopicGenerator(llm)
	logrus.Info("Initialized pipeline orchestrator")
}

// Hàm khởi tạo scheduler tạo video hằng ngày cho các account
func (a *serverApp) initScheduler() {
	s, err := scheduler.NewScheduler(scheduler.Deps{
		Accounts: a.svc.accounts,
		Projects: a.svc.projects,
		Credits:  a.svc.credits,
		Topics:   a.topics,
		Runner:   a.orchestrator,
		Limiter:  a.limiter,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize scheduler: %v", err)
	}
	a.scheduler = s
}

// close đóng các kết nối ngoài, gọi sau khi server và worker đã dừng
func (a *serverApp) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	}
	_ = database.CloseInstance(a.mongo)
}
