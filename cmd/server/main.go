package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"shorts_farm/internal/logger"
)

const (
	// shutdownTimeout thời gian tối đa chờ request đang xử lý khi tắt
	shutdownTimeout = 20 * time.Second
	// runDrainTimeout thời gian tối đa chờ pipeline run đang chạy
	runDrainTimeout = 2 * time.Minute
)

// initLogger khởi tạo logger cho toàn bộ ứng dụng, cấu hình đọc từ biến môi trường
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// listen chạy Fiber server, có TLS nếu cấu hình đủ cert và key
func listen(app *fiber.App, a *serverApp) error {
	cfg := a.cfg
	log := logger.GetAppLogger()

	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		ln, err := net.Listen("tcp", cfg.Address)
		if err != nil {
			return fmt.Errorf("create listener: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"address": cfg.Address,
			"cert":    cfg.TLSCertFile,
		}).Info("Starting server with HTTPS/TLS")
		return app.Listener(tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}), fiber.ListenConfig{DisableStartupMessage: true})
	}

	log.WithFields(map[string]interface{}{
		"address":  cfg.Address,
		"protocol": "HTTP",
	}).Info("Starting server with HTTP")
	return app.Listen(cfg.Address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Hàm main
func main() {
	initLogger()
	defer logger.Close()
	log := logger.GetAppLogger()

	a := initApp()
	app := InitFiberApp(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	workers := startWorkers(workerCtx, a)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- listen(app, a)
	}()

	select {
	case <-ctx.Done():
		log.Info("Nhận tín hiệu dừng, bắt đầu tắt server")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("Server dừng do lỗi")
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.WithError(err).Warn("Shutdown Fiber chưa hoàn tất")
	}
	cancelWorkers()
	workers.Wait()

	// Run chưa xong khi hết hạn chờ có thể rerun từ artifact đã lưu
	if active := a.orchestrator.ActiveRuns(); len(active) > 0 {
		log.WithField("projects", active).Info("Chờ các pipeline run đang chạy kết thúc")
	}
	drained := make(chan struct{})
	go func() {
		a.orchestrator.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(runDrainTimeout):
		log.Warn("Hết thời gian chờ pipeline run, các run dở sẽ được rerun sau")
	}

	a.close()
	log.Info("Server đã dừng")
}
