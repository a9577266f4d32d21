// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/CampaignDesk/internal/app"
	"github.com/Corphon/CampaignDesk/internal/config"
	"github.com/Corphon/CampaignDesk/internal/utils"
)

func main() {
	logger := utils.GetLogger()

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", utils.Fields{"error": err.Error()})
		os.Exit(1)
	}

	// 2. 配置日志
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.LogDir); err != nil {
		logger.Error("failed to configure logger", utils.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer logger.Close()

	// 3. 初始化服务与路由
	server, err := app.New(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize server", utils.Fields{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("starting CampaignDesk console", utils.Fields{
		"port":    cfg.Port,
		"url":     "http://localhost:" + cfg.Port,
		"backend": cfg.BackendURL,
	})

	// 4. 运行直到收到中断信号，然后优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped with error", utils.Fields{"error": err.Error()})
		logger.Close()
		os.Exit(1)
	}
}
