package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"improbable-love/config"
	"improbable-love/internal/ai"
	"improbable-love/internal/analysis"
	"improbable-love/internal/api"
	"improbable-love/internal/cities"
	"improbable-love/internal/logger"
	"improbable-love/internal/speech"
	"improbable-love/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// 加载配置，缺少密钥时直接退出
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("启动 Improbability of Love 服务", zap.String("env", cfg.Server.Env))

	// 创建AI客户端和转写服务
	aiClient := ai.NewClient(&cfg.OpenAI, log.Named("ai"))
	transcriber, err := speech.Factory(&cfg.Speech, &cfg.OpenAI)
	if err != nil {
		log.Fatal("创建转写服务失败", zap.Error(err))
	}
	log.Info("转写服务已就绪", zap.String("provider", transcriber.Provider()))

	analyzer := analysis.NewService(transcriber, aiClient, cfg.Analysis, log.Named("analysis"))

	// 城市缓存可选，配置了 MinIO 时启用
	var cityCache cities.Cache
	c := cron.New(cron.WithSeconds())
	if cfg.CacheEnabled() {
		minioClient, err := storage.NewMinioClient(context.Background(), &cfg.MinIO, log.Named("storage"))
		if err != nil {
			log.Fatal("创建MinIO客户端失败", zap.Error(err))
		}
		cache := storage.NewCityCache(minioClient, cfg.Cache.TTL, log.Named("cache"))
		cityCache = cache

		_, err = c.AddFunc(cfg.Cache.PruneSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := cache.Prune(ctx); err != nil {
				log.Error("清理城市缓存失败", zap.Error(err))
			}
		})
		if err != nil {
			log.Error("添加定时任务失败", zap.String("schedule", cfg.Cache.PruneSchedule), zap.Error(err))
		} else {
			c.Start()
			defer c.Stop()
			log.Info("缓存清理任务已启动", zap.String("schedule", cfg.Cache.PruneSchedule))
		}
	} else {
		log.Info("未配置 MINIO_ENDPOINT，城市缓存未启用")
	}

	cityClient := cities.NewClient(&cfg.Cities, cityCache, log.Named("cities"))

	server := api.NewServer(cfg, api.Dependencies{
		Analyzer: analyzer,
		Cities:   cityClient,
	}, log)

	// 创建通道接收系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 启动服务器（非阻塞）
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case <-quit:
		log.Info("收到退出信号，正在关闭服务")
	case err := <-errCh:
		if err != nil {
			log.Error("服务器运行失败", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("关闭服务器失败", zap.Error(err))
	}
	log.Info("服务已停止")
}
