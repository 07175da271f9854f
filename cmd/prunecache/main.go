package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"improbable-love/config"
	"improbable-love/internal/cities"
	"improbable-love/internal/logger"
	"improbable-love/internal/storage"

	"go.uber.org/zap"
)

func main() {
	query := flag.String("query", "", "只删除该查询词的缓存（按城市查询的规则规范化）")
	timeout := flag.Duration("timeout", 2*time.Minute, "整体超时")
	flag.Parse()

	cfg, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if !cfg.CacheEnabled() {
		fmt.Fprintln(os.Stderr, "未配置 MINIO_ENDPOINT，没有可清理的缓存")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	minioClient, err := storage.NewMinioClient(ctx, &cfg.MinIO, log)
	if err != nil {
		log.Fatal("创建MinIO客户端失败", zap.Error(err))
	}
	cache := storage.NewCityCache(minioClient, cfg.Cache.TTL, log)

	if *query != "" {
		normalized := cities.NormalizeQuery(*query)
		if normalized == "" {
			log.Fatal("查询词规范化后为空", zap.String("query", *query))
		}
		if err := cache.Delete(ctx, normalized); err != nil {
			log.Fatal("删除缓存失败", zap.String("query", normalized), zap.Error(err))
		}
		log.Info("缓存已删除", zap.String("query", normalized))
		return
	}

	deleted, err := cache.Prune(ctx)
	if err != nil {
		log.Fatal("清理缓存失败", zap.Error(err))
	}
	fmt.Printf("已删除 %d 个过期缓存对象\n", deleted)
}
