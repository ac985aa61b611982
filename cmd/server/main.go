// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"originality-go/internal/config"
	"originality-go/internal/handler"
	"originality-go/internal/pipeline"
	"originality-go/internal/repository"
	"originality-go/internal/service"
	"originality-go/pkg/database"
	"originality-go/pkg/embedding"
	"originality-go/pkg/extractor"
	"originality-go/pkg/kafka"
	"originality-go/pkg/log"
	"originality-go/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := "./configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// 1. 初始化配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库、Redis 与 MinIO
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			log.Warnf("Redis 不可用, 不启用向量缓存: %v", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var objects pipeline.Fetcher
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatal("初始化 MinIO 失败", err)
		}
		objects = storage.NewObjectFetcher(minioClient, cfg.Ingestion.MaxDocumentBytes())
	}

	// 4. 初始化 Repository
	corpusRepo := repository.NewCorpusRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// 5. 初始化提取器与 Embedding
	textExtractor, err := extractor.New(cfg.Extractor)
	if err != nil {
		log.Fatal("初始化文本提取器失败", err)
	}
	encoder, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		log.Fatal("初始化 Embedding 客户端失败", err)
	}
	if rdb != nil {
		encoder = embedding.NewCached(encoder, rdb, time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour)
	}
	log.Infof("Embedding 模型: %s", encoder.Model())

	// 6. 启动前同步参考文档，完成之前不对外提供服务
	if _, err := pipeline.RegisterSeedFiles(ctx, cfg.Ingestion.SeedDir, sourceRepo); err != nil {
		log.Warnf("登记种子文件失败: %v", err)
	}
	processor := pipeline.NewProcessor(corpusRepo, pipeline.NewRemoteFetcher(cfg.Ingestion, objects), textExtractor, cfg.Ingestion.MaxPages)
	if _, err := processor.SynchronizeRegistry(ctx, sourceRepo); err != nil {
		log.Fatal("同步参考文档失败", err)
	}
	if ctx.Err() != nil {
		log.Info("同步期间收到停机信号，退出")
		return
	}

	// 7. 初始化 Service，Kafka 启用时报告经消息队列异步写库
	var publisher service.ReportPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	}
	originalityService := service.NewOriginalityService(corpusRepo, textExtractor, encoder, cfg.Extractor.MaxPages)
	reportService := service.NewReportService(reportRepo, publisher, time.Duration(cfg.Kafka.PublishTimeoutMS)*time.Millisecond)

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka, rdb, reportService)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				log.Error("Kafka 消费者异常退出", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(
		cfg.Server,
		handler.NewSimilarityHandler(originalityService, reportService, cfg.Server.MaxUploadMB),
		handler.NewReportHandler(reportService),
		handler.NewCorpusHandler(originalityService),
	)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	<-consumerDone
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
