package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/ticket-copilot/api"
	"github.com/fyerfyer/ticket-copilot/api/handler"
	"github.com/fyerfyer/ticket-copilot/api/middleware"
	appconfig "github.com/fyerfyer/ticket-copilot/config"
	"github.com/fyerfyer/ticket-copilot/internal/cache"
	"github.com/fyerfyer/ticket-copilot/internal/classifier"
	"github.com/fyerfyer/ticket-copilot/internal/database"
	"github.com/fyerfyer/ticket-copilot/internal/embedding"
	"github.com/fyerfyer/ticket-copilot/internal/llm"
	"github.com/fyerfyer/ticket-copilot/internal/repository"
	"github.com/fyerfyer/ticket-copilot/internal/services"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/fyerfyer/ticket-copilot/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// .env便于本地开发注入API密钥，文件缺失不算错误
	_ = godotenv.Load()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.Server.Mode)

	logger := setupLogger(cfg)
	logger.Info("Starting ticket copilot...")

	// 初始化数据库
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 知识库文件存储
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 分类路由器：模型文件可加载则走训练路径，否则回退规则。
	// 文件存在但损坏属于配置缺陷，直接拒绝启动
	classifierRouter, err := classifier.NewRouter(cfg.Classifier.ArtifactPath, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize classifier: %v", err)
	}
	logger.WithField("model_version", classifierRouter.ModelVersion()).
		Info("Classifier ready")

	// 嵌入客户端
	embedder, err := setupEmbedding(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	// 检索引擎：索引懒加载，缺失时查询报ErrIndexNotReady
	engine := services.NewRetrievalEngine(embedder, vectordb.Config{
		Type:         cfg.VectorDB.Type,
		Path:         cfg.VectorDB.Path,
		DistanceType: vectordb.DistanceType(cfg.VectorDB.Distance),
	}, logger,
		services.WithTopK(cfg.Search.TopK),
		services.WithSnippetLength(cfg.Search.SnippetLength),
	)
	defer engine.Close()

	// 生成式客户端可选，未配置时回答只走抽取式
	synthesizer, err := setupSynthesizer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// 回答缓存
	answerCache, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 业务服务
	ticketService := services.NewTicketService(
		repository.NewTicketRepository(database.DB),
		classifierRouter,
		logger,
	)
	answerService := services.NewAnswerService(
		engine,
		synthesizer,
		answerCache,
		logger,
		services.WithAnswerTopK(cfg.Search.TopK),
		services.WithAnswerCacheTTL(time.Duration(cfg.Cache.TTL)*time.Second),
	)

	// 路由
	router := api.SetupRouter(
		handler.NewTicketHandler(ticketService),
		handler.NewAnswerHandler(answerService, ticketService),
		handler.NewKBHandler(fileStorage),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Infof("Server is running on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger 设置日志系统
// 配置了日志文件时同时输出到标准输出和带轮转的文件
func setupLogger(cfg *appconfig.Config) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.Log.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return logger
}

// setupStorage 设置知识库文件存储
func setupStorage(cfg *appconfig.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
		})
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Storage.Path,
		})
	}
}

// setupEmbedding 设置嵌入模型客户端
func setupEmbedding(cfg *appconfig.Config) (embedding.Client, error) {
	switch cfg.Embed.Provider {
	case "tongyi":
		return embedding.NewClient("tongyi",
			embedding.WithAPIKey(cfg.Embed.APIKey),
			embedding.WithModel(cfg.Embed.Model),
			embedding.WithDimensions(cfg.Embed.Dimensions),
		)
	default:
		return embedding.NewClient("local",
			embedding.WithDimensions(cfg.Embed.Dimensions),
		)
	}
}

// setupSynthesizer 设置回答合成器
// 没有配置提供商时合成器只做抽取式回答
func setupSynthesizer(cfg *appconfig.Config, logger *logrus.Logger) (*llm.Synthesizer, error) {
	if cfg.LLM.Provider == "" {
		logger.Info("No LLM provider configured, answers will be extractive only")
		return llm.NewSynthesizer(nil), nil
	}

	opts := []llm.Option{
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	}
	if cfg.LLM.Endpoint != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLM.Endpoint))
	}

	client, err := llm.NewClient(cfg.LLM.Provider, opts...)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	}).Info("Generative answer client configured")
	return llm.NewSynthesizer(client), nil
}

// setupCache 设置回答缓存
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:       cfg.Cache.Type,
		DefaultTTL: time.Duration(cfg.Cache.TTL) * time.Second,
	}
	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}
	return cache.NewCache(cacheConfig)
}
