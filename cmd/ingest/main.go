package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	appconfig "github.com/fyerfyer/ticket-copilot/config"
	"github.com/fyerfyer/ticket-copilot/internal/document"
	"github.com/fyerfyer/ticket-copilot/internal/embedding"
	"github.com/fyerfyer/ticket-copilot/internal/services"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/fyerfyer/ticket-copilot/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 离线摄取命令：扫描知识库目录，分块向量化后构建索引文件。
// 服务进程不做索引重建，更新知识库后重新执行本命令并重启服务。
func main() {
	configPath := flag.String("config", "", "Path to config file")
	kbDir := flag.String("kb", "", "Knowledge base directory (defaults to storage path from config)")
	indexPath := flag.String("index", "", "Output index file (defaults to vectordb path from config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	out := *indexPath
	if out == "" {
		out = cfg.VectorDB.Path
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dir := *kbDir
	if dir == "" {
		if cfg.Storage.Type == "minio" {
			dir, err = pullFromObjectStorage(cfg, logger)
			if err != nil {
				logger.Fatalf("Failed to pull knowledge base from object storage: %v", err)
			}
		} else {
			dir = cfg.Storage.Path
		}
	}

	embedder, err := setupEmbedding(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	splitter, err := document.NewTextSplitter(document.SplitterConfig{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
	})
	if err != nil {
		logger.Fatalf("Invalid splitter config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		logger.Fatalf("Failed to create index directory: %v", err)
	}

	// 索引实现和距离度量跟服务进程用同一份配置，建出的索引服务端才打得开
	ingest := services.NewIngestService(
		document.NewLoader(logger),
		splitter,
		embedder,
		logger,
		services.WithIngestBatchSize(cfg.Embed.BatchSize),
		services.WithIngestIndexType(cfg.VectorDB.Type),
		services.WithIngestDistance(vectordb.DistanceType(cfg.VectorDB.Distance)),
	)

	start := time.Now()
	count, err := ingest.Ingest(context.Background(), dir, out)
	if err != nil {
		logger.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Indexed %d chunks from %s into %s (%.1fs)\n",
		count, dir, out, time.Since(start).Seconds())
}

// pullFromObjectStorage 把MinIO中的知识库文件拉到本地临时目录供加载器扫描
func pullFromObjectStorage(cfg *appconfig.Config, logger *logrus.Logger) (string, error) {
	store, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return "", err
	}

	files, err := store.List()
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "ticket-copilot-kb-*")
	if err != nil {
		return "", err
	}

	for _, file := range files {
		reader, err := store.Get(file.Name)
		if err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", file.Name, err)
		}

		local, err := os.Create(filepath.Join(dir, file.Name))
		if err != nil {
			reader.Close()
			return "", err
		}
		_, err = io.Copy(local, reader)
		reader.Close()
		local.Close()
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", file.Name, err)
		}
	}

	logger.Infof("Pulled %d knowledge base files into %s", len(files), dir)
	return dir, nil
}

// setupEmbedding 设置嵌入模型客户端
// 必须与服务进程使用相同的嵌入配置，否则索引加载时会被拒绝
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
