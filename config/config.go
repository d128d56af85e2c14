package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	VectorDB   VectorDBConfig   `mapstructure:"vectordb"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embed      EmbedConfig      `mapstructure:"embed"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Document   DocumentConfig   `mapstructure:"document"`
	Search     SearchConfig     `mapstructure:"search"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`                                // 服务器主机
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`     // 服务器端口
	Mode string `mapstructure:"mode" validate:"oneof=debug release"` // 运行模式
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type" validate:"oneof=sqlite"` // 数据库类型
	DSN  string `mapstructure:"dsn" validate:"required"`      // 数据源名称
}

// StorageConfig 知识库文件存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=local minio"` // 存储类型
	Path      string `mapstructure:"path"`                              // 本地存储路径，兼作摄取的知识库目录
	Bucket    string `mapstructure:"bucket"`                            // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"`                          // MinIO端点
	AccessKey string `mapstructure:"access_key"`                        // MinIO访问密钥
	SecretKey string `mapstructure:"secret_key"`                        // MinIO私钥
	UseSSL    bool   `mapstructure:"use_ssl"`                           // 是否使用SSL
}

// VectorDBConfig 向量索引配置
// 摄取命令和服务进程读取同一份配置，保证两边索引实现一致
type VectorDBConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=memory faiss"`      // 索引实现
	Path     string `mapstructure:"path" validate:"required"`                // 索引文件路径
	Distance string `mapstructure:"distance" validate:"oneof=cosine dot l2"` // 距离度量
}

// ClassifierConfig 分类器配置
type ClassifierConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"` // 训练模型文件路径，缺失则回退规则分类
}

// LLMConfig 大语言模型配置
// Provider为空时不配置生成式客户端，回答只走抽取式
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" validate:"omitempty,oneof=gemini tongyi"` // 提供商
	Model       string  `mapstructure:"model"`                                             // 模型名称
	APIKey      string  `mapstructure:"api_key"`                                           // API密钥
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`                 // 接口地址，为空用提供商默认值
	MaxTokens   int     `mapstructure:"max_tokens"`                                        // 最大生成token数量
	Temperature float32 `mapstructure:"temperature"`                                       // 采样温度
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider" validate:"oneof=local tongyi"` // 提供商
	Model      string `mapstructure:"model"`                                  // 模型名称
	APIKey     string `mapstructure:"api_key"`                                // API密钥
	BatchSize  int    `mapstructure:"batch_size"`                             // 批处理大小
	Dimensions int    `mapstructure:"dimensions"`                             // 向量维度
}

// CacheConfig 回答缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=memory redis"` // 缓存类型
	Address  string `mapstructure:"address"`                            // Redis地址
	Password string `mapstructure:"password"`                           // Redis密码
	DB       int    `mapstructure:"db"`                                 // Redis数据库
	TTL      int    `mapstructure:"ttl"`                                // 缓存TTL(秒)
}

// DocumentConfig 文档分块配置
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" validate:"min=1"`    // 分块大小(字符)
	ChunkOverlap int `mapstructure:"chunk_overlap" validate:"min=0"` // 分块重叠(字符)
}

// SearchConfig 检索配置
type SearchConfig struct {
	TopK          int `mapstructure:"top_k" validate:"min=1"`          // 默认检索结果数量
	SnippetLength int `mapstructure:"snippet_length" validate:"min=1"` // 引用片段截断长度
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size"`    // 单个日志文件大小上限(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的历史文件数量
	MaxAgeDays int    `mapstructure:"max_age"`     // 日志保留天数
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	setDefaults(v)

	// 支持环境变量覆盖，如 SERVER_PORT、LLM_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	expandEnvPlaceholders(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 校验配置的合法性
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("invalid config: field %s failed rule %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %v", err)
	}

	if cfg.Document.ChunkOverlap >= cfg.Document.ChunkSize {
		return fmt.Errorf("invalid config: chunk_overlap %d must be smaller than chunk_size %d",
			cfg.Document.ChunkOverlap, cfg.Document.ChunkSize)
	}
	return nil
}

// expandEnvPlaceholders 处理配置项中${VAR}形式的环境变量引用
func expandEnvPlaceholders(cfg *Config) {
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Embed.APIKey = expandEnv(cfg.Embed.APIKey)
	cfg.Storage.AccessKey = expandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnv(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
}

// expandEnv 解析单个${VAR}占位符
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
			return envVal
		}
	}
	return value
}

// DataPath 返回数据目录下的文件路径
func (c *Config) DataPath(name string) string {
	return filepath.Join(filepath.Dir(c.Database.DSN), name)
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/ticket_copilot.db")

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/kb")
	v.SetDefault("storage.bucket", "ticket-copilot")
	v.SetDefault("storage.use_ssl", false)

	// 向量索引默认配置
	v.SetDefault("vectordb.type", "memory")
	v.SetDefault("vectordb.path", "./data/index.json")
	v.SetDefault("vectordb.distance", "cosine")

	// 分类器默认配置
	v.SetDefault("classifier.artifact_path", "./data/classifier.json")

	// LLM默认配置：默认不配置生成式，回答走抽取式
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.max_tokens", 350)
	v.SetDefault("llm.temperature", 0.2)

	// Embedding默认配置
	v.SetDefault("embed.provider", "local")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.dimensions", 256)

	// 缓存默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600)

	// 文档分块默认配置
	v.SetDefault("document.chunk_size", 800)
	v.SetDefault("document.chunk_overlap", 150)

	// 检索默认配置
	v.SetDefault("search.top_k", 3)
	v.SetDefault("search.snippet_length", 200)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 14)
}
