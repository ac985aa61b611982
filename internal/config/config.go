// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	Mode               string   `mapstructure:"mode"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	MaxUploadMB        int64    `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql | sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时不启用向量缓存。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时报告直接写库。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	// PublishTimeoutMS 限制检测请求等待发送报告事件的时间，超时后直接写库。
	PublishTimeoutMS int `mapstructure:"publish_timeout_ms"`
}

// Enabled 表示是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return k.Brokers != ""
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空时不支持 minio:// 地址。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// ExtractorConfig 选择文本提取实现。
type ExtractorConfig struct {
	Type          string `mapstructure:"type"` // pdf | tika
	MaxPages      int    `mapstructure:"max_pages"`
	TikaServerURL string `mapstructure:"tika_server_url"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"` // openai | hash（仅用于离线测试）
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"` // 0 表示使用模型的原生维度
	BatchSize      int    `mapstructure:"batch_size"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	TimeoutSecs    int    `mapstructure:"timeout_secs"`
	CacheTTLHours  int    `mapstructure:"cache_ttl_hours"`
}

// IngestionConfig 控制启动时同步参考文档的行为。
type IngestionConfig struct {
	MaxPages          int     `mapstructure:"max_pages"`
	FetchTimeoutSecs  int     `mapstructure:"fetch_timeout_secs"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RetryBackoffMS    int     `mapstructure:"retry_backoff_ms"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// SeedDir 下的文件会在启动时以 file:// 地址登记到文档登记表，目录不存在则跳过。
	SeedDir string `mapstructure:"seed_dir"`
	// MaxDocumentMB 限制单个参考文档的大小，0 表示不限制。
	MaxDocumentMB int64 `mapstructure:"max_document_mb"`
}

// MaxDocumentBytes 返回以字节计的文档大小上限，0 表示不限制。
func (c IngestionConfig) MaxDocumentBytes() int64 {
	if c.MaxDocumentMB <= 0 {
		return 0
	}
	return c.MaxDocumentMB << 20
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "similarity.checked")
	v.SetDefault("kafka.group_id", "originality-go-reports")
	v.SetDefault("kafka.publish_timeout_ms", 2000)
	v.SetDefault("extractor.type", "pdf")
	v.SetDefault("extractor.max_pages", 10)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.base_url", "http://127.0.0.1:8080/v1")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.max_concurrency", 4)
	v.SetDefault("embedding.timeout_secs", 60)
	v.SetDefault("embedding.cache_ttl_hours", 168)
	v.SetDefault("ingestion.max_pages", 10)
	v.SetDefault("ingestion.fetch_timeout_secs", 30)
	v.SetDefault("ingestion.max_retries", 2)
	v.SetDefault("ingestion.retry_backoff_ms", 500)
	v.SetDefault("ingestion.seed_dir", "initfile")
	v.SetDefault("ingestion.max_document_mb", 100)
}

// Load 读取 .env（可选）与指定的 YAML 文件，环境变量可以覆盖任意配置项，
// 例如 DATABASE_DSN 覆盖 database.dsn。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 文件失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &conf, nil
}
