package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Index    IndexConfig    `mapstructure:"index"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Document DocumentConfig `mapstructure:"document"`
	Search   SearchConfig   `mapstructure:"search"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host          string        `mapstructure:"host"`                                   // 服务器主机
	Port          int           `mapstructure:"port" validate:"min=1,max=65535"`        // 服务器端口
	Mode          string        `mapstructure:"mode" validate:"oneof=debug release test"` // gin运行模式
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size" validate:"gt=0"` // 上传文件大小上限(字节)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`         // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧日志保留天数
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"required"` // 提供商：openai, tongyi, ollama, gemini
	Model       string        `mapstructure:"model" validate:"required"`    // 模型名称
	APIKey      string        `mapstructure:"api_key"`                      // API密钥
	Endpoint    string        `mapstructure:"endpoint"`                     // API端点
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gt=0"`   // 最大生成token数量
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"` // 单次调用超时
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider" validate:"required"` // 提供商：openai, ollama, local
	Model      string `mapstructure:"model"`                        // 模型名称
	APIKey     string `mapstructure:"api_key"`                      // API密钥（如果需要）
	Endpoint   string `mapstructure:"endpoint"`                     // API端点
	BatchSize  int    `mapstructure:"batch_size" validate:"gt=0"`   // 批处理大小
	Dimensions int    `mapstructure:"dimensions" validate:"gte=0"`  // 向量维度
	Workers    int    `mapstructure:"workers" validate:"gt=0"`      // 并发批次数
}

// IndexConfig 向量索引配置
type IndexConfig struct {
	Type string `mapstructure:"type" validate:"oneof=memory faiss"` // 索引类型
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" validate:"gt=0"`                       // 分块大小（字符）
	ChunkOverlap int `mapstructure:"chunk_overlap" validate:"gt=0,ltfield=ChunkSize"` // 分块重叠大小
}

// SearchConfig 检索配置
type SearchConfig struct {
	TopK int `mapstructure:"top_k" validate:"gte=1"` // 返回的最近邻数量
}

// TaskConfig 任务编排配置
type TaskConfig struct {
	Threshold  int    `mapstructure:"threshold" validate:"gt=0"`              // 超过该长度的输入走map-reduce
	ReduceMode string `mapstructure:"reduce_mode" validate:"oneof=llm concat"` // 合并方式
	Workers    int    `mapstructure:"workers" validate:"gt=0"`                // map阶段并发数
	Retries    int    `mapstructure:"retries" validate:"gte=0"`               // 网关错误重试次数
}

var validate = validator.New()

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	v := viper.New()
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvPrefix("DOCASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default 返回只包含默认值的配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值全部是可解码的基本类型
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 校验配置项
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// processEnvironmentVariables 展开 ${VAR} 形式的密钥
func processEnvironmentVariables(cfg *Config) {
	cfg.Embed.APIKey = expandEnv(cfg.Embed.APIKey)
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
}

func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		if envVal := os.Getenv(value[2 : len(value)-1]); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.max_upload_size", 32<<20)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	// LLM默认配置，兼容OpenAI协议的Groq端点
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.api_key", "${GROQ_API_KEY}")
	v.SetDefault("llm.endpoint", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "60s")

	// Embedding默认配置
	v.SetDefault("embed.provider", "local")
	v.SetDefault("embed.model", "all-minilm")
	v.SetDefault("embed.endpoint", "")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.dimensions", 384)
	v.SetDefault("embed.workers", 4)

	v.SetDefault("index.type", "memory")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 文档处理默认配置
	v.SetDefault("document.chunk_size", 5000)
	v.SetDefault("document.chunk_overlap", 200)

	v.SetDefault("search.top_k", 3)

	// 任务编排默认配置
	v.SetDefault("task.threshold", 5000)
	v.SetDefault("task.reduce_mode", "llm")
	v.SetDefault("task.workers", 4)
	v.SetDefault("task.retries", 0)
}
