package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	apperrors "improbable-love/internal/errors"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `envconfig:"APP"`
	OpenAI   OpenAIConfig   `envconfig:"OPENAI"`
	Speech   SpeechConfig   `envconfig:"SPEECH"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`
	Cities   CityConfig     `envconfig:"CITY"`
	MinIO    MinIOConfig    `envconfig:"MINIO"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Log      LogConfig      `envconfig:"LOG"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           string   `envconfig:"PORT" default:"3001"`
	Env            string   `envconfig:"ENV" default:"production"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MetricsEnabled bool     `envconfig:"METRICS" default:"true"`
	MaxBodyBytes   int64    `envconfig:"MAX_BODY_BYTES" default:"36700160"`
}

// OpenAIConfig 语言模型配置
type OpenAIConfig struct {
	APIKey    string `envconfig:"API_KEY"`
	BaseURL   string `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	Model     string `envconfig:"MODEL" default:"gpt-4o"`
	MaxTokens int    `envconfig:"MAX_TOKENS" default:"4096"`
	// MaxInputBytes 限制发送给模型的故事长度，<= 0 不截断
	MaxInputBytes int           `envconfig:"MAX_INPUT_BYTES" default:"32000"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"90s"`
}

// SpeechConfig 语音转文字配置
type SpeechConfig struct {
	Provider string        `envconfig:"PROVIDER" default:"openai"` // "openai" 或 "whisper-http"
	Model    string        `envconfig:"MODEL" default:"whisper-1"`
	URL      string        `envconfig:"URL"`     // whisper-http 使用的转写地址
	APIKey   string        `envconfig:"API_KEY"` // whisper-http 可选的鉴权
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

// AnalysisConfig 分析接口配置
type AnalysisConfig struct {
	MaxAudioBytes int `envconfig:"MAX_AUDIO_BYTES" default:"26214400"`
}

// CityConfig 城市查询配置
type CityConfig struct {
	APIKey     string        `envconfig:"API_KEY"`
	BaseURL    string        `envconfig:"BASE_URL" default:"https://api.api-ninjas.com/v1/city"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxResults int           `envconfig:"MAX_RESULTS" default:"10"`
	MinQuery   int           `envconfig:"MIN_QUERY" default:"2"`
	Debounce   time.Duration `envconfig:"DEBOUNCE" default:"750ms"`
}

// MinIOConfig MinIO存储配置，Endpoint 为空时不启用城市缓存
type MinIOConfig struct {
	Endpoint        string `envconfig:"ENDPOINT"`
	BucketName      string `envconfig:"BUCKET" default:"improbable-love"`
	AccessKeyID     string `envconfig:"ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"SECRET_KEY" default:"minioadmin"`
}

// CacheConfig 城市缓存配置
type CacheConfig struct {
	TTL           time.Duration `envconfig:"TTL" default:"168h"`
	PruneSchedule string        `envconfig:"PRUNE_SCHEDULE" default:"0 0 3 * * *"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `envconfig:"LEVEL" default:"info"`
	Encoding string `envconfig:"ENCODING" default:"json"`
}

// LoadConfig 从 .env 文件和环境变量加载配置，缺少密钥时立即返回配置错误
func LoadConfig() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv 只加载配置不做校验，供只用到部分配置的命令行工具使用
func LoadEnv() (*Config, error) {
	// .env 文件是可选的
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigurationError("无法解析.env文件", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, apperrors.NewConfigurationError("加载环境变量失败", err)
	}
	return &cfg, nil
}

// Validate 检查必需的密钥和取值范围
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(c.Cities.APIKey) == "" {
		missing = append(missing, "CITY_API_KEY")
	}
	if c.Speech.Provider == "whisper-http" && strings.TrimSpace(c.Speech.URL) == "" {
		missing = append(missing, "SPEECH_URL")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")), nil)
	}

	if c.Cities.MaxResults <= 0 {
		return apperrors.NewConfigurationError("CITY_MAX_RESULTS must be positive", nil)
	}
	if c.Analysis.MaxAudioBytes <= 0 {
		return apperrors.NewConfigurationError("ANALYSIS_MAX_AUDIO_BYTES must be positive", nil)
	}
	return nil
}

// CacheEnabled 报告是否配置了对象存储
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.MinIO.Endpoint) != ""
}
