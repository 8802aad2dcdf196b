package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config 应用配置
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Log     LogConfig
}

// Load 从环境变量加载配置，需先调用godotenv读取.env文件
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := listenAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string
	// AllowedOrigins 允许跨域访问的页面来源，默认只接受同源请求
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// 模型提供方
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// AIConfig AI模型配置
type AIConfig struct {
	Provider string `env:"AI_PROVIDER" envDefault:"gemini"`

	APIKey      string `env:"GEMINI_API_KEY"`
	BaseURL     string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Model       string `env:"GEMINI_MODEL" envDefault:"gemma-3-1b-it"`
	VisionModel string `env:"GEMINI_VISION_MODEL" envDefault:"gemma-3-1b-it-vision"`

	ArkAPIKey    string   `env:"ARK_API_KEY"`
	ArkAccessKey string   `env:"ARK_ACCESS_KEY"`
	ArkSecretKey string   `env:"ARK_SECRET_KEY"`
	ArkModel     string   `env:"ARK_MODEL"`
	ArkBaseURL   string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion    string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature  *float32 `env:"ARK_TEMPERATURE"`
	TopP         *float32 `env:"ARK_TOP_P"`
	MaxTokens    *int     `env:"ARK_MAX_TOKENS"`

	PersonaFile string `env:"PERSONA_FILE"`
	PersonaID   string `env:"PERSONA_ID"`
}

// HasCredential 判断所选提供方的凭证是否完整
func (c AIConfig) HasCredential() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return strings.TrimSpace(c.APIKey) != ""
	}
}

// StorageConfig 本地键值存储配置
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"file"`
	Path   string `env:"STORAGE_PATH" envDefault:"data/local-storage.json"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

func (c *Config) validate() error {
	var errs []error

	switch c.AI.Provider {
	case ProviderGemini, ProviderArk:
	default:
		errs = append(errs, fmt.Errorf("invalid AI_PROVIDER value %q", c.AI.Provider))
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_DRIVER value %q", c.Storage.Driver))
	}
	if c.Storage.Driver != "memory" && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("STORAGE_PATH is required"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT value %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// listenAddr 将 PORT 转换为监听地址。只给端口时绑定回环地址，页面和历史记录不暴露到局域网。
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许直接写 "127.0.0.1:8080" 或 "0.0.0.0:8080"
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return "127.0.0.1:" + port, nil
}
