package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	MetricsProvider struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"metrics_provider"`

	Database struct {
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"database"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	API struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	Engine struct {
		TickInterval    time.Duration `yaml:"tick_interval"`    // 调度器扫描间隔
		ActionWorkers   int           `yaml:"action_workers"`   // 动作分发并发数
		WebhookTimeout  time.Duration `yaml:"webhook_timeout"`  // webhook请求超时
		RegistryRefresh time.Duration `yaml:"registry_refresh"` // 实时规则注册表刷新间隔
	} `yaml:"engine"`

	Email struct {
		SMTPHost string `yaml:"smtp_host"`
		SMTPPort int    `yaml:"smtp_port"`
		From     string `yaml:"from"`
	} `yaml:"email"`

	Discord struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"discord"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析YAML
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	overrideFromEnv(&config)

	// 填充默认值
	applyDefaults(&config)

	return &config, nil
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	// 应用名称
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}

	// 环境
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// 指标服务配置
	if env := os.Getenv("METRICS_API_KEY"); env != "" {
		config.MetricsProvider.APIKey = env
	}
	if env := os.Getenv("METRICS_BASE_URL"); env != "" {
		config.MetricsProvider.BaseURL = env
	}

	// 数据库配置
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Database.Postgres.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		var port int
		fmt.Sscanf(env, "%d", &port)
		if port > 0 {
			config.Database.Postgres.Port = port
		}
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Database.Postgres.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Database.Postgres.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Database.Postgres.DBName = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
	}

	// API配置
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}

	// Discord配置
	if env := os.Getenv("DISCORD_WEBHOOK_URL"); env != "" {
		config.Discord.WebhookURL = env
	}
}

// applyDefaults 填充引擎相关默认值
func applyDefaults(config *Config) {
	if config.Engine.TickInterval <= 0 {
		config.Engine.TickInterval = 30 * time.Second
	}
	if config.Engine.ActionWorkers <= 0 {
		config.Engine.ActionWorkers = 4
	}
	if config.Engine.WebhookTimeout <= 0 {
		config.Engine.WebhookTimeout = 10 * time.Second
	}
	if config.Engine.RegistryRefresh <= 0 {
		config.Engine.RegistryRefresh = time.Minute
	}
	if config.MetricsProvider.Timeout <= 0 {
		config.MetricsProvider.Timeout = 10 * time.Second
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
