// Package config 提供 YAML 配置加载
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIConfig 交易所接口配置
type APIConfig struct {
	BaseURL string `yaml:"base_url"` // REST 基础地址
	WSURL   string `yaml:"ws_url"`   // WebSocket 地址
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// BookConfig 订单簿配置
type BookConfig struct {
	Instrument  string `yaml:"instrument"`   // 启动时选中的交易对
	LevelsCount int    `yaml:"levels_count"` // 每侧展示的聚合档位数
}

// Config 会话配置
type Config struct {
	API  APIConfig  `yaml:"api"`
	Log  LogConfig  `yaml:"log"`
	Book BookConfig `yaml:"book"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.example.com",
			WSURL:   "wss://ws.example.com",
		},
		Log: LogConfig{
			Level:      "info",
			OutputFile: "logs/gotrade.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Book: BookConfig{
			Instrument:  "BTCUSD",
			LevelsCount: 50,
		},
	}
}

// Load 从 YAML 文件加载配置，缺失的字段保留默认值
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url 不能为空")
	}
	if c.API.WSURL == "" {
		return fmt.Errorf("api.ws_url 不能为空")
	}
	if c.Book.LevelsCount <= 0 {
		c.Book.LevelsCount = 50
	}
	return nil
}
