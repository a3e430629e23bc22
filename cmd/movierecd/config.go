package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/movierec/core"
)

// ServiceConfig 是 movierecd 的服务配置（YAML）。
type ServiceConfig struct {
	Listen        string `yaml:"listen"`         // HTTP 监听地址，默认 ":8080"
	InternalToken string `yaml:"internal_token"` // /ai/* 鉴权令牌，空则不鉴权
	TTLSeconds    int    `yaml:"ttl_seconds"`    // 推荐响应可缓存秒数

	Engine core.EngineConfig `yaml:"engine"`

	// RetrainInterval 离线重训轮询间隔
	RetrainInterval time.Duration `yaml:"retrain_interval"`

	Redis struct {
		Addr string `yaml:"addr"` // 空则使用内存 Store
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	Postgres struct {
		DSN      string `yaml:"dsn"` // 空则使用内存评分库
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"postgres"`

	Kafka struct {
		Brokers []string `yaml:"brokers"` // 空则不启动摄入
		GroupID string   `yaml:"group_id"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Feast struct {
		Host    string `yaml:"host"` // 空则不接 Feast，元数据走 Store
		Port    int    `yaml:"port"`
		Project string `yaml:"project"`
	} `yaml:"feast"`
}

// LoadServiceConfig 读取配置文件；path 为空时返回全默认配置。
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cfg := &ServiceConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.RetrainInterval <= 0 {
		cfg.RetrainInterval = 5 * time.Minute
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "movierecd"
	}
	cfg.Engine = cfg.Engine.Normalize()
	return cfg, nil
}
