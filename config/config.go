package config

import (
	"os"
	"time"

	"CSProject/tools/decode"
	"CSProject/tools/errs"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	GatewayID   string `yaml:"gateway_id" json:"gateway_id"`
	NodeID      int64  `yaml:"node_id" json:"node_id"`
	PresenceTTL int    `yaml:"presence_ttl_sec" json:"presence_ttl_sec"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type NatsConfig struct {
	Servers []string `yaml:"servers" json:"servers"`
	Name    string   `yaml:"name" json:"name"`
}

type AuthConfig struct {
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
	ExpireMin int    `yaml:"expire_min" json:"expire_min"`
}

type AppConfig struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Redis  RedisConfig  `yaml:"redis" json:"redis"`
	Nats   NatsConfig   `yaml:"nats" json:"nats"`
	Auth   AuthConfig   `yaml:"auth" json:"auth"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:        ":8080",
			GatewayID:   "gw-1",
			NodeID:      1,
			PresenceTTL: 60,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Nats: NatsConfig{
			Servers: []string{"nats://127.0.0.1:4222"},
			Name:    "conv-sync",
		},
		Auth: AuthConfig{
			ExpireMin: 60 * 24,
		},
	}
}

// Load reads a yaml config file over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.WrapMsg(err, "read config", "path", path)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errs.WrapMsg(err, "parse config", "path", path)
	}
	return cfg, nil
}

// ApplyOverlay patches cfg with a loose key/value map, e.g. flags or
// environment-sourced overrides decoded from JSON.
func ApplyOverlay(cfg *AppConfig, overlay map[string]any) error {
	if len(overlay) == 0 {
		return nil
	}
	patched, err := decode.DecodeMap[AppConfig](overlay)
	if err != nil {
		return errs.WrapMsg(err, "apply config overlay")
	}
	merge(cfg, patched)
	return nil
}

func merge(dst, src *AppConfig) {
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.GatewayID != "" {
		dst.Server.GatewayID = src.Server.GatewayID
	}
	if src.Server.NodeID != 0 {
		dst.Server.NodeID = src.Server.NodeID
	}
	if src.Server.PresenceTTL != 0 {
		dst.Server.PresenceTTL = src.Server.PresenceTTL
	}
	if src.Redis.Addr != "" {
		dst.Redis = src.Redis
	}
	if len(src.Nats.Servers) > 0 {
		dst.Nats.Servers = src.Nats.Servers
	}
	if src.Nats.Name != "" {
		dst.Nats.Name = src.Nats.Name
	}
	if src.Auth.JwtSecret != "" {
		dst.Auth.JwtSecret = src.Auth.JwtSecret
	}
	if src.Auth.ExpireMin != 0 {
		dst.Auth.ExpireMin = src.Auth.ExpireMin
	}
}

func (c *AppConfig) PresenceTTL() time.Duration {
	return time.Duration(c.Server.PresenceTTL) * time.Second
}
