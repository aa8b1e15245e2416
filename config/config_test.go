package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "0123456789abcdef0123"
scheduler:
  lock_backend: redis
  allow_reschedule: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Scheduler.LockBackend != LockBackendRedis {
		t.Errorf("期望 lock_backend=redis，实际 %s", cfg.Scheduler.LockBackend)
	}
	if !cfg.Scheduler.AllowReschedule {
		t.Error("期望 allow_reschedule=true")
	}
	if cfg.Scheduler.DefaultLocation != "Online" {
		t.Errorf("期望默认地点 Online，实际 %s", cfg.Scheduler.DefaultLocation)
	}
	if cfg.Scheduler.LockWait != 5*time.Second {
		t.Errorf("期望 lock_wait=5s，实际 %v", cfg.Scheduler.LockWait)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "0123456789abcdef0123"
server:
  port: 9000
`)
	t.Setenv("LECTURE_SERVER_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("期望环境变量覆盖端口为 9100，实际 %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Auth:      AuthConfig{JWTSecret: "0123456789abcdef"},
			Scheduler: SchedulerConfig{LockBackend: LockBackendMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"有效配置", func(c *Config) {}, false},
		{"密钥为空", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"未知锁后端", func(c *Config) { c.Scheduler.LockBackend = "etcd" }, true},
		{"存储缺少 bucket", func(c *Config) { c.Storage.Enabled = true }, true},
		{"redis 锁缺少 ttl", func(c *Config) { c.Scheduler.LockBackend = LockBackendRedis }, true},
		{"redis 锁", func(c *Config) {
			c.Scheduler.LockBackend = LockBackendRedis
			c.Scheduler.LockTTL = 10 * time.Second
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
