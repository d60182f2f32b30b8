package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
server:
  addr: ":9090"
modelGateway:
  model: "vision-large"
  timeout: 30s
analytics:
  window: 10m
storage:
  bucket: "flyers"
  publicBaseUrl: "https://cdn.example.com/flyers"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Chdir(dir)
	t.Setenv(configPathEnv, path)
	t.Setenv(gatewayAPIKeyEnv, "secret-key")
	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(trustedProxiesEnv, "10.0.0.0/8, 192.0.2.1,")

	cfg := Load()

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if got := cfg.Server.TrustedProxies; len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.0.2.1" {
		t.Fatalf("trusted proxies = %v", got)
	}
	if cfg.ModelGateway.Model != "vision-large" || cfg.ModelGateway.Timeout != 30*time.Second {
		t.Fatalf("model gateway = %+v", cfg.ModelGateway)
	}
	if cfg.ModelGateway.Endpoint == "" {
		t.Fatal("endpoint default lost during merge")
	}
	if cfg.ModelGateway.APIKey != "secret-key" {
		t.Fatalf("api key not taken from env: %q", cfg.ModelGateway.APIKey)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Analytics.Window != 10*time.Minute || cfg.Analytics.PruneInterval != time.Minute {
		t.Fatalf("analytics = %+v", cfg.Analytics)
	}
	if cfg.Storage.Bucket != "flyers" || cfg.Storage.PublicBaseURL != "https://cdn.example.com/flyers" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.PageFetch.MaxTextChars != 4000 || cfg.PageFetch.MaxBytes != 5<<20 {
		t.Fatalf("page fetch defaults = %+v", cfg.PageFetch)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RESEND_API_KEY=re_from_file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv(configPathEnv, "")
	t.Setenv(resendAPIKeyEnv, "")

	cfg := Load()
	if cfg.Mail.APIKey != "re_from_file" {
		t.Fatalf("mail api key = %q", cfg.Mail.APIKey)
	}
}

func TestLoadFallsBackOnBadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected defaults, got addr %q", cfg.Server.Addr)
	}
	if len(cfg.Server.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default: %v", cfg.Server.TrustedProxies)
	}
}
