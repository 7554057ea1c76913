package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp runs the test inside an empty directory so no config file or
// .env from the repository is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

const releaseSecret = "0123456789abcdef0123456789abcdef"

// TestLoadDefaults verifies the configuration without a file.
func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "none")
	t.Setenv("CHAT_JWT_SECRET", releaseSecret)
	t.Setenv("CHAT_SECRET", releaseSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.WS.PingPeriod != 54*time.Second || cfg.WS.PongWait != 60*time.Second {
		t.Errorf("unexpected ws defaults: %+v", cfg.WS)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d", cfg.Chat.HistoryLimit)
	}
	if cfg.RateLimit.Messages != 20 || cfg.RateLimit.Interval != 10*time.Second {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.JWT.Expiration != 24*time.Hour {
		t.Errorf("JWT expiration = %s", cfg.JWT.Expiration)
	}
}

// TestLoadFileAndEnv verifies the yaml file and CHAT_ env overrides.
func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CHAT_JWT_SECRET", "from-env")
	t.Setenv("CHAT_SECRET", "session-from-env")

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("port: 9090\nmode: debug\nchat:\n  history_limit: 10\nws:\n  write_wait: 2s\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.Mode != "debug" {
		t.Errorf("file values not applied: port=%d mode=%s", cfg.Port, cfg.Mode)
	}
	if cfg.Chat.HistoryLimit != 10 || cfg.WS.WriteWait != 2*time.Second {
		t.Errorf("nested file values not applied: %+v %+v", cfg.Chat, cfg.WS)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("JWT secret = %q, want env override", cfg.JWT.Secret)
	}
}

// TestValidate verifies rejected configurations.
func TestValidate(t *testing.T) {
	base := Config{
		Port:   8080,
		Secret: "c",
		JWT:    JWTConfig{Secret: "s"},
		WS:     WSConfig{PingPeriod: time.Second, PongWait: 2 * time.Second},
		Chat:   ChatConfig{HistoryLimit: 50},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := base
	bad.WS.PingPeriod = 3 * time.Second
	if err := bad.Validate(); err == nil {
		t.Error("ping period longer than pong wait should be rejected")
	}

	bad = base
	bad.JWT.Secret = ""
	if err := bad.Validate(); err == nil {
		t.Error("empty jwt secret should be rejected")
	}

	bad = base
	bad.Secret = ""
	if err := bad.Validate(); err == nil {
		t.Error("empty session secret should be rejected")
	}

	release := base
	release.Mode = "release"
	if err := release.Validate(); err == nil {
		t.Error("short secrets should be rejected in release mode")
	}
	release.JWT.Secret = releaseSecret
	release.Secret = releaseSecret
	if err := release.Validate(); err != nil {
		t.Errorf("release config with long secrets rejected: %v", err)
	}
}

// TestLoadWithoutSecretsFails verifies a deployment without secrets does not
// start with guessable defaults.
func TestLoadWithoutSecretsFails(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "prod")

	if _, err := Load(); err == nil {
		t.Fatal("Load without secrets should fail")
	}

	t.Setenv("CHAT_JWT_SECRET", "short")
	t.Setenv("CHAT_SECRET", "short")
	if _, err := Load(); err == nil {
		t.Fatal("Load in release mode with short secrets should fail")
	}
}
