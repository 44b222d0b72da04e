package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8085 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8085)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("SPECULA_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_DataPathEnvOverride(t *testing.T) {
	t.Setenv("SPECULA_DATA_PATH", "/var/lib/specula")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	want := filepath.Join("/var/lib/specula", "store")
	if cfg.Storage.DataPath != want {
		t.Errorf("Storage.DataPath = %q, want %q", cfg.Storage.DataPath, want)
	}
	want = filepath.Join("/var/lib/specula", "cache")
	if cfg.Storage.CachePath != want {
		t.Errorf("Storage.CachePath = %q, want %q", cfg.Storage.CachePath, want)
	}
}

func TestConfig_TelegramTokenEnvEnables(t *testing.T) {
	t.Setenv("SPECULA_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SPECULA_TELEGRAM_CHAT_ID", "-100200300")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if !cfg.Clients.Telegram.Enabled {
		t.Error("Telegram.Enabled = false after token env override, want true")
	}
	if cfg.Clients.Telegram.Token != "123:abc" {
		t.Errorf("Telegram.Token = %q, want %q", cfg.Clients.Telegram.Token, "123:abc")
	}
	if cfg.Clients.Telegram.ChatID != "-100200300" {
		t.Errorf("Telegram.ChatID = %q, want %q", cfg.Clients.Telegram.ChatID, "-100200300")
	}
}

func TestConfig_EDGARContactEnvOverride(t *testing.T) {
	t.Setenv("SPECULA_EDGAR_CONTACT", "ops@example.com")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.EDGAR.Contact != "ops@example.com" {
		t.Errorf("EDGAR.Contact = %q, want %q", cfg.Clients.EDGAR.Contact, "ops@example.com")
	}
}

func TestConfig_DisplayCurrencyDefaultsUSD(t *testing.T) {
	cfg := &Config{DisplayCurrency: ""}
	validateDisplayCurrency(cfg)
	if cfg.DisplayCurrency != "USD" {
		t.Errorf("DisplayCurrency = %q, want USD", cfg.DisplayCurrency)
	}

	cfg = &Config{DisplayCurrency: "eur"}
	validateDisplayCurrency(cfg)
	if cfg.DisplayCurrency != "EUR" {
		t.Errorf("DisplayCurrency = %q, want uppercased EUR", cfg.DisplayCurrency)
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "specula.toml")
	content := `
environment = "production"

[clients.market]
calls_per_second = 4.0

[scan]
pool_size = 12
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.Clients.Market.CallsPerSecond != 4.0 {
		t.Errorf("Market.CallsPerSecond = %v, want 4.0", cfg.Clients.Market.CallsPerSecond)
	}
	if cfg.Scan.PoolSize != 12 {
		t.Errorf("Scan.PoolSize = %d, want 12", cfg.Scan.PoolSize)
	}
	// Unset fields keep their defaults
	if cfg.Clients.EDGAR.CallsPerSecond != 10 {
		t.Errorf("EDGAR.CallsPerSecond = %v, want default 10", cfg.Clients.EDGAR.CallsPerSecond)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Clients.Market.BaseURL == "" {
		t.Error("expected default market base URL for missing config file")
	}
}

func TestMarketConfig_GetTimeout_InvalidFallsBack(t *testing.T) {
	cfg := &MarketConfig{Timeout: "not-a-duration"}
	if d := cfg.GetTimeout(); d != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s (fallback for invalid)", d)
	}
}

func TestPrewarmConfig_GetTimeout_Default(t *testing.T) {
	cfg := &PrewarmConfig{}
	if d := cfg.GetTimeout(); d != 5*time.Minute {
		t.Errorf("GetTimeout() = %v, want 5m", d)
	}
}

func TestStorageConfig_GetCacheGCInterval_Configured(t *testing.T) {
	cfg := &StorageConfig{CacheGCEvery: "3m"}
	if d := cfg.GetCacheGCInterval(); d != 3*time.Minute {
		t.Errorf("GetCacheGCInterval() = %v, want 3m", d)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Environment: "Production"}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false for 'Production', want true")
	}
	cfg.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for 'development', want false")
	}
}
