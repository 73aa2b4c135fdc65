package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("GIN_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.TokenTTLSeconds != DefaultTokenTTLSeconds {
		t.Fatalf("TokenTTLSeconds = %d, want %d", cfg.TokenTTLSeconds, DefaultTokenTTLSeconds)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	// 開発モードでは秘密鍵が既定値で補われる
	if cfg.TokenSecret == "" {
		t.Fatal("TokenSecret must be filled with the dev fallback")
	}
}

func TestValidateReleaseRequiresSecret(t *testing.T) {
	cfg := &Config{
		GinMode:         "release",
		RedisURL:        "redis://127.0.0.1:6379/0",
		TokenTTLSeconds: DefaultTokenTTLSeconds,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for a missing TOKEN_SECRET in release mode")
	}

	cfg.TokenSecret = "super-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := &Config{TokenTTLSeconds: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for a non-positive TTL")
	}
}
