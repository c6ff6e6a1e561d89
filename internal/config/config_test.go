package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
leaderboard:
  secret: "0123456789abcdef0123456789abcdef"
admin:
  pin: "1111"
  session_secret: "session-secret-session-secret-xx"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Leaderboard.TokenTTL != 2*time.Hour {
		t.Fatalf("token ttl = %s, want 2h", cfg.Leaderboard.TokenTTL)
	}
	if cfg.Leaderboard.NonceRetention != 24*time.Hour {
		t.Fatalf("nonce retention = %s, want 24h", cfg.Leaderboard.NonceRetention)
	}
	if cfg.Database.Path == "" || cfg.Storage.GalleryRoot == "" || cfg.Storage.TrashRoot == "" {
		t.Fatalf("paths not defaulted: %+v", cfg)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadFailsWithoutLeaderboardSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
admin:
  pin: "1111"
  session_secret: "session-secret-session-secret-xx"
`))
	if err == nil {
		t.Fatal("Load() error = nil, want missing-secret error")
	}
}

func TestLoadFailsWithShortSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
leaderboard:
  secret: "tooshort"
admin:
  pin: "1111"
  session_secret: "session-secret-session-secret-xx"
`))
	if err == nil {
		t.Fatal("Load() error = nil, want short-secret error")
	}
}

func TestLoadFailsWithoutAdminPIN(t *testing.T) {
	_, err := Load(writeConfig(t, `
leaderboard:
  secret: "0123456789abcdef0123456789abcdef"
admin:
  session_secret: "session-secret-session-secret-xx"
`))
	if err == nil {
		t.Fatal("Load() error = nil, want missing-pin error")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("GALLERY_LEADERBOARD_SECRET", "envsecret-envsecret-envsecret-xx")
	t.Setenv("GALLERY_ADMIN_PIN", "9999")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Leaderboard.Secret != "envsecret-envsecret-envsecret-xx" {
		t.Fatalf("secret = %q, want env value", cfg.Leaderboard.Secret)
	}
	if cfg.Admin.PIN != "9999" {
		t.Fatalf("pin = %q, want env value", cfg.Admin.PIN)
	}
}
