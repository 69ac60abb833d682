package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_DB_DSN", "postgres://localhost/teacherin")
	yamlContent := `
app:
  name: "Teacherin Test"
  port: 9000
database:
  dsn: "${TEST_DB_DSN}"
jwt:
  secret: "s3cret"
platform:
  commission_rate: 0.2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.DSN != "postgres://localhost/teacherin" {
		t.Errorf("expected expanded dsn, got %q", cfg.Database.DSN)
	}
	if cfg.App.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.App.Port)
	}
	if cfg.Platform.CommissionRate != 0.2 {
		t.Errorf("expected commission 0.2, got %v", cfg.Platform.CommissionRate)
	}
	if cfg.Platform.MinPayoutAmount != 50000 {
		t.Errorf("expected default min payout 50000, got %v", cfg.Platform.MinPayoutAmount)
	}
	if cfg.Storage.PresignTTL != 15 {
		t.Errorf("expected default presign ttl 15, got %d", cfg.Storage.PresignTTL)
	}
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/teacherin")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.JWT.Secret)
	}
	if cfg.Jobs.ReminderSpec != "*/5 * * * *" {
		t.Errorf("unexpected reminder spec %q", cfg.Jobs.ReminderSpec)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Settings
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Settings{
				Database: DatabaseConfig{DSN: "dsn"},
				JWT:      JWTConfig{Secret: "secret"},
				Platform: PlatformConfig{CommissionRate: 0.1},
			},
			wantErr: false,
		},
		{
			name: "missing dsn",
			cfg: Settings{
				JWT: JWTConfig{Secret: "secret"},
			},
			wantErr: true,
		},
		{
			name: "missing secret",
			cfg: Settings{
				Database: DatabaseConfig{DSN: "dsn"},
			},
			wantErr: true,
		},
		{
			name: "commission out of range",
			cfg: Settings{
				Database: DatabaseConfig{DSN: "dsn"},
				JWT:      JWTConfig{Secret: "secret"},
				Platform: PlatformConfig{CommissionRate: 1.5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
