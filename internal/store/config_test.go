package store

import (
	"os"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CELESTIAL_DB_HOST", "CELESTIAL_DB_PORT", "CELESTIAL_DB_USER",
		"CELESTIAL_DB_PASSWORD", "CELESTIAL_DB_NAME", "CELESTIAL_DB_SSLMODE", "CELESTIAL_ENV",
	} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadConfigDefaultsInDevelopment(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != "5432" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigRequiresPasswordInProduction(t *testing.T) {
	clearEnv(t)
	os.Setenv("CELESTIAL_ENV", "production")
	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected missing password in production to error")
	}
}

func TestDSNIncludesAllFields(t *testing.T) {
	cfg := Config{Host: "h", Port: "1", User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	dsn := cfg.DSN()
	for _, want := range []string{"host=h", "port=1", "user=u", "password=p", "dbname=d", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}
