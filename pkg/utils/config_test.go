package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.SyncAddr != ":7070" || cfg.Server.NotifyAddr != ":7071" {
		t.Errorf("feed addrs = %q %q", cfg.Server.SyncAddr, cfg.Server.NotifyAddr)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 15*time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Auth.JWTDuration != 7*24*time.Hour {
		t.Errorf("JWTDuration = %v", cfg.Auth.JWTDuration)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())
	t.Setenv("CINEHUB_AUTH__JWT_DURATION", "2h")
	t.Setenv("CINEHUB_MONGO__DATABASE", "cinehub_test")
	t.Setenv("CINEHUB_CORS__ORIGINS", "http://a.example, http://b.example")
	t.Setenv("MONGODB_URI", "mongodb://mongo:27017")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTDuration != 2*time.Hour {
		t.Errorf("JWTDuration = %v", cfg.Auth.JWTDuration)
	}
	if cfg.Mongo.Database != "cinehub_test" {
		t.Errorf("Mongo.Database = %q", cfg.Mongo.Database)
	}
	if cfg.Mongo.URI != "mongodb://mongo:27017" {
		t.Errorf("Mongo.URI = %q", cfg.Mongo.URI)
	}
	want := []string{"http://a.example", "http://b.example"}
	if !reflect.DeepEqual(cfg.CORS.Origins, want) {
		t.Errorf("CORS.Origins = %v, want %v", cfg.CORS.Origins, want)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "cinehub.yaml")
	body := "server:\n  addr: \":9090\"\nrate_limit:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should be false")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Chdir(t.TempDir())
	t.Setenv("CINEHUB_AUTH__JWT_SECRET", "short")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for short secret")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := map[string]string{
		"CINEHUB_SERVER__ADDR":       "server.addr",
		"CINEHUB_LOG__LEVEL":         "log.level",
		"CINEHUB_RATE_LIMIT__WINDOW": "rate_limit.window",
		"JWT_SECRET":                 "auth.jwt_secret",
		"HOME":                       "",
		ConfigPathEnvVar:             "",
	}
	for in, want := range tests {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%q) = %q, want %q", in, got, want)
		}
	}
}
