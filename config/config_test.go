package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/km-arc/go-container/config"
	"github.com/km-arc/go-container/container"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	// No env set → verify all defaults
	cfg := config.Load("testdata/empty.env")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "app"},
		{"App.Env", cfg.App.Env, "local"},
		{"HTTP.Port", cfg.HTTP.Port, "8000"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "APP_ENV", "production")
	setEnv(t, "HTTP_PORT", "9000")

	cfg := config.Load()

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.App.Env != "production" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "production")
	}
	if cfg.HTTP.Port != "9000" {
		t.Errorf("HTTP.Port: got %q want %q", cfg.HTTP.Port, "9000")
	}
}

func TestLoad_AppDebugTrue(t *testing.T) {
	setEnv(t, "APP_DEBUG", "true")
	cfg := config.Load()
	if !cfg.App.Debug {
		t.Error("expected App.Debug to be true")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	cfg := config.Load()
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── LoadYAML ─────────────────────────────────────────────────────────────────

func TestLoadYAML_FileWinsOverEnv(t *testing.T) {
	setEnv(t, "APP_NAME", "from-env")
	setEnv(t, "APP_ENV", "staging")

	path := filepath.Join(t.TempDir(), "app.yaml")
	data := []byte("app:\n  name: from-yaml\nhttp:\n  port: \"9100\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadYAML(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "from-yaml" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "from-yaml")
	}
	if cfg.HTTP.Port != "9100" {
		t.Errorf("HTTP.Port: got %q want %q", cfg.HTTP.Port, "9100")
	}
	// keys absent from the file keep their env values
	if cfg.App.Env != "staging" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "staging")
	}
}

func TestLoadYAML_MissingFile(t *testing.T) {
	if _, err := config.LoadYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadYAML_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("app: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadYAML(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

// ── Addr ─────────────────────────────────────────────────────────────────────

func TestAddr(t *testing.T) {
	setEnv(t, "HTTP_HOST", "127.0.0.1")
	setEnv(t, "HTTP_PORT", "8080")
	cfg := config.Load()
	if got := cfg.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("got %q want %q", got, "127.0.0.1:8080")
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	os.Unsetenv("MISSING_KEY")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt_ReturnsInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
}

func TestGetInt_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool_True(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
}

func TestGetBool_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "BOOL_KEY", "notabool")
	if config.GetBool("BOOL_KEY", true) != true {
		t.Error("expected fallback true")
	}
}

// ── Provider ─────────────────────────────────────────────────────────────────

func TestProvider_RegistersConfig(t *testing.T) {
	setEnv(t, "APP_NAME", "wired")

	c := container.New()
	registry := container.NewProviderRegistry(c)
	if err := registry.Register(&config.Provider{EnvFiles: []string{"testdata/empty.env"}}); err != nil {
		t.Fatal(err)
	}
	if err := registry.Boot(); err != nil {
		t.Fatal(err)
	}

	cfg, err := container.Resolve[*config.Config](c, "config")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "wired" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "wired")
	}

	// the type key is an alias for "config" and shares the singleton
	same, err := container.Resolve[*config.Config](c)
	if err != nil {
		t.Fatal(err)
	}
	if same != cfg {
		t.Error("expected the type key to resolve the same cached value")
	}
}
