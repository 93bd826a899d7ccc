package config

import "testing"

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("DIARY_POSTGRES_DSN", "")
	t.Setenv("DIARY_DB_DRIVER", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite without a DSN, got %s", cfg.DBDriver)
	}
	if cfg.ModelFast != "gemini-2.5-flash" || cfg.ModelDeep != "gemini-2.5-pro" || cfg.DeepThinkingBudget != 32768 {
		t.Fatalf("unexpected model defaults: %+v", cfg)
	}
	if cfg.MediaOffloadEnabled() {
		t.Fatal("media offload should be disabled without a bucket")
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("DIARY_HTTP_PORT", "9191")
	t.Setenv("DIARY_POSTGRES_DSN", "postgres://u:p@localhost/diary")
	t.Setenv("DIARY_MEDIA_BUCKET", "media")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.GetHTTPAddr() != ":9191" {
		t.Fatalf("port override failed, got %s", cfg.GetHTTPAddr())
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("DSN should select postgres, got %s", cfg.DBDriver)
	}
	if !cfg.MediaOffloadEnabled() {
		t.Fatal("media offload should be enabled")
	}
}

func TestResolveDefaults(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"auto sqlite", Config{DBDriver: "auto", SQLitePath: "x.db"}, "sqlite", false},
		{"auto postgres", Config{DBDriver: "", PostgresDSN: "postgres://x"}, "postgres", false},
		{"postgres without dsn", Config{DBDriver: "postgres"}, "", true},
		{"unknown", Config{DBDriver: "spanner"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.cfg
			err := c.ResolveDefaults()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.DBDriver != tc.want {
				t.Fatalf("driver = %s, want %s", c.DBDriver, tc.want)
			}
		})
	}
}

func TestNewForTesting(t *testing.T) {
	cfg := NewForTesting()
	if !cfg.IsTesting() || cfg.IsProduction() {
		t.Fatalf("unexpected environment %s", cfg.Environment)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("testing config should resolve: %v", err)
	}
}
