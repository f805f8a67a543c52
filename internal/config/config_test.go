package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "titlegest.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
	tc := cfg.Titles()
	if tc.TitleFontSize != 5.5 || tc.MinTitleLength != 8 || tc.MinTitleDistance != 100 {
		t.Errorf("unexpected title defaults: %+v", tc)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
port: "9000"
title_font_size: 12
min_title_distance: 40
job_ttl: 5m
`)
	t.Setenv("MIN_TITLE_DISTANCE", "7")
	t.Setenv("TITLEGEST_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.TitleFontSize != 12 {
		t.Errorf("expected title font size 12, got %v", cfg.TitleFontSize)
	}
	if cfg.MinTitleDistance != 7 {
		t.Errorf("expected env override 7, got %d", cfg.MinTitleDistance)
	}
	if cfg.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.APIKey)
	}
	if cfg.JobTTL != 5*time.Minute {
		t.Errorf("expected job ttl 5m, got %v", cfg.JobTTL)
	}
}

func TestLoad_ClampsPoolSettings(t *testing.T) {
	cfg, err := Load(writeConfig(t, "worker_count: 0\nmax_queue_size: -1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 {
		t.Errorf("expected clamped pool settings, got %d workers, queue %d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
}

func TestLoad_BadFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "port: [unterminated\n")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"negative max pages", func(c *Config) { c.MaxPages = -1 }},
		{"zero font size", func(c *Config) { c.TitleFontSize = 0 }},
		{"negative length", func(c *Config) { c.MinTitleLength = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewManager_RejectsInvalid(t *testing.T) {
	if _, err := NewManager(writeConfig(t, "title_font_size: -3\n")); err == nil {
		t.Fatal("expected error for invalid thresholds")
	}
}

func TestManager_OnChange(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	mgr.OnChange(func(Config) {})
	mgr.OnChange(func(Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 2 {
		t.Errorf("expected 2 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, "min_title_length: 8\n")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().MinTitleLength; got != 8 {
		t.Fatalf("expected initial length 8, got %d", got)
	}

	var calls atomic.Int32
	var last atomic.Int64
	mgr.OnChange(func(cfg Config) {
		calls.Add(1)
		last.Store(int64(cfg.MinTitleLength))
	})
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("min_title_length: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && calls.Load() == 0 {
		time.Sleep(50 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if last.Load() != 3 {
		t.Errorf("expected reloaded length 3, got %d", last.Load())
	}
	if got := mgr.Get().Titles().MinTitleLength; got != 3 {
		t.Errorf("expected manager to serve length 3, got %d", got)
	}
}
