// cellconfig_test.go
//
// Copyright (c) 2025 AGILira
// SPDX-License-Identifier: MPL-2.0
package cellconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNewPublishesDefaultBeforeFirstReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{"config":{"max_connections":5}}`)

	w, err := New(Options{ConfigPath: path, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ref, ok := w.Cell().Read()
	if !ok {
		t.Fatal("expected a value before any reload (DefaultConfig seed)")
	}
	defer ref.Release()
	if ref.Value().MaxConnections != DefaultMaxConnections {
		t.Fatalf("expected seeded DefaultConfig, got %+v", ref.Value())
	}
}

func TestReloadRepublishesParsedConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{"config":{"max_connections":5}}`)

	reloaded := make(chan Config, 1)
	w, err := New(Options{
		ConfigPath:   path,
		PollInterval: 50 * time.Millisecond,
		OnReload: func(old, new Config) {
			select {
			case reloaded <- new:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"config":{"max_connections":42,"rate_limit_per_second":10}}`), 0o644); err != nil {
		t.Fatalf("WriteFile update: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.MaxConnections != 42 {
			t.Fatalf("reloaded MaxConnections = %d, want 42", cfg.MaxConnections)
		}
		if cfg.RateLimitPerSecond != 10 {
			t.Fatalf("reloaded RateLimitPerSecond = %v, want 10", cfg.RateLimitPerSecond)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	ref, ok := w.Cell().Read()
	if !ok {
		t.Fatal("expected a value after reload")
	}
	defer ref.Release()
	if ref.Value().MaxConnections != 42 {
		t.Fatalf("Cell value MaxConnections = %d, want 42", ref.Value().MaxConnections)
	}
}

func TestParseConfigDefaultsOnUnrecognizedShape(t *testing.T) {
	cfg, err := parseConfig(map[string]interface{}{"unrelated": "value"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.MaxConnections != DefaultMaxConnections {
		t.Fatalf("expected defaults for unrecognized shape, got %+v", cfg)
	}
}

func TestParseConfigFeatureFlags(t *testing.T) {
	cfg, err := parseConfig(map[string]interface{}{
		"config": map[string]interface{}{
			"feature_flags": map[string]interface{}{
				"new_router": true,
				"beta_ui":    false,
			},
		},
	})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if !cfg.FeatureFlags["new_router"] || cfg.FeatureFlags["beta_ui"] {
		t.Fatalf("feature flags not parsed correctly: %+v", cfg.FeatureFlags)
	}
}
