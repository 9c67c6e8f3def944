// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	want := Config{
		Name:             "test",
		Addr:             "127.0.0.1:0",
		CompressionLevel: 3,
		WaitSeconds:      2,
		LogLevel:         "info",
	}
	if cfg != want {
		t.Errorf("Default() = %+v, want %+v", cfg, want)
	}
	if cfg.WaitInterval() != 2*time.Second {
		t.Errorf("WaitInterval = %v", cfg.WaitInterval())
	}
}

func TestLoad(t *testing.T) {
	base := writeFile(t, "base.cue", `
addr: ":9000"
trace: true
`)
	extra := writeFile(t, "extra.cue", `
log_level: "debug"
wait_seconds: 0.5
`)
	cfg, err := Load(base, extra)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" || !cfg.Trace || cfg.LogLevel != "debug" || cfg.Name != "test" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.WaitInterval() != 500*time.Millisecond {
		t.Errorf("WaitInterval = %v", cfg.WaitInterval())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `port: 80`},
		{"bad level", `log_level: "loud"`},
		{"bad compression", `compression_level: 40`},
		{"wrong type", `trace: "yes"`},
		{"syntax", `addr: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.cue", tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	a := writeFile(t, "a.cue", `addr: ":1"`)
	b := writeFile(t, "b.cue", `addr: ":2"`)
	if _, err := Load(a, b); err == nil {
		t.Error("conflicting files loaded")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.cue")); err == nil {
		t.Error("missing file loaded")
	}
}
