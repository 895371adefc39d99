package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nexusshell/nexuscore/pkg/asyncruntime"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/nexuscore" {
		t.Fatalf("got DataDir %q, want default", cfg.DataDir)
	}
}

func TestLoadOverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "data_dir: /custom/data\nlisten_addr: 0.0.0.0:9000\n"
	if err := writeFile(path, yaml); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/custom/data" {
		t.Fatalf("got DataDir %q, want /custom/data", cfg.DataDir)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("got ListenAddr %q, want 0.0.0.0:9000", cfg.ListenAddr)
	}
	// untouched sub-config should still carry its own defaults
	if cfg.AsyncRuntime.MetricsInterval != asyncruntime.DefaultConfig().MetricsInterval {
		t.Fatalf("expected untouched AsyncRuntime sub-config to keep its default")
	}
}

func TestRuntimeSwapReplacesCurrent(t *testing.T) {
	rt := NewRuntime(Default())
	if rt.Current().DataDir != "/var/lib/nexuscore" {
		t.Fatal("expected default DataDir initially")
	}

	updated := Default()
	updated.DataDir = "/swapped"
	rt.Swap(updated)

	if rt.Current().DataDir != "/swapped" {
		t.Fatalf("got %q after swap, want /swapped", rt.Current().DataDir)
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
