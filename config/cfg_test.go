package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"

	"reblock/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Storage.Kind != common.StorageKindSqlite {
		t.Errorf("Default storage kind = %s, want sqlite", cfg.Storage.Kind)
	}
	if cfg.Editor.TemporaryPrefix != "reusable-" {
		t.Errorf("TemporaryPrefix = %q, want reusable-", cfg.Editor.TemporaryPrefix)
	}
}

func TestLoadConfiguration_TitleTemplateNotExpanded(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if !strings.Contains(cfg.Editor.TitleTemplate, "{{ .Label | lower }}") {
		t.Errorf("title template was expanded at load time: %q", cfg.Editor.TitleTemplate)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `version: 1
editor:
  title_template: "{{ .Type }} #{{ .ID }}"
  temporary_prefix: "tmp-"
storage:
  kind: memory
logging:
  console:
    level: debug
  file:
    level: debug
    destination: `+filepath.Join(dir, "test.log")+`
    mode: overwrite
reporting:
  destination: `+filepath.Join(dir, "report.zip")+`
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Editor.TitleTemplate != "{{ .Type }} #{{ .ID }}" {
		t.Errorf("TitleTemplate = %q", cfg.Editor.TitleTemplate)
	}
	if cfg.Editor.TemporaryPrefix != "tmp-" {
		t.Errorf("TemporaryPrefix = %q, want tmp-", cfg.Editor.TemporaryPrefix)
	}
	if cfg.Storage.Kind != common.StorageKindMemory || cfg.Storage.Kind.Persistent() {
		t.Errorf("Storage kind = %s, want memory", cfg.Storage.Kind)
	}
	if cfg.Logging.FileLogger.Mode != "overwrite" {
		t.Errorf("File log mode = %q, want overwrite", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_MergeWithDefaults(t *testing.T) {
	path := writeConfig(t, `version: 1
storage:
  kind: memory
`)
	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Editor.TemporaryPrefix != "reusable-" {
		t.Errorf("default TemporaryPrefix lost: %q", cfg.Editor.TemporaryPrefix)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("default console level lost: %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "version: 1\neditor:\n  title_template: x\n  invalid indent\n"},
		{name: "unknown field", content: "version: 1\nunknown_field: value\n"},
		{name: "wrong version", content: "version: 2\n"},
		{name: "unknown storage", content: "version: 1\nstorage:\n  kind: cloud\n"},
		{name: "bad prefix", content: "version: 1\neditor:\n  temporary_prefix: a/b\n"},
		{name: "bad log level", content: "version: 1\nlogging:\n  console:\n    level: verbose\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Storage.Kind = common.StorageKindMemory

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "kind: memory") {
		t.Errorf("storage kind must be dumped by name:\n%s", data)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Storage.Kind != cfg.Storage.Kind || cfg2.Editor != cfg.Editor {
		t.Errorf("config changed after dump/load: %+v", cfg2)
	}
}

func TestUnmarshalConfig_WrapsValidationError(t *testing.T) {
	_, err := unmarshalConfig([]byte("version: 99\n"), &Config{}, true)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}
