package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roleplay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Orchestrator.GenerationTimeout != 20*time.Second {
		t.Errorf("timeout = %s", cfg.Orchestrator.GenerationTimeout)
	}
	if cfg.Orchestrator.RecentTurns != 12 || cfg.Orchestrator.MaxWords != 60 {
		t.Errorf("orchestrator defaults = %+v", cfg.Orchestrator)
	}
	if cfg.Gate.BaseMedium != 0.20 {
		t.Errorf("gate base medium = %v", cfg.Gate.BaseMedium)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
db_path: /tmp/rp.db
cache_size: 16
codec:
  provider: echo
orchestrator:
  generation_timeout: 5s
  max_words: 40
gate:
  base_high: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/rp.db" || cfg.CacheSize != 16 || cfg.Codec.Provider != "echo" {
		t.Errorf("top level not applied: %+v", cfg)
	}
	if cfg.Orchestrator.GenerationTimeout != 5*time.Second || cfg.Orchestrator.MaxWords != 40 {
		t.Errorf("orchestrator not applied: %+v", cfg.Orchestrator)
	}
	if cfg.Orchestrator.RecentTurns != 12 {
		t.Error("unset nested fields should keep their defaults")
	}
	if cfg.Gate.BaseHigh != 0.5 || cfg.Gate.BaseLow != 0.10 {
		t.Errorf("gate = %+v", cfg.Gate)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROLEPLAY_DB", "env.db")
	t.Setenv("ROLEPLAY_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ROLEPLAY_GENERATION_TIMEOUT", "3s")
	t.Setenv("ROLEPLAY_CACHE_SIZE", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "env.db" || cfg.Codec.Provider != "anthropic" || cfg.Codec.APIKey != "sk-test" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Orchestrator.GenerationTimeout != 3*time.Second || cfg.CacheSize != 8 {
		t.Errorf("parsed env not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := Load(writeFile(t, "cache_size: [oops")); err == nil {
		t.Error("bad yaml should fail")
	}
	if _, err := Load(writeFile(t, "cache_size: 0")); !errors.Is(err, ErrInvalid) {
		t.Errorf("zero cache size: %v", err)
	}
	if _, err := Load(writeFile(t, "codec:\n  provider: carrier-pigeon")); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown provider: %v", err)
	}

	t.Setenv("ROLEPLAY_GENERATION_TIMEOUT", "soon")
	if _, err := Load(""); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad duration: %v", err)
	}
}

func TestValidateReportsGateProblemsInOrder(t *testing.T) {
	cfg := Default()
	cfg.Gate.BaseLow = -0.1
	cfg.Gate.BaseMedium = 1.5
	cfg.Gate.BaseHigh = 2

	want := "invalid configuration: gate.base_low must be within [0,1]; " +
		"gate.base_medium must be within [0,1]; gate.base_high must be within [0,1]"
	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("Validate = %v, want ErrInvalid", err)
		}
		if err.Error() != want {
			t.Fatalf("Validate message:\n got %q\nwant %q", err.Error(), want)
		}
	}
}
