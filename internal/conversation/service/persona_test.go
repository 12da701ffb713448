package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPersonaConfigMissingFileUsesBuiltin(t *testing.T) {
	cfg, err := LoadPersonaConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Default.Name != defaultAgentName {
		t.Errorf("default name = %q", cfg.Default.Name)
	}
	if cfg.Default.FallbackReply == "" {
		t.Error("builtin fallback reply missing")
	}
}

func TestLoadPersonaConfigFileOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	content := `
default:
  name: Clara
personas:
  luxo:
    system_prompt: "Você atende o segmento de alto padrão."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPersonaConfig(path)
	if err != nil {
		t.Fatalf("LoadPersonaConfig: %v", err)
	}
	if cfg.Default.Name != "Clara" {
		t.Errorf("default name = %q, want Clara", cfg.Default.Name)
	}
	// Omitted default fields are backfilled from the builtin persona.
	if cfg.Default.FallbackReply != defaultFallbackReply {
		t.Errorf("fallback not backfilled: %q", cfg.Default.FallbackReply)
	}

	luxo := cfg.Resolve("luxo")
	if luxo.SystemPrompt != "Você atende o segmento de alto padrão." {
		t.Errorf("named persona prompt = %q", luxo.SystemPrompt)
	}
	if luxo.Name != "Clara" {
		t.Errorf("named persona name not backfilled: %q", luxo.Name)
	}

	if got := cfg.Resolve("inexistente"); got.Name != "Clara" {
		t.Errorf("unknown persona should resolve to default, got %q", got.Name)
	}
}

func TestLoadPersonaConfigMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte("default: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPersonaConfig(path); err == nil {
		t.Fatal("malformed yaml must fail loudly")
	}
}
