package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var overrideKeys = []string{
	"BATCHER_CONFIG", "PORT", "BATCHER_API_KEY", "PUBLIC_BASE_URL",
	"DATABASE_URL", "DATABASE_PATH", "LEDGER_PATH", "EXPORT_DIR",
	"SUPABASE_URL", "SERVICE_ROLE", "SUPABASE_KEY", "LLM_PROVIDER", "LLM_MODEL",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	"RAPIDAPI_KEY", "EXA_API_KEY", "TIERS_FILE", "PIPELINE_MAX_ROWS",
}

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8765" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Pipeline.MaxRows != 100 || cfg.Pipeline.RowsPerPause != 5 || cfg.Pipeline.Pause != 20*time.Second {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if cfg.Export.UseSupabase() {
		t.Fatalf("supabase should be off without credentials")
	}
	if len(cfg.TierTable()) != 5 {
		t.Fatalf("want built-in tiers, got %d", len(cfg.TierTable()))
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "batcher.yaml", `
server:
  port: "9000"
  api_key: from-file
pipeline:
  max_rows: 25
  pause: 2s
  proceed_on_invalid_email: true
llm:
  provider: gemini
  model: gemini-1.5-flash
export:
  supabase_url: https://x.supabase.co
tiers:
  - name: Tiny
    min: 0
    max: 20
    quota: 2
    primary_roles: [" CEO ", Founder]
`)
	t.Setenv("BATCHER_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("SERVICE_ROLE", "service-key")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("env should win over file, port = %q", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "from-file" {
		t.Fatalf("api key = %q", cfg.Server.APIKey)
	}
	if cfg.Pipeline.MaxRows != 25 || cfg.Pipeline.Pause != 2*time.Second || !cfg.Pipeline.ProceedOnInvalidEmail {
		t.Fatalf("pipeline not merged: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.RowsPerPause != 5 {
		t.Fatalf("unset fields should keep defaults, rows_per_pause = %d", cfg.Pipeline.RowsPerPause)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.GeminiKey != "g-key" {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if !cfg.Export.UseSupabase() {
		t.Fatalf("supabase should be on with url and service role")
	}
	tiers := cfg.TierTable()
	if len(tiers) != 1 || tiers[0].PrimaryRoles[0] != "ceo" {
		t.Fatalf("inline tiers not normalized: %+v", tiers)
	}
}

func TestLoadTiersFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIERS_FILE", writeFile(t, "tiers.yaml", `
- name: Only
  min: 1
  max: 300
  quota: 3
  secondary_roles: [manager]
`))
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Tiers) != 1 || cfg.Tiers[0].Name != "Only" {
		t.Fatalf("tiers = %+v", cfg.Tiers)
	}
}

func TestLoadRejectsInvalidTiers(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCHER_CONFIG", writeFile(t, "batcher.yaml", `
tiers:
  - name: Huge
    min: 0
    max: 5000
    quota: 2
    primary_roles: [ceo]
`))
	_, err := Load(missingEnvFile(t))
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("want max-headcount error, got %v", err)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BATCHER_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(missingEnvFile(t)); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("EXA_API_KEY")
	os.Unsetenv("PIPELINE_MAX_ROWS")
	envFile := writeFile(t, ".env", "EXA_API_KEY=exa-from-dotenv\nPIPELINE_MAX_ROWS=7\n")
	t.Cleanup(func() {
		os.Unsetenv("EXA_API_KEY")
		os.Unsetenv("PIPELINE_MAX_ROWS")
	})

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enrichment.ExaKey != "exa-from-dotenv" {
		t.Fatalf("exa key = %q", cfg.Enrichment.ExaKey)
	}
	if cfg.Pipeline.MaxRows != 7 {
		t.Fatalf("max rows = %d", cfg.Pipeline.MaxRows)
	}
}
