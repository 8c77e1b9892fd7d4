package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tadeyemo32/outreach-batcher/batching"
)

const configPathEnv = "BATCHER_CONFIG"

// Config holds high-level settings required across the application.
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Database   DatabaseConfig     `yaml:"database"`
	Export     ExportConfig       `yaml:"export"`
	Pipeline   PipelineConfig     `yaml:"pipeline"`
	LLM        LLMConfig          `yaml:"llm"`
	Enrichment EnrichmentConfig   `yaml:"enrichment"`
	TiersFile  string             `yaml:"tiers_file"`
	Tiers      batching.TierTable `yaml:"tiers"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// DatabaseConfig picks the project store: Postgres when URL is set,
// otherwise the SQLite file at Path. The export ledger always lives in
// LedgerPath.
type DatabaseConfig struct {
	URL        string `yaml:"url"`
	Path       string `yaml:"path"`
	LedgerPath string `yaml:"ledger_path"`
}

// ExportConfig uploads to Supabase storage when SupabaseURL and
// SupabaseKey are both set, otherwise writes into Dir.
type ExportConfig struct {
	Dir         string `yaml:"dir"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`
	Bucket      string `yaml:"bucket"`
}

func (e ExportConfig) UseSupabase() bool { return e.SupabaseURL != "" && e.SupabaseKey != "" }

type PipelineConfig struct {
	MaxRows               int           `yaml:"max_rows"`
	RowsPerPause          int           `yaml:"rows_per_pause"`
	Pause                 time.Duration `yaml:"pause"`
	ProceedOnInvalidEmail bool          `yaml:"proceed_on_invalid_email"`
	RequestsPerSecond     float64       `yaml:"requests_per_second"`
	Burst                 int           `yaml:"burst"`
	RetryBackoff          time.Duration `yaml:"retry_backoff"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OpenAIKey    string `yaml:"openai_key"`
	AnthropicKey string `yaml:"anthropic_key"`
	GeminiKey    string `yaml:"gemini_key"`
}

type EnrichmentConfig struct {
	RapidAPIKey string `yaml:"rapidapi_key"`
	ExaKey      string `yaml:"exa_key"`
}

func defaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: "8765", PublicBaseURL: "http://localhost:8765"},
		Database: DatabaseConfig{Path: "data/batcher.db", LedgerPath: "data/ledger.db"},
		Export:   ExportConfig{Dir: "data/exports", Bucket: "exports"},
		Pipeline: PipelineConfig{
			MaxRows:           100,
			RowsPerPause:      5,
			Pause:             20 * time.Second,
			RequestsPerSecond: 2,
			Burst:             2,
			RetryBackoff:      time.Second,
		},
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
	}
}

// Load reads .env, then the YAML file named by BATCHER_CONFIG (if any),
// then applies environment overrides and resolves the tier table.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Missing .env files are normal in deployed environments.
		_ = godotenv.Load(f)
	}

	cfg := defaultConfig()
	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.resolveTiers(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeConfig(base, over Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}

	str(&base.Server.Port, over.Server.Port)
	str(&base.Server.APIKey, over.Server.APIKey)
	str(&base.Server.PublicBaseURL, over.Server.PublicBaseURL)

	str(&base.Database.URL, over.Database.URL)
	str(&base.Database.Path, over.Database.Path)
	str(&base.Database.LedgerPath, over.Database.LedgerPath)

	str(&base.Export.Dir, over.Export.Dir)
	str(&base.Export.SupabaseURL, over.Export.SupabaseURL)
	str(&base.Export.SupabaseKey, over.Export.SupabaseKey)
	str(&base.Export.Bucket, over.Export.Bucket)

	num(&base.Pipeline.MaxRows, over.Pipeline.MaxRows)
	num(&base.Pipeline.RowsPerPause, over.Pipeline.RowsPerPause)
	num(&base.Pipeline.Burst, over.Pipeline.Burst)
	if over.Pipeline.Pause > 0 {
		base.Pipeline.Pause = over.Pipeline.Pause
	}
	if over.Pipeline.RequestsPerSecond > 0 {
		base.Pipeline.RequestsPerSecond = over.Pipeline.RequestsPerSecond
	}
	if over.Pipeline.RetryBackoff > 0 {
		base.Pipeline.RetryBackoff = over.Pipeline.RetryBackoff
	}
	base.Pipeline.ProceedOnInvalidEmail = base.Pipeline.ProceedOnInvalidEmail || over.Pipeline.ProceedOnInvalidEmail

	str(&base.LLM.Provider, over.LLM.Provider)
	str(&base.LLM.Model, over.LLM.Model)
	str(&base.LLM.OpenAIKey, over.LLM.OpenAIKey)
	str(&base.LLM.AnthropicKey, over.LLM.AnthropicKey)
	str(&base.LLM.GeminiKey, over.LLM.GeminiKey)

	str(&base.Enrichment.RapidAPIKey, over.Enrichment.RapidAPIKey)
	str(&base.Enrichment.ExaKey, over.Enrichment.ExaKey)

	str(&base.TiersFile, over.TiersFile)
	if len(over.Tiers) > 0 {
		base.Tiers = over.Tiers
	}
	return base
}

func (c *Config) applyEnvOverrides() {
	env := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	env(&c.Server.Port, "PORT")
	env(&c.Server.APIKey, "BATCHER_API_KEY")
	env(&c.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	env(&c.Database.URL, "DATABASE_URL")
	env(&c.Database.Path, "DATABASE_PATH")
	env(&c.Database.LedgerPath, "LEDGER_PATH")
	env(&c.Export.Dir, "EXPORT_DIR")
	env(&c.Export.SupabaseURL, "SUPABASE_URL")
	env(&c.Export.SupabaseKey, "SERVICE_ROLE", "SUPABASE_KEY")
	env(&c.LLM.Provider, "LLM_PROVIDER")
	env(&c.LLM.Model, "LLM_MODEL")
	env(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	env(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	env(&c.LLM.GeminiKey, "GEMINI_API_KEY")
	env(&c.Enrichment.RapidAPIKey, "RAPIDAPI_KEY")
	env(&c.Enrichment.ExaKey, "EXA_API_KEY")
	env(&c.TiersFile, "TIERS_FILE")

	if v := os.Getenv("PIPELINE_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.MaxRows = n
		} else {
			log.Printf("[Config] ignoring PIPELINE_MAX_ROWS=%q", v)
		}
	}
}

// resolveTiers loads TiersFile when set, otherwise normalizes and validates
// inline tiers. An empty result means the built-in table.
func (c *Config) resolveTiers() error {
	if c.TiersFile != "" {
		tiers, err := batching.LoadTiers(c.TiersFile)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		c.Tiers = tiers
		return nil
	}
	if len(c.Tiers) == 0 {
		return nil
	}
	c.Tiers = c.Tiers.Normalized()
	if err := c.Tiers.Validate(); err != nil {
		return fmt.Errorf("config: invalid tiers: %w", err)
	}
	return nil
}

// TierTable returns the configured tiers or the built-in defaults.
func (c Config) TierTable() batching.TierTable {
	if len(c.Tiers) == 0 {
		return batching.DefaultTiers()
	}
	return c.Tiers
}
