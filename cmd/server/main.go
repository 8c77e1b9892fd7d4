package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tadeyemo32/outreach-batcher/api"
	"github.com/tadeyemo32/outreach-batcher/config"
	"github.com/tadeyemo32/outreach-batcher/db"
	"github.com/tadeyemo32/outreach-batcher/services"
)

func main() {
	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx := context.Background()

	var projects services.ProjectStore
	if strings.HasPrefix(cfg.Database.URL, "postgres") {
		pg, err := services.OpenPgProjectStore(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Error opening postgres project store: %v", err)
		}
		defer pg.Close()
		projects = pg
		log.Printf("[Store] Using postgres project store")
	} else {
		store, err := services.OpenGormProjectStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Error opening project store: %v", err)
		}
		projects = store
	}

	ledgerDB, err := db.InitDB(cfg.Database.LedgerPath)
	if err != nil {
		log.Fatalf("Error opening export ledger: %v", err)
	}
	defer ledgerDB.Close()
	ledger := db.NewLedger(ledgerDB)

	limiter := services.NewHostLimiter(cfg.Pipeline.RequestsPerSecond, cfg.Pipeline.Burst)
	llm := services.NewLLMRouter(services.LLMConfig{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		OpenAIKey:    cfg.LLM.OpenAIKey,
		AnthropicKey: cfg.LLM.AnthropicKey,
		GeminiKey:    cfg.LLM.GeminiKey,
	})
	llm.Limiter = limiter

	toolkit := &services.Toolkit{
		LLM:         llm,
		RapidAPIKey: cfg.Enrichment.RapidAPIKey,
		ExaKey:      cfg.Enrichment.ExaKey,
		Limiter:     limiter,
		Backoff:     cfg.Pipeline.RetryBackoff,
		Pipeline: services.PipelineConfig{
			MaxRows:               cfg.Pipeline.MaxRows,
			RowsPerPause:          cfg.Pipeline.RowsPerPause,
			Pause:                 cfg.Pipeline.Pause,
			ProceedOnInvalidEmail: cfg.Pipeline.ProceedOnInvalidEmail,
		},
	}

	var exporter services.Exporter
	exportDir := ""
	if cfg.Export.UseSupabase() {
		exporter = &services.SupabaseExporter{
			URL:     cfg.Export.SupabaseURL,
			Key:     cfg.Export.SupabaseKey,
			Bucket:  cfg.Export.Bucket,
			Limiter: limiter,
		}
		log.Printf("[Export] Uploading exports to Supabase bucket %q", cfg.Export.Bucket)
	} else {
		exporter = &services.LocalExporter{Dir: cfg.Export.Dir, PublicBaseURL: cfg.Server.PublicBaseURL}
		exportDir = cfg.Export.Dir
		log.Printf("[Export] Writing exports to %s", cfg.Export.Dir)
	}

	tiers := cfg.TierTable()
	server := &api.Server{
		Projects: projects,
		Personalizer: &services.PersonalizeService{
			Sheets:      &services.SheetFetcher{Limiter: limiter},
			Projects:    projects,
			Exporter:    exporter,
			Ledger:      ledger,
			NewPipeline: toolkit.NewPipeline,
			Now:         time.Now,
			Tiers:       tiers,
		},
		Exports: ledger,
		LLM:     llm,
		Tiers:   tiers,
		Credentials: map[string]string{
			"OPENAI_API_KEY":    cfg.LLM.OpenAIKey,
			"ANTHROPIC_API_KEY": cfg.LLM.AnthropicKey,
			"GEMINI_API_KEY":    cfg.LLM.GeminiKey,
			"RAPIDAPI_KEY":      cfg.Enrichment.RapidAPIKey,
			"EXA_API_KEY":       cfg.Enrichment.ExaKey,
		},
		APIKey:    cfg.Server.APIKey,
		ExportDir: exportDir,
	}

	r := gin.Default()
	r.Use(api.CORSMiddleware())
	api.SetupRoutes(r, server)

	log.Printf("Starting outreach batcher on port %s (%d tiers)", cfg.Server.Port, len(tiers))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
