package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"statement_analysis/pkg/api"
	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/extract"
	"statement_analysis/pkg/core/fraud"
	"statement_analysis/pkg/core/insight"
	"statement_analysis/pkg/core/layout"
	"statement_analysis/pkg/core/llm"
	"statement_analysis/pkg/core/pipeline"
	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/core/tamper"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[FATAL] Database init failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Printf("[FATAL] Schema setup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureUploadDir(); err != nil {
		fmt.Printf("[FATAL] Upload dir setup failed: %v\n", err)
		os.Exit(1)
	}

	mgr := newAgentManager(cfg)
	st := store.New()

	orch := pipeline.New(st,
		&layout.Agent{},
		&extract.Agent{Manager: mgr, Store: st, Cfg: cfg},
		&tamper.Agent{Manager: mgr, Store: st, Cfg: cfg},
		&fraud.Agent{Manager: mgr, Store: st},
		&insight.Agent{Manager: mgr, Store: st},
	)

	router := api.SetupRouter(&api.Handler{Store: st, Runner: orch, Cfg: cfg})

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	fmt.Printf("API server starting on %s (provider: %s)\n", addr, mgr.GetActiveProvider())
	if err := router.Run(addr); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

// newAgentManager loads the per-agent provider routing and builds the
// OpenAI-compatible provider from the model-service settings. A missing
// routing file falls back to openai for everything.
func newAgentManager(cfg *config.Settings) *agent.Manager {
	var agentCfg agent.Config
	data, err := os.ReadFile(cfg.AgentConfigPath)
	if err != nil {
		fmt.Printf("[WARNING] Failed to read agent config %s: %v\n", cfg.AgentConfigPath, err)
	} else if err := yaml.Unmarshal(data, &agentCfg); err != nil {
		fmt.Printf("[WARNING] Failed to parse agent config %s: %v\n", cfg.AgentConfigPath, err)
	}
	if agentCfg.ActiveProvider == "" {
		agentCfg.ActiveProvider = "openai"
	}

	openai := &llm.OpenAIProvider{
		Endpoint:         cfg.ModelEndpoint,
		APIVersion:       cfg.ModelAPIVersion,
		Deployment:       cfg.ModelDeployment,
		VisionDeployment: cfg.VisionDeployment,
	}
	return agent.NewManager(agentCfg, openai)
}
