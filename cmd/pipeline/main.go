package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/extract"
	"statement_analysis/pkg/core/fraud"
	"statement_analysis/pkg/core/insight"
	"statement_analysis/pkg/core/layout"
	"statement_analysis/pkg/core/llm"
	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/core/pipeline"
	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/core/tamper"
	"statement_analysis/pkg/models"
)

// Runs the full analysis pipeline against local PDF statements without the
// HTTP layer. Files are registered as one upload group, so passing several
// statements also exercises the cross-statement phase.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: pipeline <statement.pdf> [statement2.pdf ...]")
		os.Exit(1)
	}

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

	mgr := newAgentManager(cfg)
	st := store.New()
	orch := pipeline.New(st,
		&layout.Agent{},
		&extract.Agent{Manager: mgr, Store: st, Cfg: cfg},
		&tamper.Agent{Manager: mgr, Store: st, Cfg: cfg},
		&fraud.Agent{Manager: mgr, Store: st},
		&insight.Agent{Manager: mgr, Store: st},
	)

	groupID, err := st.CreateUploadGroup(ctx)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}

	var docIDs []string
	for _, path := range os.Args[1:] {
		doc, err := registerLocalFile(ctx, st, groupID, path)
		if err != nil {
			fmt.Printf("[FATAL] %s: %v\n", path, err)
			os.Exit(1)
		}
		docIDs = append(docIDs, doc.ID)
	}

	for _, id := range docIDs {
		if err := orch.ProcessDocument(ctx, id); err != nil {
			fmt.Printf("Pipeline failed for %s: %v\n", id, err)
		}
	}

	printResults(ctx, st, groupID, docIDs)
}

func registerLocalFile(ctx context.Context, st *store.Store, groupID, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	pageCount := 0
	if reader, err := pdf.Open(abs); err == nil {
		pageCount = reader.PageCount()
		reader.Close()
	}

	doc := &models.Document{
		ID:               models.NewID(),
		Filename:         filepath.Base(abs),
		OriginalFilename: filepath.Base(abs),
		FilePath:         abs,
		FileSize:         info.Size(),
		PageCount:        pageCount,
		UploadGroupID:    groupID,
	}
	if err := st.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	fmt.Printf("Registered %s as document %s (%d pages)\n", doc.Filename, doc.ID, pageCount)
	return doc, nil
}

func printResults(ctx context.Context, st *store.Store, groupID string, docIDs []string) {
	for _, id := range docIDs {
		fmt.Printf("\n=== Document %s ===\n", id)
		results, err := st.AgentResultsForDocument(ctx, id)
		if err != nil {
			fmt.Printf("  failed to load results: %v\n", err)
			continue
		}
		for _, res := range results {
			fmt.Printf("  [%s] %s", res.AgentType, res.Status)
			if res.RiskLevel != "" {
				fmt.Printf(" (risk: %s)", res.RiskLevel)
			}
			fmt.Println()
			if res.Summary != "" {
				fmt.Printf("    %s\n", res.Summary)
			}
			if res.ErrorMessage != "" {
				fmt.Printf("    error: %s\n", res.ErrorMessage)
			}
		}
	}

	if len(docIDs) < 2 {
		return
	}
	fmt.Printf("\n=== Group %s ===\n", groupID)
	groupResults, err := st.GroupAgentResults(ctx, groupID)
	if err != nil {
		fmt.Printf("  failed to load group results: %v\n", err)
		return
	}
	for _, res := range groupResults {
		fmt.Printf("  [%s] %s (risk: %s)\n", res.AgentType, res.Status, res.RiskLevel)
		if res.Summary != "" {
			fmt.Printf("    %s\n", res.Summary)
		}
	}
}

func newAgentManager(cfg *config.Settings) *agent.Manager {
	var agentCfg agent.Config
	if data, err := os.ReadFile(cfg.AgentConfigPath); err == nil {
		yaml.Unmarshal(data, &agentCfg)
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
