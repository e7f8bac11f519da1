package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"statement_analysis/pkg/models"
)

// Store is the persistence surface the orchestrator drives. Start* calls
// are the at-most-once gates: they return false when the run is already
// completed or held by another task.
type Store interface {
	Document(ctx context.Context, documentID string) (*models.Document, error)
	SetDocumentStatus(ctx context.Context, documentID, status string) error
	DocumentsForGroup(ctx context.Context, groupID string) ([]models.Document, error)

	StartAgentRun(ctx context.Context, documentID, groupID, agentType string) (bool, error)
	CompleteAgentRun(ctx context.Context, documentID, agentType string, outcome *models.AgentOutcome) error
	FailAgentRun(ctx context.Context, documentID, agentType, errMsg string) error
	AgentResult(ctx context.Context, documentID, agentType string) (*models.AgentResult, error)

	StartGroupAgentRun(ctx context.Context, groupID, agentType string) (bool, error)
	CompleteGroupAgentRun(ctx context.Context, groupID, agentType string, outcome *models.AgentOutcome) error
	FailGroupAgentRun(ctx context.Context, groupID, agentType, errMsg string) error
}

// DocAgent runs against a single document.
type DocAgent interface {
	Run(ctx context.Context, doc *models.Document) (*models.AgentOutcome, error)
}

// ExtractionAgent additionally receives the layout context produced in
// wave 1.
type ExtractionAgent interface {
	Run(ctx context.Context, doc *models.Document, layoutCtx map[string]interface{}) (*models.AgentOutcome, error)
}

// GroupAgent runs once per upload group after every document completed.
type GroupAgent interface {
	DocAgent
	RunGroup(ctx context.Context, groupID string) (*models.AgentOutcome, error)
}

// Orchestrator drives the per-document agent waves and the group phase.
//
// Waves: Layout and Tampering run concurrently; Extraction runs alone with
// the layout context; Fraud and Insights run concurrently over the
// persisted transactions. Agent failures are recorded on the AgentResult
// and never abort the pipeline.
type Orchestrator struct {
	store      Store
	layout     DocAgent
	extraction ExtractionAgent
	tampering  GroupAgent
	fraud      GroupAgent
	insights   GroupAgent
}

func New(store Store, layout DocAgent, extraction ExtractionAgent, tampering, fraud, insights GroupAgent) *Orchestrator {
	return &Orchestrator{
		store:      store,
		layout:     layout,
		extraction: extraction,
		tampering:  tampering,
		fraud:      fraud,
		insights:   insights,
	}
}

// ProcessDocument runs the full per-document pipeline, then triggers the
// group phase when this document was the last one in its group to finish.
func (o *Orchestrator) ProcessDocument(ctx context.Context, documentID string) error {
	doc, err := o.store.Document(ctx, documentID)
	if err != nil {
		return fmt.Errorf("document %s not found: %w", documentID, err)
	}

	fmt.Printf("Starting analysis for document %s (%s)\n", doc.ID, doc.OriginalFilename)
	if err := o.store.SetDocumentStatus(ctx, doc.ID, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	// Wave 1: layout and tampering are independent of each other.
	var layoutCtx map[string]interface{}
	var wave1 errgroup.Group
	wave1.Go(func() error {
		layoutCtx = o.runLayout(ctx, doc)
		return nil
	})
	wave1.Go(func() error {
		o.runDocAgent(ctx, doc, models.AgentTampering, o.tampering.Run)
		return nil
	})
	wave1.Wait()

	// Wave 2: extraction sees the layout context.
	o.runDocAgent(ctx, doc, models.AgentExtraction, func(ctx context.Context, d *models.Document) (*models.AgentOutcome, error) {
		return o.extraction.Run(ctx, d, layoutCtx)
	})

	// Wave 3: fraud and insights both read extraction's persisted output.
	var wave3 errgroup.Group
	wave3.Go(func() error {
		o.runDocAgent(ctx, doc, models.AgentFraud, o.fraud.Run)
		return nil
	})
	wave3.Go(func() error {
		o.runDocAgent(ctx, doc, models.AgentInsights, o.insights.Run)
		return nil
	})
	wave3.Wait()

	if err := o.store.SetDocumentStatus(ctx, doc.ID, models.DocStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	fmt.Printf("Analysis complete for document %s\n", doc.ID)

	if doc.UploadGroupID != "" {
		o.maybeProcessGroup(ctx, doc.UploadGroupID)
	}
	return nil
}

// runLayout executes the layout agent and returns its results map as the
// context for extraction. When the run was already completed, the stored
// result still supplies the context.
func (o *Orchestrator) runLayout(ctx context.Context, doc *models.Document) map[string]interface{} {
	outcome, started := o.runDocAgent(ctx, doc, models.AgentLayout, o.layout.Run)
	if outcome != nil {
		return outcome.Results
	}
	if !started {
		if prev, err := o.store.AgentResult(ctx, doc.ID, models.AgentLayout); err == nil && prev != nil {
			return prev.Results
		}
	}
	return map[string]interface{}{}
}

// runDocAgent wraps one agent invocation with the at-most-once status gate
// and the completed/failed transition. Returns the outcome (nil on skip or
// failure) and whether the gate was won.
func (o *Orchestrator) runDocAgent(ctx context.Context, doc *models.Document, agentType string,
	run func(context.Context, *models.Document) (*models.AgentOutcome, error)) (*models.AgentOutcome, bool) {

	started, err := o.store.StartAgentRun(ctx, doc.ID, doc.UploadGroupID, agentType)
	if err != nil {
		fmt.Printf("  %s agent: could not start run: %v\n", agentType, err)
		return nil, false
	}
	if !started {
		fmt.Printf("  skipping %s agent (already completed)\n", agentType)
		return nil, false
	}

	fmt.Printf("  running %s agent...\n", agentType)
	outcome, err := run(ctx, doc)
	if err != nil {
		fmt.Printf("  %s agent failed: %v\n", agentType, err)
		if ferr := o.store.FailAgentRun(ctx, doc.ID, agentType, err.Error()); ferr != nil {
			fmt.Printf("  %s agent: could not record failure: %v\n", agentType, ferr)
		}
		return nil, true
	}

	if err := o.store.CompleteAgentRun(ctx, doc.ID, agentType, outcome); err != nil {
		fmt.Printf("  %s agent: could not persist result: %v\n", agentType, err)
		return outcome, true
	}
	fmt.Printf("  %s agent completed (risk: %s)\n", agentType, outcome.RiskLevel)
	return outcome, true
}

// maybeProcessGroup triggers the group phase when every document in the
// group is completed. The finishing task performs the check; near-ties are
// serialised by the group-level status gate, so a double trigger is safe.
func (o *Orchestrator) maybeProcessGroup(ctx context.Context, groupID string) {
	docs, err := o.store.DocumentsForGroup(ctx, groupID)
	if err != nil {
		fmt.Printf("group %s: could not load documents: %v\n", groupID, err)
		return
	}
	if len(docs) < 2 {
		return
	}
	for _, d := range docs {
		if d.Status != models.DocStatusCompleted {
			return
		}
	}

	fmt.Printf("All %d documents in group %s completed - running group agents\n", len(docs), groupID)
	if err := o.ProcessGroup(ctx, groupID); err != nil {
		fmt.Printf("group %s: %v\n", groupID, err)
	}
}

// ProcessGroup runs the cross-document agents serially: each walks large
// slices of group state and they feed the same result table.
func (o *Orchestrator) ProcessGroup(ctx context.Context, groupID string) error {
	docs, err := o.store.DocumentsForGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents in group %s", groupID)
	}
	for _, d := range docs {
		if d.Status != models.DocStatusCompleted {
			return fmt.Errorf("group %s not ready: document %s is %s", groupID, d.ID, d.Status)
		}
	}
	if len(docs) < 2 {
		fmt.Printf("single document in group %s - skipping group agents\n", groupID)
		return nil
	}

	agents := []struct {
		agentType string
		agent     GroupAgent
	}{
		{models.AgentTampering, o.tampering},
		{models.AgentFraud, o.fraud},
		{models.AgentInsights, o.insights},
	}

	for _, ga := range agents {
		o.runGroupAgent(ctx, groupID, ga.agentType, ga.agent)
	}
	fmt.Printf("Group analysis complete for %s\n", groupID)
	return nil
}

func (o *Orchestrator) runGroupAgent(ctx context.Context, groupID, agentType string, agent GroupAgent) {
	started, err := o.store.StartGroupAgentRun(ctx, groupID, agentType)
	if err != nil {
		fmt.Printf("  group %s agent: could not start run: %v\n", agentType, err)
		return
	}
	if !started {
		fmt.Printf("  skipping group %s agent (already completed)\n", agentType)
		return
	}

	fmt.Printf("  running group %s agent...\n", agentType)
	outcome, err := agent.RunGroup(ctx, groupID)
	if err != nil {
		fmt.Printf("  group %s agent failed: %v\n", agentType, err)
		if ferr := o.store.FailGroupAgentRun(ctx, groupID, agentType, err.Error()); ferr != nil {
			fmt.Printf("  group %s agent: could not record failure: %v\n", agentType, ferr)
		}
		return
	}

	if err := o.store.CompleteGroupAgentRun(ctx, groupID, agentType, outcome); err != nil {
		fmt.Printf("  group %s agent: could not persist result: %v\n", agentType, err)
		return
	}
	fmt.Printf("  group %s agent completed (risk: %s)\n", agentType, outcome.RiskLevel)
}
