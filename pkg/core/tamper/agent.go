package tamper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/models"
)

// Store is the slice of persistence the group-mode checks need.
type Store interface {
	DocumentsForGroup(ctx context.Context, groupID string) ([]models.Document, error)
	AgentResultsForGroupByType(ctx context.Context, groupID, agentType string) ([]models.AgentResult, error)
}

// Agent runs the tampering checks against one document, or cross-document
// consistency checks against a whole upload group.
type Agent struct {
	Manager *agent.Manager
	Store   Store
	Cfg     *config.Settings
}

// Run executes all eight document checks in cost order: metadata and font
// checks first, page rendering next, the vision model last.
func (a *Agent) Run(ctx context.Context, doc *models.Document) (*models.AgentOutcome, error) {
	fmt.Printf("Tampering agent starting for document %s\n", doc.ID)

	reader, err := pdf.Open(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	meta := reader.Info()
	fonts := reader.Fonts()
	pageCount := reader.PageCount()
	reader.Close()

	checks := make([]models.CheckResult, 0, 8)

	fmt.Println("  running metadata & font checks...")
	checks = append(checks,
		checkMetadataDates(meta),
		checkCreatorProducer(meta),
		checkKeywords(meta),
		checkFontConsistency(fonts),
	)

	fmt.Println("  running page dimension check...")
	checks = append(checks, checkPageDimensions(doc.FilePath, pageCount,
		a.Cfg.DimensionMinWidth, a.Cfg.DimensionMinHeight, a.Cfg.CheckSpecificDPI["document_dimension"]))

	fmt.Println("  running sharpness / clarity checks...")
	variances, err := pageSharpness(doc.FilePath, pageCount, a.Cfg.CheckSpecificDPI["page_clarity"])
	if err != nil {
		checks = append(checks,
			models.CheckResult{Check: "Page Clarity Check", Status: models.CheckWarning,
				Details: fmt.Sprintf("Error: %v", err)},
			models.CheckResult{Check: "Sharpness Spread Check", Status: models.CheckWarning,
				Details: fmt.Sprintf("Error: %v", err)},
		)
	} else {
		checks = append(checks,
			checkPageClarity(variances, a.Cfg.SharpnessThreshold),
			checkSharpnessSpread(variances, a.Cfg.SharpnessSpreadRatio, a.Cfg.SharpnessMaxStdDev),
		)
	}

	fmt.Println("  running visual tampering check (vision model)...")
	checks = append(checks, checkVisualTampering(ctx, a.Manager, doc.FilePath,
		a.Cfg.CheckSpecificDPI["visual_tampering"]))

	risk, score, summary := computeRisk(checks)
	fmt.Printf("  tampering result: %s (score=%d) - %s\n", risk, score, summary)

	return &models.AgentOutcome{
		Results:   checkResults(checks, score),
		Summary:   summary,
		RiskLevel: risk,
	}, nil
}

// RunGroup runs the cross-document consistency checks: statements in one
// upload bundle should come from the same generator and render alike.
func (a *Agent) RunGroup(ctx context.Context, groupID string) (*models.AgentOutcome, error) {
	fmt.Printf("Tampering agent (group mode) starting for group %s\n", groupID)

	docs, err := a.Store.DocumentsForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in group %s", groupID)
	}

	checks := []models.CheckResult{
		a.checkCreatorConsistency(docs),
		a.checkSharpnessConsistency(docs),
	}
	if rollup := a.checkPerDocumentRollup(ctx, groupID, len(docs)); rollup != nil {
		checks = append(checks, *rollup)
	}

	risk, score, summary := computeRisk(checks)
	fmt.Printf("  group tampering result: %s (score=%d)\n", risk, score)

	results := checkResults(checks, score)
	results["document_count"] = len(docs)
	return &models.AgentOutcome{
		Results:   results,
		Summary:   summary,
		RiskLevel: risk,
	}, nil
}

// checkCreatorConsistency collects every document's creator and producer.
// One generator across the bundle is expected; three or more is suspicious.
func (a *Agent) checkCreatorConsistency(docs []models.Document) models.CheckResult {
	const name = "Creator Consistency Check"

	tools := map[string]bool{}
	for _, doc := range docs {
		reader, err := pdf.Open(doc.FilePath)
		if err != nil {
			continue
		}
		meta := reader.Info()
		reader.Close()
		for _, v := range []string{strings.TrimSpace(meta.Creator), strings.TrimSpace(meta.Producer)} {
			if v != "" && !strings.EqualFold(v, "unknown") {
				tools[v] = true
			}
		}
	}

	unique := make([]string, 0, len(tools))
	for t := range tools {
		unique = append(unique, t)
	}
	sort.Strings(unique)
	detail := fmt.Sprintf("Generators across %d documents: %v", len(docs), unique)

	switch {
	case len(unique) <= 1:
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: detail + " - consistent."}
	case len(unique) <= 2:
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: detail + " - two distinct generators."}
	}
	return models.CheckResult{Check: name, Status: models.CheckFail,
		Details: detail + " - multiple distinct generators across one bundle."}
}

// checkSharpnessConsistency compares page-1 sharpness across documents. A
// bundle mixing crisp digital statements with one soft re-scan fails.
func (a *Agent) checkSharpnessConsistency(docs []models.Document) models.CheckResult {
	const name = "Cross-Document Sharpness Check"

	dpi := a.Cfg.CheckSpecificDPI["visual_tampering"]
	var variances []float64
	for _, doc := range docs {
		img, err := pdf.RenderPage(doc.FilePath, 0, dpi)
		if err != nil {
			continue
		}
		variances = append(variances, round2(pdf.LaplacianVariance(img)))
	}
	if len(variances) < 2 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "Fewer than 2 measurable documents - check not applicable."}
	}

	minV, maxV := variances[0], variances[0]
	for _, v := range variances[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	detail := fmt.Sprintf("Page-1 sharpness per document: %v", variances)
	if maxV > 0 && minV/maxV < 0.3 {
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: fmt.Sprintf("%s - ratio %.2f below 0.30, one document renders much softer than the rest.",
				detail, minV/maxV)}
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: detail + " - consistent."}
}

// checkPerDocumentRollup aggregates the per-document tampering verdicts.
// Returns nil when no per-document results exist yet.
func (a *Agent) checkPerDocumentRollup(ctx context.Context, groupID string, docCount int) *models.CheckResult {
	const name = "Per-Document Result Rollup"

	results, err := a.Store.AgentResultsForGroupByType(ctx, groupID, models.AgentTampering)
	if err != nil || len(results) == 0 {
		return nil
	}

	failedDocs := 0
	for _, r := range results {
		if failCount(r.Results) > 0 || r.RiskLevel == models.RiskHigh || r.RiskLevel == models.RiskCritical {
			failedDocs++
		}
	}

	check := models.CheckResult{Check: name}
	if failedDocs > 0 {
		check.Status = models.CheckFail
		check.Details = fmt.Sprintf("%d of %d documents have failed tampering checks.", failedDocs, docCount)
	} else {
		check.Status = models.CheckPass
		check.Details = fmt.Sprintf("All %d documents passed their individual tampering checks.", docCount)
	}
	return &check
}

// failCount reads the fail_count field of a stored result map; stored JSON
// numbers round-trip as float64.
func failCount(results map[string]interface{}) int {
	switch v := results["fail_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// computeRisk rolls check statuses into a risk level: a fail weighs 3, a
// warning 1.
func computeRisk(checks []models.CheckResult) (string, int, string) {
	var fails, warns, passes []string
	for _, c := range checks {
		switch c.Status {
		case models.CheckFail:
			fails = append(fails, c.Check)
		case models.CheckWarning:
			warns = append(warns, c.Check)
		case models.CheckPass:
			passes = append(passes, c.Check)
		}
	}

	score := len(fails)*3 + len(warns)

	var risk string
	switch {
	case len(fails) >= 4:
		risk = models.RiskCritical
	case len(fails) >= 2:
		risk = models.RiskHigh
	case len(fails) >= 1 || len(warns) >= 3:
		risk = models.RiskMedium
	default:
		risk = models.RiskLow
	}

	parts := []string{fmt.Sprintf("%d/%d checks passed", len(passes), len(checks))}
	if len(fails) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed: %s", len(fails), strings.Join(fails, ", ")))
	}
	if len(warns) > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings: %s", len(warns), strings.Join(warns, ", ")))
	}
	return risk, score, strings.Join(parts, ". ") + "."
}

func checkResults(checks []models.CheckResult, score int) map[string]interface{} {
	passed, failed, warned := 0, 0, 0
	for _, c := range checks {
		switch c.Status {
		case models.CheckPass:
			passed++
		case models.CheckFail:
			failed++
		case models.CheckWarning:
			warned++
		}
	}
	return map[string]interface{}{
		"checks":        checks,
		"risk_score":    score,
		"pass_count":    passed,
		"fail_count":    failed,
		"warning_count": warned,
		"total_checks":  len(checks),
	}
}
