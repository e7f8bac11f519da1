package fraud

import (
	"fmt"
	"strings"

	"statement_analysis/pkg/models"
)

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
