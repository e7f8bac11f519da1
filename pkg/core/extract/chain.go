package extract

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const chainTolerance = 0.02 // allow 2 cent rounding difference

// Deduplicate removes duplicate transactions in two passes: exact
// fingerprints first, then a balance-based fuzzy pass that catches the same
// transaction re-emitted from an overlapping batch or a continuation row.
func Deduplicate(txns []Transaction) []Transaction {
	if len(txns) == 0 {
		return txns
	}

	seenExact := map[string]bool{}
	pass1 := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		var bal float64
		if t.Balance != nil {
			bal = *t.Balance
		}
		key := fmt.Sprintf("%s|%s|%.2f|%.2f|%s",
			t.Date(), truncate(t.Description, 60), t.Amount(), bal, t.Type)
		if !seenExact[key] {
			seenExact[key] = true
			pass1 = append(pass1, t)
		}
	}
	exactRemoved := len(txns) - len(pass1)

	seenBalance := map[string]bool{}
	pass2 := make([]Transaction, 0, len(pass1))
	for _, t := range pass1 {
		if t.Balance != nil && (t.Type == "credit" || t.Type == "debit") {
			key := fmt.Sprintf("%s|%.2f|%s|%.2f", t.Date(), *t.Balance, t.Type, t.Amount())
			if seenBalance[key] {
				continue
			}
			seenBalance[key] = true
		}
		pass2 = append(pass2, t)
	}
	fuzzyRemoved := len(pass1) - len(pass2)

	if exactRemoved+fuzzyRemoved > 0 {
		fmt.Printf("  deduplication removed %d duplicates (exact: %d, fuzzy: %d)\n",
			exactRemoved+fuzzyRemoved, exactRemoved, fuzzyRemoved)
	}
	return pass2
}

// ChainBreak records one failed balance transition.
type ChainBreak struct {
	Index           int     `json:"index"`
	Section         int     `json:"section"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	ExpectedBalance float64 `json:"expected_balance"`
	ActualBalance   float64 `json:"actual_balance"`
	Difference      float64 `json:"difference"`
}

// ChainReport summarises balance-chain validation across sections.
type ChainReport struct {
	TotalChecked     int          `json:"total_checked"`
	Valid            int          `json:"valid"`
	Invalid          int          `json:"invalid"`
	ChainAccuracyPct float64      `json:"chain_accuracy_pct"`
	Breaks           []ChainBreak `json:"breaks"`
	Sections         int          `json:"sections"`
}

// ValidateBalanceChain checks that running balances form a consistent chain,
// independently per account section. Sections come from explicit tags (word
// tier) or successive opening_balance markers.
func ValidateBalanceChain(txns []Transaction) ChainReport {
	hasTags := false
	for _, t := range txns {
		if t.AccountSection != 0 {
			hasTags = true
			break
		}
	}

	sections := map[int][]Transaction{}
	if hasTags {
		for _, t := range txns {
			sections[t.AccountSection] = append(sections[t.AccountSection], t)
		}
	} else {
		current := 0
		for _, t := range txns {
			if t.Type == "opening_balance" && len(sections[current]) > 0 {
				current++
			}
			sections[current] = append(sections[current], t)
		}
	}

	report := ChainReport{Sections: len(sections), Breaks: []ChainBreak{}}

	sectionIDs := make([]int, 0, len(sections))
	for id := range sections {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Ints(sectionIDs)

	for _, secID := range sectionIDs {
		var chain []Transaction
		for _, t := range sections[secID] {
			if (t.Type == "credit" || t.Type == "debit") && t.Balance != nil {
				chain = append(chain, t)
			}
		}
		if len(chain) < 2 {
			continue
		}
		for i := 1; i < len(chain); i++ {
			prev := *chain[i-1].Balance
			curr := *chain[i].Balance
			amt := chain[i].Amount()
			expected := round2(prev + amt)
			if chain[i].Type == "debit" {
				expected = round2(prev - amt)
			}
			diff := math.Abs(expected - curr)
			if diff <= chainTolerance {
				report.Valid++
			} else {
				report.Invalid++
				if len(report.Breaks) < 20 {
					report.Breaks = append(report.Breaks, ChainBreak{
						Index:           i,
						Section:         secID,
						Date:            chain[i].Date(),
						Description:     truncate(chain[i].Description, 50),
						ExpectedBalance: expected,
						ActualBalance:   curr,
						Difference:      round2(diff),
					})
				}
			}
		}
	}

	report.TotalChecked = report.Valid + report.Invalid
	if report.TotalChecked > 0 {
		report.ChainAccuracyPct = round1(float64(report.Valid) / float64(report.TotalChecked) * 100)
	} else {
		report.ChainAccuracyPct = 100.0
	}
	return report
}

// AccuracySignal is one weighted component of the overall accuracy score.
type AccuracySignal struct {
	Value  float64 `json:"value"`
	Weight int     `json:"weight"`
}

// AccuracyReport is the weighted extraction-quality score with its
// per-signal breakdown.
type AccuracyReport struct {
	OverallScore       float64                   `json:"overall_score"`
	Grade              string                    `json:"grade"`
	Breakdown          map[string]AccuracySignal `json:"breakdown"`
	BalanceChainDetail ChainReport               `json:"balance_chain_detail"`
}

// ComputeAccuracy scores the extraction 0-100 from five signals: balance
// chain continuity (40%), opening/closing presence (20%), the accounting
// equation (20%), amount completeness (10%), balance completeness (10%).
func ComputeAccuracy(txns []Transaction, openingBalance, closingBalance *float64, totalCredits, totalDebits float64, chain ChainReport) AccuracyReport {
	breakdown := map[string]AccuracySignal{}

	breakdown["balance_chain"] = AccuracySignal{Value: chain.ChainAccuracyPct, Weight: 40}

	hasOpening := openingBalance != nil
	hasClosing := closingBalance != nil
	obScore := 0.0
	if hasOpening && hasClosing {
		obScore = 100.0
	} else if hasOpening || hasClosing {
		obScore = 50.0
	}
	breakdown["opening_closing_present"] = AccuracySignal{Value: obScore, Weight: 20}

	// opening + credits - debits should equal closing. A fully valid chain
	// is trusted outright since the simple equation breaks down for
	// multi-currency statements.
	var equationScore float64
	switch {
	case chain.ChainAccuracyPct >= 99.9:
		equationScore = 100.0
	case hasOpening && hasClosing:
		expected := round2(*openingBalance + totalCredits - totalDebits)
		diff := math.Abs(expected - *closingBalance)
		relativeError := diff / math.Max(math.Abs(*closingBalance), 1)
		equationScore = math.Min(100, math.Max(0, 100-relativeError*2000))
	default:
		equationScore = 50.0
	}
	breakdown["accounting_equation"] = AccuracySignal{Value: round1(equationScore), Weight: 20}

	var actual, missingAmount, nullBalance int
	for _, t := range txns {
		if t.Type != "credit" && t.Type != "debit" {
			continue
		}
		actual++
		if t.Withdrawal == nil && t.Deposit == nil {
			missingAmount++
		}
		if t.Balance == nil {
			nullBalance++
		}
	}
	denom := math.Max(float64(actual), 1)
	missingPct := float64(missingAmount) / denom * 100
	breakdown["completeness"] = AccuracySignal{Value: round1(math.Max(0, 100-missingPct*5)), Weight: 10}
	nullPct := float64(nullBalance) / denom * 100
	breakdown["balance_completeness"] = AccuracySignal{Value: round1(math.Max(0, 100-nullPct*5)), Weight: 10}

	totalWeight := 0
	weightedSum := 0.0
	for _, s := range breakdown {
		totalWeight += s.Weight
		weightedSum += s.Value * float64(s.Weight)
	}
	overall := 0.0
	if totalWeight > 0 {
		overall = round1(weightedSum / float64(totalWeight))
	}

	return AccuracyReport{
		OverallScore:       overall,
		Grade:              gradeFor(overall),
		Breakdown:          breakdown,
		BalanceChainDetail: chain,
	}
}

func gradeFor(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	}
	return "F"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
