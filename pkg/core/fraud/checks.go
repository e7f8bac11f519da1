package fraud

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/utils"
	"statement_analysis/pkg/models"
)

// Rule thresholds. Tuned against Singapore SME statements; structuring and
// layering patterns show up well above these lines.
const (
	roundAmountThreshold = 5000  // flag round amounts at or above this
	roundModulo          = 1000  // "round" means divisible by this
	rapidTxnThreshold    = 10    // transactions in one day
	outlierStdDevs       = 3.0   // amounts above mean + 3 sigma
	balanceSwingRatio    = 0.5   // swing above half the max balance
	balanceSwingFloor    = 10000 // and above this absolute floor
	cashRatioThreshold   = 0.30
)

var monthEdgeDays = map[int]bool{1: true, 2: true, 3: true, 28: true, 29: true, 30: true, 31: true}

var dayLeadRe = regexp.MustCompile(`^(\d{1,2})[\-/]`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

// parseDay extracts the day-of-month from "DD MMM", "DD-MMM-YYYY" and
// similar shapes.
func parseDay(date string) int {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0
	}
	if m := dayLeadRe.FindStringSubmatch(date); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d
	}
	parts := strings.Fields(date)
	if len(parts) > 0 {
		if d, err := strconv.Atoi(parts[0]); err == nil {
			return d
		}
	}
	return 0
}

func dateKey(date string) string {
	return multiSpaceRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(date)), " ")
}

// checkRoundAmounts flags large round-number transactions, a classic
// structuring signal.
func checkRoundAmounts(txns []models.RawTransaction) models.CheckResult {
	const name = "Round-Amount Transactions"

	var flagged []interface{}
	for _, t := range txns {
		if t.Amount >= roundAmountThreshold && math.Mod(t.Amount, roundModulo) == 0 {
			flagged = append(flagged, map[string]interface{}{
				"date":        t.Date,
				"amount":      t.Amount,
				"type":        t.Type,
				"description": truncate(t.Description, 80),
			})
		}
	}

	if len(flagged) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details:      fmt.Sprintf("No round amounts >= %d found.", roundAmountThreshold),
			FlaggedItems: []interface{}{}}
	}
	status := models.CheckWarning
	if len(flagged) >= 5 {
		status = models.CheckFail
	}
	return models.CheckResult{Check: name, Status: status,
		Details: fmt.Sprintf("%d transactions with round amounts >= %d (divisible by %d).",
			len(flagged), roundAmountThreshold, roundModulo),
		FlaggedItems: capItems(flagged, 20)}
}

// checkDuplicates groups by date + amount + counterparty prefix; repeated
// rows are either extraction artifacts or deliberate padding.
func checkDuplicates(txns []models.RawTransaction) models.CheckResult {
	const name = "Duplicate / Near-Duplicate Transactions"

	groups := map[string][]models.RawTransaction{}
	var order []string
	for _, t := range txns {
		key := fmt.Sprintf("%s|%.2f|%s", dateKey(t.Date), t.Amount, truncate(strings.ToUpper(t.Counterparty), 30))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	var dupes []interface{}
	totalDupes := 0
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		totalDupes += len(group)
		dupes = append(dupes, map[string]interface{}{
			"count":        len(group),
			"date":         group[0].Date,
			"amount":       group[0].Amount,
			"counterparty": group[0].Counterparty,
			"description":  truncate(group[0].Description, 80),
		})
	}

	if len(dupes) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "No duplicate transactions detected.", FlaggedItems: []interface{}{}}
	}
	status := models.CheckWarning
	if totalDupes >= 6 {
		status = models.CheckFail
	}
	return models.CheckResult{Check: name, Status: status,
		Details: fmt.Sprintf("%d groups of duplicate transactions (%d total transactions).",
			len(dupes), totalDupes),
		FlaggedItems: capItems(dupes, 20)}
}

// checkRapidSuccession flags days with unusually many transactions.
func checkRapidSuccession(txns []models.RawTransaction) models.CheckResult {
	const name = "Rapid Succession Transactions"

	byDay := map[string]int{}
	for _, t := range txns {
		if dk := dateKey(t.Date); dk != "" {
			byDay[dk]++
		}
	}

	type dayCount struct {
		day   string
		count int
	}
	var busy []dayCount
	for day, count := range byDay {
		if count >= rapidTxnThreshold {
			busy = append(busy, dayCount{day, count})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].count > busy[j].count })

	if len(busy) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details:      fmt.Sprintf("No days with >= %d transactions.", rapidTxnThreshold),
			FlaggedItems: []interface{}{}}
	}
	var items []interface{}
	for i, b := range busy {
		if i == 10 {
			break
		}
		items = append(items, map[string]interface{}{"date": b.day, "count": b.count})
	}
	return models.CheckResult{Check: name, Status: models.CheckWarning,
		Details: fmt.Sprintf("%d days with >= %d transactions (max %d on %s).",
			len(busy), rapidTxnThreshold, busy[0].count, busy[0].day),
		FlaggedItems: items}
}

// checkLargeOutliers flags amounts beyond mean + 3 sigma.
func checkLargeOutliers(txns []models.RawTransaction) models.CheckResult {
	const name = "Large Outlier Transactions"

	var amounts []float64
	for _, t := range txns {
		if t.Amount > 0 {
			amounts = append(amounts, t.Amount)
		}
	}
	if len(amounts) < 5 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "Too few transactions for outlier analysis.", FlaggedItems: []interface{}{}}
	}

	mean := meanOf(amounts)
	sigma := stdevOf(amounts)
	threshold := mean + outlierStdDevs*sigma

	type flaggedTxn struct {
		item   map[string]interface{}
		amount float64
	}
	var flagged []flaggedTxn
	for _, t := range txns {
		if t.Amount > threshold {
			stdDevs := 0.0
			if sigma > 0 {
				stdDevs = round1((t.Amount - mean) / sigma)
			}
			flagged = append(flagged, flaggedTxn{
				amount: t.Amount,
				item: map[string]interface{}{
					"date":        t.Date,
					"amount":      t.Amount,
					"type":        t.Type,
					"description": truncate(t.Description, 80),
					"std_devs":    stdDevs,
				},
			})
		}
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i].amount > flagged[j].amount })

	if len(flagged) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: fmt.Sprintf("No outliers (threshold: %.2f, mean: %.2f, sigma: %.2f).",
				threshold, mean, sigma),
			FlaggedItems: []interface{}{}}
	}
	status := models.CheckWarning
	if len(flagged) >= 3 {
		status = models.CheckFail
	}
	items := make([]interface{}, 0, len(flagged))
	for i, f := range flagged {
		if i == 15 {
			break
		}
		items = append(items, f.item)
	}
	return models.CheckResult{Check: name, Status: status,
		Details: fmt.Sprintf("%d transactions exceed %.0f sigma above mean (threshold: %.2f).",
			len(flagged), outlierStdDevs, threshold),
		FlaggedItems: items}
}

// checkBalanceAnomalies flags sudden large running-balance swings.
func checkBalanceAnomalies(txns []models.RawTransaction) models.CheckResult {
	const name = "Balance Anomalies"

	type balPoint struct {
		date    string
		balance float64
	}
	var points []balPoint
	for _, t := range txns {
		if t.Balance != nil {
			points = append(points, balPoint{t.Date, *t.Balance})
		}
	}
	if len(points) < 3 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "Too few balance data points for analysis.", FlaggedItems: []interface{}{}}
	}

	maxBal := 1.0
	for _, p := range points {
		if math.Abs(p.balance) > maxBal {
			maxBal = math.Abs(p.balance)
		}
	}

	var flagged []interface{}
	for i := 1; i < len(points); i++ {
		swing := math.Abs(points[i].balance - points[i-1].balance)
		if swing > balanceSwingRatio*maxBal && swing > balanceSwingFloor {
			flagged = append(flagged, map[string]interface{}{
				"date":             points[i].date,
				"previous_balance": round2(points[i-1].balance),
				"new_balance":      round2(points[i].balance),
				"swing":            round2(swing),
				"swing_pct":        round1(swing / maxBal * 100),
			})
		}
	}

	if len(flagged) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "No large balance swings detected.", FlaggedItems: []interface{}{}}
	}
	status := models.CheckWarning
	if len(flagged) >= 3 {
		status = models.CheckFail
	}
	return models.CheckResult{Check: name, Status: status,
		Details: fmt.Sprintf("%d large balance swings (> %.0f%% of max balance %.2f).",
			len(flagged), balanceSwingRatio*100, maxBal),
		FlaggedItems: capItems(flagged, 15)}
}

// checkCashHeavy compares cash volume against total volume. Metrics are
// preferred when available; otherwise the is_cash flags are summed.
func checkCashHeavy(txns []models.RawTransaction, metrics *models.StatementMetrics) models.CheckResult {
	const name = "Cash-Heavy Activity"

	var totalCredits, totalDebits float64
	for _, t := range txns {
		switch t.Type {
		case models.TxnCredit:
			totalCredits += t.Amount
		case models.TxnDebit:
			totalDebits += t.Amount
		}
	}
	totalVolume := totalCredits + totalDebits

	var cashDeposits, cashWithdrawals float64
	cashCount := 0
	if metrics != nil {
		cashDeposits = metrics.TotalAmountOfCashDeposits
		cashWithdrawals = metrics.TotalAmountOfCashWithdrawals
		cashCount = metrics.TotalNoOfCashDeposits + metrics.TotalNoOfCashWithdrawals
	} else {
		for _, t := range txns {
			if !t.IsCash {
				continue
			}
			cashCount++
			if t.Type == models.TxnCredit {
				cashDeposits += t.Amount
			} else {
				cashWithdrawals += t.Amount
			}
		}
	}

	ratio := 0.0
	if totalVolume > 0 {
		ratio = (cashDeposits + cashWithdrawals) / totalVolume
	}

	if ratio < cashRatioThreshold {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: fmt.Sprintf("Cash activity: %.1f%% of total volume (%d cash transactions, deposits: %.2f, withdrawals: %.2f).",
				ratio*100, cashCount, cashDeposits, cashWithdrawals),
			FlaggedItems: []interface{}{}}
	}
	status := models.CheckWarning
	if ratio > 0.5 {
		status = models.CheckFail
	}
	return models.CheckResult{Check: name, Status: status,
		Details: fmt.Sprintf("Cash activity: %.1f%% of total volume (threshold: %.0f%%). %d cash transactions, deposits: %.2f, withdrawals: %.2f.",
			ratio*100, cashRatioThreshold*100, cashCount, cashDeposits, cashWithdrawals),
		FlaggedItems: []interface{}{map[string]interface{}{
			"cash_ratio":       math.Round(ratio*1000) / 1000,
			"cash_deposits":    cashDeposits,
			"cash_withdrawals": cashWithdrawals,
			"cash_count":       cashCount,
		}}}
}

// checkTimingPatterns flags concentration at month edges. Seven edge days
// out of roughly thirty means ~23% is expected; above 60% is anomalous.
func checkTimingPatterns(txns []models.RawTransaction) models.CheckResult {
	const name = "Unusual Timing Patterns"

	edgeCount, midCount := 0, 0
	for _, t := range txns {
		day := parseDay(t.Date)
		if day == 0 {
			continue
		}
		if monthEdgeDays[day] {
			edgeCount++
		} else {
			midCount++
		}
	}

	total := edgeCount + midCount
	if total < 10 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "Too few dated transactions for timing analysis.", FlaggedItems: []interface{}{}}
	}

	edgeRatio := float64(edgeCount) / float64(total)
	if edgeRatio <= 0.60 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: fmt.Sprintf("%d/%d (%.0f%%) transactions at month start/end - within normal range.",
				edgeCount, total, edgeRatio*100),
			FlaggedItems: []interface{}{}}
	}
	return models.CheckResult{Check: name, Status: models.CheckWarning,
		Details: fmt.Sprintf("%d/%d (%.0f%%) transactions concentrated at month start/end.",
			edgeCount, total, edgeRatio*100),
		FlaggedItems: []interface{}{map[string]interface{}{
			"edge_count": edgeCount,
			"mid_count":  midCount,
			"edge_ratio": math.Round(edgeRatio*1000) / 1000,
		}}}
}

// checkCounterpartyRisk sends the top counterparties by volume through the
// text model for a qualitative assessment.
func checkCounterpartyRisk(ctx context.Context, mgr *agent.Manager, txns []models.RawTransaction) models.CheckResult {
	const name = "Counterparty Risk Assessment"

	volume := map[string]float64{}
	counts := map[string]int{}
	for _, t := range txns {
		cp := strings.TrimSpace(t.Counterparty)
		if cp == "" {
			cp = strings.TrimSpace(t.Description)
		}
		if len(cp) < 3 {
			continue
		}
		key := strings.ToUpper(truncate(cp, 60))
		volume[key] += t.Amount
		counts[key]++
	}
	if len(volume) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "No counterparty data available.", FlaggedItems: []interface{}{}}
	}

	type cpVolume struct {
		name   string
		volume float64
	}
	ranked := make([]cpVolume, 0, len(volume))
	for cp, vol := range volume {
		ranked = append(ranked, cpVolume{cp, vol})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].volume > ranked[j].volume })
	if len(ranked) > 30 {
		ranked = ranked[:30]
	}

	var sb strings.Builder
	for i, cp := range ranked {
		fmt.Fprintf(&sb, "  %d. %s - %d txn(s), total %.2f\n", i+1, cp.name, counts[cp.name], cp.volume)
	}

	prompt := "You are a fraud analyst reviewing bank statement counterparties. " +
		"Below are the top counterparties by transaction volume.\n\n" + sb.String() + "\n" +
		"Identify any suspicious patterns:\n" +
		"- Shell company names (random letters, no real business name)\n" +
		"- Money service businesses or remittance companies\n" +
		"- Gambling or high-risk merchants\n" +
		"- Counterparties that appear to be personal accounts in a business statement\n" +
		"- Any other red flags\n\n" +
		"Respond ONLY with valid JSON (no markdown fences):\n" +
		`{"status": "pass" or "fail" or "warning", "details": "brief assessment of counterparty risk", "flagged_counterparties": ["name1", "name2"]}`

	raw, err := mgr.ExecutePrompt(ctx, "fraud", prompt, "", map[string]interface{}{
		"temperature": 0.1,
		"max_tokens":  500,
	})
	if err != nil {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: fmt.Sprintf("Could not run counterparty analysis: %v", err), FlaggedItems: []interface{}{}}
	}

	var parsed struct {
		Status                string   `json:"status"`
		Details               string   `json:"details"`
		FlaggedCounterparties []string `json:"flagged_counterparties"`
	}
	if err := utils.SmartParse(raw, &parsed); err != nil {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: truncate(raw, 300), FlaggedItems: []interface{}{}}
	}

	status := parsed.Status
	if status != models.CheckPass && status != models.CheckFail && status != models.CheckWarning {
		status = models.CheckWarning
	}
	items := make([]interface{}, 0, len(parsed.FlaggedCounterparties))
	for _, cp := range parsed.FlaggedCounterparties {
		items = append(items, map[string]interface{}{"counterparty": cp})
	}
	return models.CheckResult{Check: name, Status: status, Details: parsed.Details, FlaggedItems: items}
}

func capItems(items []interface{}, n int) []interface{} {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdevOf(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := meanOf(vals)
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
