package insight

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"statement_analysis/pkg/models"
)

var monthOrder = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var dayMonthRe = regexp.MustCompile(`^(\d{1,2})[\-/]([A-Za-z]{3})`)
var daySlashRe = regexp.MustCompile(`^(\d{1,2})/\d{1,2}`)

// parseDay extracts the day-of-month from "01 DEC", "01-Sep-2025" and
// "01/12/2025" shapes. Returns 0 when no day is recognisable.
func parseDay(date string) int {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0
	}
	if m := dayMonthRe.FindStringSubmatch(date); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d
	}
	parts := strings.Fields(date)
	if len(parts) > 0 {
		if d, err := strconv.Atoi(parts[0]); err == nil {
			return d
		}
	}
	if m := daySlashRe.FindStringSubmatch(date); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d
	}
	return 0
}

// parseMonth extracts the month abbreviation ("SEP") from a date string.
func parseMonth(date string) string {
	date = strings.ToUpper(strings.TrimSpace(date))
	if date == "" {
		return ""
	}
	if m := dayMonthRe.FindStringSubmatch(date); m != nil {
		if _, ok := monthOrder[strings.ToUpper(m[2])]; ok {
			return strings.ToUpper(m[2])
		}
	}
	for _, p := range strings.Fields(date) {
		if _, ok := monthOrder[p]; ok {
			return p
		}
	}
	return ""
}

var categoryLabels = map[string]string{
	"salary":        "Salary & Wages",
	"revenue":       "Business Revenue",
	"rent":          "Rent & Lease",
	"utilities":     "Utilities",
	"food_beverage": "Food & Beverage",
	"transport":     "Transport",
	"supplier":      "Supplier Payments",
	"purchase":      "Purchases",
	"transfer":      "Fund Transfers",
	"loan":          "Loan Payments",
	"tax":           "Tax & Government",
	"insurance":     "Insurance",
	"fees":          "Bank Fees & Charges",
	"refund":        "Refunds",
	"other":         "Other / Uncategorized",
}

func categoryLabel(cat string) string {
	if label, ok := categoryLabels[cat]; ok {
		return label
	}
	if cat == "" {
		return cat
	}
	return strings.ToUpper(cat[:1]) + cat[1:]
}

type catBucket struct {
	category string
	count    int
	total    float64
}

// categoryAnalysis breaks spending and income down by category, each side
// sorted by total with a share of that side's volume.
func categoryAnalysis(txns []models.RawTransaction) map[string]interface{} {
	debitByCat := map[string]*catBucket{}
	creditByCat := map[string]*catBucket{}

	bump := func(m map[string]*catBucket, cat string, amount float64) {
		b, ok := m[cat]
		if !ok {
			b = &catBucket{category: cat}
			m[cat] = b
		}
		b.count++
		b.total += amount
	}

	for _, t := range txns {
		cat := t.Category
		if cat == "" {
			cat = "other"
		}
		switch t.Type {
		case models.TxnDebit:
			bump(debitByCat, cat, t.Amount)
		case models.TxnCredit:
			bump(creditByCat, cat, t.Amount)
		}
	}

	format := func(m map[string]*catBucket) ([]map[string]interface{}, float64) {
		buckets := make([]*catBucket, 0, len(m))
		var total float64
		for _, b := range m {
			buckets = append(buckets, b)
			total += b.total
		}
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].total > buckets[j].total })

		out := make([]map[string]interface{}, 0, len(buckets))
		for _, b := range buckets {
			pct := 0.0
			if total > 0 {
				pct = b.total / total * 100
			}
			out = append(out, map[string]interface{}{
				"category":   b.category,
				"label":      categoryLabel(b.category),
				"count":      b.count,
				"total":      round2(b.total),
				"percentage": round1(pct),
			})
		}
		return out, total
	}

	debitCategories, totalDebits := format(debitByCat)
	creditCategories, totalCredits := format(creditByCat)

	topDebit, topCredit := "N/A", "N/A"
	if len(debitCategories) > 0 {
		topDebit = debitCategories[0]["label"].(string)
	}
	if len(creditCategories) > 0 {
		topCredit = creditCategories[0]["label"].(string)
	}

	return map[string]interface{}{
		"debit_categories":      debitCategories,
		"credit_categories":     creditCategories,
		"total_debit_amount":    round2(totalDebits),
		"total_credit_amount":   round2(totalCredits),
		"top_debit_category":    topDebit,
		"top_credit_category":   topCredit,
		"debit_category_count":  len(debitCategories),
		"credit_category_count": len(creditCategories),
	}
}

// cashFlowAnalysis buckets inflow and outflow by day of month, plus the
// four-week breakdown and peak days.
func cashFlowAnalysis(txns []models.RawTransaction) map[string]interface{} {
	dailyInflow := map[int]float64{}
	dailyOutflow := map[int]float64{}

	for _, t := range txns {
		day := parseDay(t.Date)
		if day == 0 {
			continue
		}
		switch t.Type {
		case models.TxnCredit:
			dailyInflow[day] += t.Amount
		case models.TxnDebit:
			dailyOutflow[day] += t.Amount
		}
	}

	daySet := map[int]bool{}
	for d := range dailyInflow {
		daySet[d] = true
	}
	for d := range dailyOutflow {
		daySet[d] = true
	}
	allDays := make([]int, 0, len(daySet))
	for d := range daySet {
		allDays = append(allDays, d)
	}
	sort.Ints(allDays)

	dailyFlow := make([]map[string]interface{}, 0, len(allDays))
	for _, day := range allDays {
		dailyFlow = append(dailyFlow, map[string]interface{}{
			"day":     day,
			"inflow":  round2(dailyInflow[day]),
			"outflow": round2(dailyOutflow[day]),
			"net":     round2(dailyInflow[day] - dailyOutflow[day]),
		})
	}

	var totalInflow, totalOutflow float64
	for _, v := range dailyInflow {
		totalInflow += v
	}
	for _, v := range dailyOutflow {
		totalOutflow += v
	}
	netFlow := totalInflow - totalOutflow

	direction := "positive"
	if netFlow < 0 {
		direction = "negative"
	}

	weekLabels := []string{"week_1 (1-7)", "week_2 (8-14)", "week_3 (15-21)", "week_4 (22-31)"}
	weekIn := make([]float64, 4)
	weekOut := make([]float64, 4)
	for _, day := range allDays {
		idx := 3
		switch {
		case day <= 7:
			idx = 0
		case day <= 14:
			idx = 1
		case day <= 21:
			idx = 2
		}
		weekIn[idx] += dailyInflow[day]
		weekOut[idx] += dailyOutflow[day]
	}
	weeklyBreakdown := make([]map[string]interface{}, 0, 4)
	for i, label := range weekLabels {
		weeklyBreakdown = append(weeklyBreakdown, map[string]interface{}{
			"week":    label,
			"inflow":  round2(weekIn[i]),
			"outflow": round2(weekOut[i]),
			"net":     round2(weekIn[i] - weekOut[i]),
		})
	}

	return map[string]interface{}{
		"total_inflow":       round2(totalInflow),
		"total_outflow":      round2(totalOutflow),
		"net_flow":           round2(netFlow),
		"net_flow_direction": direction,
		"burn_rate":          round2(totalOutflow),
		"peak_inflow_day":    peakDay(dailyInflow),
		"peak_outflow_day":   peakDay(dailyOutflow),
		"daily_flow":         dailyFlow,
		"weekly_breakdown":   weeklyBreakdown,
	}
}

// peakDay returns the day with the largest total, 0 when empty. Ties break
// to the earlier day so the result is deterministic.
func peakDay(daily map[int]float64) int {
	best, bestVal := 0, math.Inf(-1)
	for day, v := range daily {
		if v > bestVal || (v == bestVal && day < best) {
			best, bestVal = day, v
		}
	}
	return best
}

type cpBucket struct {
	name  string
	count int
	total float64
}

// counterpartyAnalysis ranks vendors (debit side) and customers (credit
// side) by total volume.
func counterpartyAnalysis(txns []models.RawTransaction) map[string]interface{} {
	vendors := map[string]*cpBucket{}
	customers := map[string]*cpBucket{}

	bump := func(m map[string]*cpBucket, name string, amount float64) {
		b, ok := m[name]
		if !ok {
			b = &cpBucket{name: name}
			m[name] = b
		}
		b.count++
		b.total += amount
	}

	for _, t := range txns {
		cp := strings.TrimSpace(t.Counterparty)
		lower := strings.ToLower(cp)
		if cp == "" || lower == "unknown" || lower == "n/a" {
			continue
		}
		switch t.Type {
		case models.TxnDebit:
			bump(vendors, cp, t.Amount)
		case models.TxnCredit:
			bump(customers, cp, t.Amount)
		}
	}

	rankByTotal := func(m map[string]*cpBucket, limit int) []map[string]interface{} {
		buckets := make([]*cpBucket, 0, len(m))
		for _, b := range m {
			buckets = append(buckets, b)
		}
		sort.Slice(buckets, func(i, j int) bool {
			if buckets[i].total != buckets[j].total {
				return buckets[i].total > buckets[j].total
			}
			return buckets[i].name < buckets[j].name
		})
		if len(buckets) > limit {
			buckets = buckets[:limit]
		}
		out := make([]map[string]interface{}, 0, len(buckets))
		for _, b := range buckets {
			out = append(out, map[string]interface{}{
				"name": b.name, "count": b.count, "total": round2(b.total),
			})
		}
		return out
	}

	// recurring = seen three or more times, ranked by frequency
	recurring := make([]*cpBucket, 0)
	for _, b := range vendors {
		if b.count >= 3 {
			recurring = append(recurring, b)
		}
	}
	sort.Slice(recurring, func(i, j int) bool {
		if recurring[i].count != recurring[j].count {
			return recurring[i].count > recurring[j].count
		}
		return recurring[i].name < recurring[j].name
	})
	if len(recurring) > 10 {
		recurring = recurring[:10]
	}
	recurringOut := make([]map[string]interface{}, 0, len(recurring))
	for _, b := range recurring {
		recurringOut = append(recurringOut, map[string]interface{}{
			"name": b.name, "count": b.count, "total": round2(b.total),
		})
	}

	return map[string]interface{}{
		"top_vendors":           rankByTotal(vendors, 15),
		"top_customers":         rankByTotal(customers, 15),
		"recurring_vendors":     recurringOut,
		"unique_vendor_count":   len(vendors),
		"unique_customer_count": len(customers),
	}
}

// unusualTransactions flags noteworthy rows: amounts at 3x the side's
// average, round thousands, same-day bi-directional movement, low balances.
func unusualTransactions(txns []models.RawTransaction) map[string]interface{} {
	var debits, credits []models.RawTransaction
	for _, t := range txns {
		if t.Amount == 0 {
			continue
		}
		switch t.Type {
		case models.TxnDebit:
			debits = append(debits, t)
		case models.TxnCredit:
			credits = append(credits, t)
		}
	}

	var large []map[string]interface{}
	flagLarge := func(side []models.RawTransaction, kind, label string) {
		if len(side) == 0 {
			return
		}
		var sum float64
		for _, t := range side {
			sum += t.Amount
		}
		avg := sum / float64(len(side))
		threshold := avg * 3
		for _, t := range side {
			if t.Amount >= threshold {
				large = append(large, map[string]interface{}{
					"type":        kind,
					"date":        t.Date,
					"description": t.Description,
					"amount":      t.Amount,
					"reason":      fmt.Sprintf("Amount (%.2f) is >3x the average %s (%.2f)", t.Amount, label, avg),
				})
			}
		}
	}
	flagLarge(debits, "large_debit", "debit")
	flagLarge(credits, "large_credit", "credit")

	var roundTxns []map[string]interface{}
	for _, t := range txns {
		if t.Amount >= 1000 && t.Amount == math.Trunc(t.Amount) {
			roundTxns = append(roundTxns, map[string]interface{}{
				"type":             "round_number",
				"date":             t.Date,
				"description":      t.Description,
				"amount":           t.Amount,
				"transaction_type": t.Type,
			})
		}
	}

	type movement struct {
		credits, debits float64
	}
	dayMovements := map[string]*movement{}
	var dayOrder []string
	for _, t := range txns {
		if t.Date == "" || t.Amount == 0 {
			continue
		}
		mv, ok := dayMovements[t.Date]
		if !ok {
			mv = &movement{}
			dayMovements[t.Date] = mv
			dayOrder = append(dayOrder, t.Date)
		}
		if t.Type == models.TxnCredit {
			mv.credits += t.Amount
		} else {
			mv.debits += t.Amount
		}
	}
	var sameDayFlags []map[string]interface{}
	for _, day := range dayOrder {
		mv := dayMovements[day]
		if mv.credits > 5000 && mv.debits > 5000 {
			sameDayFlags = append(sameDayFlags, map[string]interface{}{
				"type":    "same_day_large_movement",
				"date":    day,
				"credits": round2(mv.credits),
				"debits":  round2(mv.debits),
				"reason":  "Both large credits and debits on the same day",
			})
		}
	}

	var lowBalanceEvents []map[string]interface{}
	seenDates := map[string]bool{}
	for _, t := range txns {
		if t.Balance != nil && *t.Balance < 10000 && !seenDates[t.Date] {
			lowBalanceEvents = append(lowBalanceEvents, map[string]interface{}{
				"type":        "low_balance",
				"date":        t.Date,
				"balance":     *t.Balance,
				"description": t.Description,
			})
			seenDates[t.Date] = true
		}
	}

	totalFlags := len(large) + len(sameDayFlags) + len(lowBalanceEvents)
	return map[string]interface{}{
		"large_transactions":        capMaps(large, 20),
		"round_number_transactions": capMaps(roundTxns, 20),
		"same_day_large_movements":  sameDayFlags,
		"low_balance_events":        capMaps(lowBalanceEvents, 10),
		"total_flags":               totalFlags,
	}
}

// dayOfMonthPatterns tallies transaction density per day of month.
func dayOfMonthPatterns(txns []models.RawTransaction) map[string]interface{} {
	dayCounts := map[int]int{}
	dayAmounts := map[int]float64{}

	for _, t := range txns {
		if day := parseDay(t.Date); day > 0 {
			dayCounts[day]++
			dayAmounts[day] += t.Amount
		}
	}

	days := make([]int, 0, len(dayCounts))
	for d := range dayCounts {
		days = append(days, d)
	}
	sort.Ints(days)

	pattern := make([]map[string]interface{}, 0, len(days))
	for _, day := range days {
		pattern = append(pattern, map[string]interface{}{
			"day":               day,
			"transaction_count": dayCounts[day],
			"total_amount":      round2(dayAmounts[day]),
		})
	}

	busiest, quietest := 0, 0
	if len(days) > 0 {
		busiest, quietest = days[0], days[0]
		for _, d := range days {
			if dayCounts[d] > dayCounts[busiest] {
				busiest = d
			}
			if dayCounts[d] < dayCounts[quietest] {
				quietest = d
			}
		}
	}

	return map[string]interface{}{
		"daily_pattern":     pattern,
		"busiest_day":       busiest,
		"quietest_day":      quietest,
		"highest_value_day": peakDay(dayAmounts),
		"active_days":       len(dayCounts),
	}
}

// channelAnalysis breaks volume down by payment channel.
func channelAnalysis(txns []models.RawTransaction) map[string]interface{} {
	channels := map[string]*cpBucket{}
	for _, t := range txns {
		ch := strings.TrimSpace(t.Channel)
		if ch == "" {
			ch = "Unknown"
		}
		b, ok := channels[ch]
		if !ok {
			b = &cpBucket{name: ch}
			channels[ch] = b
		}
		b.count++
		b.total += t.Amount
	}

	ranked := make([]*cpBucket, 0, len(channels))
	var totalAmount float64
	for _, b := range channels {
		ranked = append(ranked, b)
		totalAmount += b.total
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].name < ranked[j].name
	})

	out := make([]map[string]interface{}, 0, len(ranked))
	for _, b := range ranked {
		pct := 0.0
		if totalAmount > 0 {
			pct = b.total / totalAmount * 100
		}
		out = append(out, map[string]interface{}{
			"channel":    b.name,
			"count":      b.count,
			"total":      round2(b.total),
			"percentage": round1(pct),
		})
	}

	dominant := "N/A"
	if len(ranked) > 0 {
		dominant = ranked[0].name
	}
	return map[string]interface{}{
		"channels":         out,
		"dominant_channel": dominant,
		"total_channels":   len(ranked),
	}
}

// businessHealth computes the composite 0-100 health score plus its
// underlying indicators.
func businessHealth(txns []models.RawTransaction, metrics *models.StatementMetrics) map[string]interface{} {
	if metrics == nil {
		return map[string]interface{}{
			"score": 0, "indicators": map[string]interface{}{}, "assessment": "Insufficient data",
		}
	}

	indicators := map[string]interface{}{}

	opening := deref(metrics.OpeningBalance)
	closing := deref(metrics.ClosingBalance)
	totalOut := metrics.TotalAmountOfDebitTransactions
	totalIn := metrics.TotalAmountOfCreditTransactions

	runwayMonths := 0.0
	if totalOut > 0 {
		runwayMonths = closing / totalOut
	}
	indicators["cash_runway_months"] = round2(runwayMonths)

	coverage := 0.0
	if totalOut > 0 {
		coverage = totalIn / totalOut
	}
	indicators["revenue_coverage_ratio"] = math.Round(coverage*1000) / 1000

	balanceChange := closing - opening
	balanceChangePct := 0.0
	if opening > 0 {
		balanceChangePct = balanceChange / opening * 100
	}
	indicators["balance_change"] = round2(balanceChange)
	indicators["balance_change_pct"] = round1(balanceChangePct)
	if balanceChange > 0 {
		indicators["balance_trend"] = "growing"
	} else {
		indicators["balance_trend"] = "declining"
	}

	cashRatio := 0.0
	if totalIn > 0 {
		cashRatio = metrics.TotalAmountOfCashDeposits / totalIn * 100
	}
	indicators["cash_deposit_ratio_pct"] = round1(cashRatio)

	feeBurden := 0.0
	if totalOut > 0 {
		feeBurden = metrics.TotalFeesCharged / totalOut * 100
	}
	indicators["fee_burden_pct"] = math.Round(feeBurden*1000) / 1000
	indicators["total_fees"] = round2(metrics.TotalFeesCharged)

	activeDays := map[int]bool{}
	for _, t := range txns {
		if day := parseDay(t.Date); day > 0 {
			activeDays[day] = true
		}
	}
	velocity := 0.0
	if len(activeDays) > 0 {
		velocity = float64(len(txns)) / float64(len(activeDays))
	}
	indicators["daily_transaction_velocity"] = round1(velocity)
	indicators["active_days"] = len(activeDays)

	minBal := deref(metrics.MinEODBalance)
	avgDailySpend := 0.0
	if len(activeDays) > 0 {
		avgDailySpend = totalOut / float64(len(activeDays))
	}
	minBalanceCoverDays := 0.0
	if avgDailySpend > 0 {
		minBalanceCoverDays = minBal / avgDailySpend
	}
	indicators["min_balance_cover_days"] = round1(minBalanceCoverDays)

	score := 50
	if coverage >= 1.0 {
		score += 10
	}
	if coverage >= 0.8 {
		score += 5
	}
	if closing >= opening {
		score += 10
	}
	if runwayMonths >= 0.5 {
		score += 5
	}
	if runwayMonths >= 1.0 {
		score += 5
	}
	if minBalanceCoverDays >= 3 {
		score += 5
	}
	if coverage < 0.5 {
		score -= 15
	}
	if closing < opening*0.5 {
		score -= 10
	}
	if minBal < 5000 {
		score -= 10
	}
	if cashRatio > 30 {
		score -= 5
	}
	if runwayMonths < 0.1 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var assessment string
	switch {
	case score >= 80:
		assessment = "Strong - healthy cash flows with positive trajectory"
	case score >= 60:
		assessment = "Moderate - stable but watch for declining balances"
	case score >= 40:
		assessment = "Caution - cash flow strain detected"
	default:
		assessment = "Concern - significant cash flow issues observed"
	}

	return map[string]interface{}{
		"score":      score,
		"assessment": assessment,
		"indicators": indicators,
	}
}

func capMaps(items []map[string]interface{}, n int) []map[string]interface{} {
	if items == nil {
		return []map[string]interface{}{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round2(f float64) float64 { return math.Round(f*100) / 100 }
