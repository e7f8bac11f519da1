package layout

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/models"
)

// The layout agent runs before extraction and describes the document's
// structure: which bank, whether it is scanned, the table geometry, and the
// date/amount conventions. Extraction consumes the result as advisory
// context.

type bankSignature struct {
	name           string
	keywords       []string
	products       []string
	headerPatterns []*regexp.Regexp
}

var bankSignatures = []bankSignature{
	{
		name:           "DBS",
		keywords:       []string{"DBS BANK", "DEVELOPMENT BANK OF SINGAPORE", "DBS/POSB"},
		products:       []string{"AUTOSAVE ACCOUNT", "MULTIPLIER ACCOUNT", "MY ACCOUNT", "DBS TREASURES"},
		headerPatterns: compilePatterns(`DBS\s+BANK`, `DBS/POSB`),
	},
	{
		name:           "POSB",
		keywords:       []string{"POSB", "POST OFFICE SAVINGS BANK"},
		products:       []string{"POSB SAYE", "POSB EVERYDAY"},
		headerPatterns: compilePatterns(`POSB`),
	},
	{
		name:           "OCBC",
		keywords:       []string{"OCBC BANK", "OVERSEA-CHINESE BANKING", "OCBC"},
		products:       []string{"360 ACCOUNT", "FRANK ACCOUNT", "OCBC VOYAGE"},
		headerPatterns: compilePatterns(`OCBC\s+BANK`),
	},
	{
		name:           "UOB",
		keywords:       []string{"UNITED OVERSEAS BANK", "UOB"},
		products:       []string{"UNIPLUS", "ONE ACCOUNT", "STASH ACCOUNT"},
		headerPatterns: compilePatterns(`UNITED\s+OVERSEAS\s+BANK`, `UOB`),
	},
	{
		name:           "Standard Chartered",
		keywords:       []string{"STANDARD CHARTERED"},
		products:       []string{"BONUSSAVER", "JUMPSTART"},
		headerPatterns: compilePatterns(`STANDARD\s+CHARTERED`),
	},
	{
		name:           "HSBC",
		keywords:       []string{"HSBC", "THE HONGKONG AND SHANGHAI BANKING"},
		products:       []string{"EVERYDAY GLOBAL ACCOUNT", "CURRENT ACCOUNT"},
		headerPatterns: compilePatterns(`HSBC`),
	},
	{
		name:           "Citibank",
		keywords:       []string{"CITIBANK"},
		products:       []string{"CITIGOLD", "MAXIGAIN"},
		headerPatterns: compilePatterns(`CITIBANK`),
	},
	{
		name:           "GXS Bank",
		keywords:       []string{"GXS BANK", "GXS"},
		headerPatterns: compilePatterns(`GXS\s+BANK`),
	},
	{
		name:           "Trust Bank",
		keywords:       []string{"TRUST BANK"},
		headerPatterns: compilePatterns(`TRUST\s+BANK`),
	},
	{
		name:           "Aspire",
		keywords:       []string{"ASPIRE"},
		products:       []string{"ASPIRE BUSINESS ACCOUNT"},
		headerPatterns: compilePatterns(`ASPIRE`),
	},
	{
		name:           "Airwallex",
		keywords:       []string{"AIRWALLEX"},
		headerPatterns: compilePatterns(`AIRWALLEX`),
	},
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

var columnAliases = []struct {
	canonical string
	aliases   []string
}{
	{"date", []string{"date", "txn date", "transaction date", "date & time", "posting date"}},
	{"value_date", []string{"value date", "val date", "effective date"}},
	{"description", []string{"description", "transaction details", "details", "particulars", "narrative"}},
	{"debit", []string{"debit", "withdrawal", "withdrawals", "dr", "payments"}},
	{"credit", []string{"credit", "deposit", "deposits", "cr", "receipts"}},
	{"balance", []string{"balance", "running balance", "bal", "closing balance"}},
	{"reference", []string{"reference", "ref", "ref no", "transaction ref"}},
}

var datePatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`\d{2}-[A-Za-z]{3}-\d{4}`), "DD-MMM-YYYY"},
	{regexp.MustCompile(`\d{2}\s+[A-Z]{3}\s+\d{4}`), "DD MMM YYYY"},
	{regexp.MustCompile(`\d{2}\s+[A-Z]{3}`), "DD MMM"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "DD/MM/YYYY"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{2}`), "DD/MM/YY"},
	{regexp.MustCompile(`\d{2}[A-Z]{3}\d{4}`), "DDMMMYYYY"},
}

var (
	decimalAmountRe  = regexp.MustCompile(`\d{1,3},\d{3}\.\d{2}`)
	europeanAmountRe = regexp.MustCompile(`\d{1,3}\.\d{3},\d{2}`)
	nonASCIIRe       = regexp.MustCompile(`[^\x00-\x7f]`)
	headerCcyRe      = regexp.MustCompile(`\s*\([A-Z]{3}\)\s*`)
	dateLeadRe       = regexp.MustCompile(`^\d{1,2}[\-/\s]`)
)

var openingMarkers = []string{"BALANCE B/F", "BALANCE BROUGHT FORWARD", "OPENING BALANCE",
	"BROUGHT FORWARD", "B/F"}

var closingMarkers = []string{"BALANCE C/F", "BALANCE CARRIED FORWARD", "CLOSING BALANCE",
	"CARRIED FORWARD", "C/F"}

// TableStructure describes the first substantial transaction table found.
type TableStructure struct {
	Page      int        `json:"page"`
	Columns   int        `json:"columns"`
	HeaderRow []string   `json:"header_row"`
	Samples   [][]string `json:"sample_rows"`
}

// Context is the structured layout description handed to extraction.
type Context struct {
	BankDetected          string            `json:"bank_detected"`
	Confidence            float64           `json:"confidence"`
	IsScanned             bool              `json:"is_scanned"`
	TableStructure        *TableStructure   `json:"table_structure"`
	DateFormat            string            `json:"date_format"`
	AmountFormat          string            `json:"amount_format"`
	MultiLineDescriptions bool              `json:"multi_line_descriptions"`
	ColumnMapping         map[string]int    `json:"column_mapping"`
	SpecialMarkers        map[string]string `json:"special_markers"`
	PageCount             int               `json:"page_count"`
	HasTables             bool              `json:"has_tables"`
}

// Agent analyzes PDF structure ahead of extraction.
type Agent struct{}

// Run analyzes the document's layout. The result is informational, so the
// risk level is always low.
func (a *Agent) Run(ctx context.Context, doc *models.Document) (*models.AgentOutcome, error) {
	fmt.Printf("Layout agent analyzing document %s\n", doc.ID)

	layout, err := Analyze(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("layout analysis failed: %w", err)
	}
	fmt.Printf("  layout analysis complete: %s (confidence %.2f)\n", layout.BankDetected, layout.Confidence)

	return &models.AgentOutcome{
		Results:   layout.AsResults(),
		Summary:   layout.summary(),
		RiskLevel: models.RiskLow,
	}, nil
}

// Analyze inspects the first pages of the PDF and builds the layout context.
func Analyze(filePath string) (*Context, error) {
	reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	layout := &Context{
		BankDetected:   "Unknown",
		DateFormat:     "DD MMM",
		AmountFormat:   "decimal_comma",
		ColumnMapping:  map[string]int{},
		SpecialMarkers: map[string]string{},
		PageCount:      reader.PageCount(),
		IsScanned:      reader.IsScanned(),
	}

	limit := layout.PageCount
	if limit > 3 {
		limit = 3
	}
	pageTexts := make([]string, limit)
	for i := 0; i < limit; i++ {
		if t, err := reader.PageText(i); err == nil {
			pageTexts[i] = t
		}
	}

	layout.BankDetected, layout.Confidence = detectBank(pageTexts)

	tables := make([]pdf.Table, 0, limit)
	tablePages := make([]int, 0, limit)
	for i := 0; i < limit; i++ {
		pageTables, err := reader.PageTables(i)
		if err != nil {
			continue
		}
		for _, tbl := range pageTables {
			tables = append(tables, tbl)
			tablePages = append(tablePages, i)
		}
	}
	analyzeTables(layout, tables, tablePages)

	layout.DateFormat, layout.AmountFormat = detectFormats(pageTexts)
	layout.SpecialMarkers = detectSpecialMarkers(pageTexts)
	layout.MultiLineDescriptions = detectMultiLine(tables)

	return layout, nil
}

// detectBank scores each signature: 3 per keyword, 2 per product, 2 per
// header pattern. Confidence is the winning score over 10, clamped to 1.
func detectBank(pageTexts []string) (string, float64) {
	limit := len(pageTexts)
	if limit > 2 {
		limit = 2
	}
	text := strings.ToUpper(strings.Join(pageTexts[:limit], "\n"))

	best := "Unknown"
	bestScore := 0
	for _, sig := range bankSignatures {
		score := 0
		for _, kw := range sig.keywords {
			if strings.Contains(text, kw) {
				score += 3
			}
		}
		for _, product := range sig.products {
			if strings.Contains(text, product) {
				score += 2
			}
		}
		for _, re := range sig.headerPatterns {
			if re.MatchString(text) {
				score += 2
			}
		}
		if score > bestScore {
			best = sig.name
			bestScore = score
		}
	}
	if bestScore == 0 {
		return "Unknown", 0
	}
	return best, math.Min(float64(bestScore)/10.0, 1.0)
}

// analyzeTables records the first table whose header row maps to known
// columns.
func analyzeTables(layout *Context, tables []pdf.Table, tablePages []int) {
	layout.HasTables = len(tables) > 0
	for i, table := range tables {
		if len(table) < 2 {
			continue
		}
		mapping := mapColumns(table[0])
		if len(mapping) == 0 {
			continue
		}
		sampleEnd := len(table)
		if sampleEnd > 4 {
			sampleEnd = 4
		}
		layout.ColumnMapping = mapping
		layout.TableStructure = &TableStructure{
			Page:      tablePages[i],
			Columns:   len(table[0]),
			HeaderRow: table[0],
			Samples:   table[1:sampleEnd],
		}
		return
	}
}

// mapColumns maps a header row to canonical column names by index.
func mapColumns(headers []string) map[string]int {
	mapping := map[string]int{}
	for idx, header := range headers {
		cleaned := strings.ToLower(strings.TrimSpace(header))
		cleaned = nonASCIIRe.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(headerCcyRe.ReplaceAllString(cleaned, ""))
		if cleaned == "" {
			continue
		}
		for _, entry := range columnAliases {
			if _, taken := mapping[entry.canonical]; taken {
				continue
			}
			for _, alias := range entry.aliases {
				if strings.Contains(cleaned, alias) || strings.Contains(alias, cleaned) {
					mapping[entry.canonical] = idx
					break
				}
			}
			if _, ok := mapping[entry.canonical]; ok {
				break
			}
		}
	}
	return mapping
}

// detectFormats picks the first matching date pattern and counts amount
// styles to tell 1,234.56 apart from 1.234,56.
func detectFormats(pageTexts []string) (string, string) {
	limit := len(pageTexts)
	if limit > 2 {
		limit = 2
	}
	text := strings.Join(pageTexts[:limit], "\n")

	dateFormat := "DD MMM"
	for _, p := range datePatterns {
		if p.re.MatchString(text) {
			dateFormat = p.format
			break
		}
	}

	amountFormat := "decimal_comma"
	if len(europeanAmountRe.FindAllString(text, -1)) > len(decimalAmountRe.FindAllString(text, -1)) {
		amountFormat = "european"
	}
	return dateFormat, amountFormat
}

func detectSpecialMarkers(pageTexts []string) map[string]string {
	text := strings.ToUpper(strings.Join(pageTexts, "\n"))
	markers := map[string]string{}
	for _, marker := range openingMarkers {
		if strings.Contains(text, marker) {
			markers["opening_balance"] = marker
			break
		}
	}
	for _, marker := range closingMarkers {
		if strings.Contains(text, marker) {
			markers["closing_balance"] = marker
			break
		}
	}
	return markers
}

// detectMultiLine flags statements where descriptions continue on undated
// rows (DBS does this): fewer than 60% of data rows starting with a date.
func detectMultiLine(tables []pdf.Table) bool {
	for _, table := range tables {
		if len(table) < 5 {
			continue
		}
		dateRows := 0
		totalRows := len(table) - 1
		for _, row := range table[1:] {
			if len(row) == 0 {
				continue
			}
			if dateLeadRe.MatchString(strings.TrimSpace(row[0])) {
				dateRows++
			}
		}
		if dateRows > 0 && float64(dateRows)/float64(totalRows) < 0.6 {
			return true
		}
	}
	return false
}

// AsResults flattens the context into the agent result map so extraction can
// read individual keys.
func (c *Context) AsResults() map[string]interface{} {
	return map[string]interface{}{
		"bank_detected":           c.BankDetected,
		"confidence":              c.Confidence,
		"is_scanned":              c.IsScanned,
		"table_structure":         c.TableStructure,
		"date_format":             c.DateFormat,
		"amount_format":           c.AmountFormat,
		"multi_line_descriptions": c.MultiLineDescriptions,
		"column_mapping":          c.ColumnMapping,
		"special_markers":         c.SpecialMarkers,
		"page_count":              c.PageCount,
		"has_tables":              c.HasTables,
	}
}

func (c *Context) summary() string {
	parts := []string{
		fmt.Sprintf("Detected bank: %s (confidence: %.0f%%)", c.BankDetected, c.Confidence*100),
		fmt.Sprintf("Document has %d page(s)", c.PageCount),
	}
	if c.HasTables {
		parts = append(parts, fmt.Sprintf("Found structured tables with %d identified columns", len(c.ColumnMapping)))
	} else {
		parts = append(parts, "No structured tables detected (unstructured extraction required)")
	}
	parts = append(parts, "Date format: "+c.DateFormat)
	if c.IsScanned {
		parts = append(parts, "Scanned document (OCR required)")
	}
	if c.MultiLineDescriptions {
		parts = append(parts, "Multi-line transaction descriptions detected")
	}
	return strings.Join(parts, ". ") + "."
}
