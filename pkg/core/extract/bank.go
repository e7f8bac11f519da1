package extract

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/pdf"
)

// Bank detection: vision on the page-1 logo first, then product names and
// explicit identifiers in the text.

var bankIdentifiers = []struct {
	name        string
	identifiers []string
}{
	{"OCBC", []string{"OCBC Bank", "Oversea-Chinese Banking", "OCBC"}},
	{"DBS", []string{"DBS Bank", "Development Bank of Singapore", "DBS/POSB", "DBS"}},
	{"POSB", []string{"POSB"}},
	{"UOB", []string{"United Overseas Bank", "UOB"}},
	{"Standard Chartered", []string{"Standard Chartered"}},
	{"HSBC", []string{"HSBC"}},
	{"Citibank", []string{"Citibank"}},
	{"Maybank", []string{"Maybank"}},
	{"CIMB", []string{"CIMB"}},
	{"Bank of China", []string{"Bank of China"}},
	{"ICBC", []string{"ICBC"}},
	{"GXS Bank", []string{"GXS Bank", "GXS"}},
	{"Trust Bank", []string{"Trust Bank", "Trust"}},
	{"MariBank", []string{"MariBank"}},
	{"Revolut", []string{"Revolut"}},
	{"Wise", []string{"Wise", "TransferWise"}},
	{"Aspire", []string{"Aspire"}},
	{"Airwallex", []string{"Airwallex"}},
}

// Product names that identify a bank when the bank name only appears in the
// logo image.
var bankProducts = []struct {
	name     string
	products []string
}{
	{"DBS", []string{"AUTOSAVE ACCOUNT", "MULTIPLIER ACCOUNT", "MY ACCOUNT", "DBS TREASURES",
		"POSB SAYE", "POSB EVERYDAY"}},
	{"OCBC", []string{"360 ACCOUNT", "FRANK ACCOUNT", "OCBC VOYAGE"}},
	{"UOB", []string{"UNIPLUS", "ONE ACCOUNT", "STASH ACCOUNT"}},
	{"Standard Chartered", []string{"BONUSSAVER", "JUMPSTART"}},
	{"HSBC", []string{"EVERYDAY GLOBAL ACCOUNT", "CURRENT ACCOUNT"}},
}

// Repeated per-page noise stripped before model parsing.
var bankNoisePatterns = map[string][]string{
	"OCBC": {`Deposit Insurance Scheme.*`, `Please turn over.*`, `RNB\w+\\?\d+`},
	"DBS": {`Page \d+\s*/\s*\d+`, `Page \d+ of \d+`, `DBS Bank Ltd.*`,
		`Printed By\s*:.*`, `Printed On\s*:.*`,
		`Deposit Insurance Scheme.*?\.`,
		`Transactions performed on a non-working day.*`,
		`If date requested is a non business day.*`},
	"UOB":                {`Page \d+ of \d+`, `United Overseas Bank Limited.*`},
	"Standard Chartered": {`Page \d+ of \d+`},
	"HSBC": {`Page\s*\d+\s*of\s*\d+`, `Deposit Insurance Scheme.*`,
		`Issued by The Hongkong.*`, `ENDOFSTATEMENT`},
	"_default": {`Page \d+\s*/\s*\d+`, `Page \d+ of \d+`},
}

var dbsDetailsRe = regexp.MustCompile(`(?is)Account Details.*Account Number`)
var dbsDateStyleRe = regexp.MustCompile(`\d{2}-[A-Z][a-z]{2}-\d{4}`)

// detectBankFromText scans extracted text for product names first (no false
// positives), then explicit identifiers with word boundaries for short
// names, then DBS-style format heuristics.
func detectBankFromText(pageTexts []string) string {
	limit := len(pageTexts)
	if limit > 3 {
		limit = 3
	}
	sample := strings.Join(pageTexts[:limit], " ")
	sampleLower := strings.ToLower(sample)

	for _, entry := range bankProducts {
		for _, product := range entry.products {
			if strings.Contains(sampleLower, strings.ToLower(product)) {
				return entry.name
			}
		}
	}

	for _, entry := range bankIdentifiers {
		for _, ident := range entry.identifiers {
			if len(ident) <= 4 {
				re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(ident) + `\b`)
				if re.MatchString(sample) {
					return entry.name
				}
			} else if strings.Contains(sampleLower, strings.ToLower(ident)) {
				return entry.name
			}
		}
	}

	if dbsDetailsRe.MatchString(sample) && dbsDateStyleRe.MatchString(sample) {
		return "DBS"
	}
	return "unknown"
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// detectBankFromLogo crops the top 20% of page 1 (where the logo lives) and
// asks the vision model to name the bank. Most reliable signal since some
// banks only show their name in the logo image.
func detectBankFromLogo(ctx context.Context, mgr *agent.Manager, path string) string {
	img, err := pdf.RenderPage(path, 0, 150)
	if err != nil {
		fmt.Printf("  vision bank detection failed: %v\n", err)
		return ""
	}
	if si, ok := img.(subImager); ok {
		b := img.Bounds()
		img = si.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+b.Dy()/5))
	}
	b64, err := pdf.EncodePNGBase64(img)
	if err != nil {
		return ""
	}

	var names []string
	for _, entry := range bankIdentifiers {
		names = append(names, entry.name)
	}
	prompt := "Look at this bank statement header image and identify the Singapore bank " +
		"from its logo or branding.\n" +
		"Return ONLY the bank name - one of: " + strings.Join(names, ", ") + ".\n" +
		"If you cannot identify it, return: unknown"

	response, err := mgr.ExecuteVisionPrompt(ctx, "extraction", prompt, b64, map[string]interface{}{
		"temperature": 0.0,
		"max_tokens":  30,
	})
	if err != nil {
		fmt.Printf("  vision bank detection failed: %v\n", err)
		return ""
	}

	bank := strings.Trim(strings.TrimSpace(response), `"'`)
	for _, known := range names {
		if strings.EqualFold(known, bank) {
			return known
		}
	}
	for _, known := range names {
		if strings.Contains(strings.ToLower(bank), strings.ToLower(known)) {
			return known
		}
	}
	fmt.Printf("  vision returned unrecognised bank: %q\n", bank)
	return ""
}

// cleanPageText removes the detected bank's repeated headers and footers.
func cleanPageText(text, bank string) string {
	patterns := append([]string{}, bankNoisePatterns[bank]...)
	patterns = append(patterns, bankNoisePatterns["_default"]...)
	for _, pat := range patterns {
		re, err := regexp.Compile(`(?i)` + pat)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
