package tamper

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/core/utils"
	"statement_analysis/pkg/models"
)

// Eight independent document checks. Each returns pass/fail/warning with an
// explanation; a check that cannot run reports a warning rather than failing
// the whole agent.

var pdfDateRe = regexp.MustCompile(`D:(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})`)

// parsePDFDate parses a raw PDF date like D:20250101120000+08'00'.
func parsePDFDate(raw string) *time.Time {
	m := pdfDateRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	t, err := time.Parse("20060102150405", m[1]+m[2]+m[3]+m[4]+m[5]+m[6])
	if err != nil {
		return nil
	}
	return &t
}

func fmtPDFDate(t *time.Time) string {
	if t == nil {
		return "Not found"
	}
	return t.Format("02 Jan 2006, 03:04:05 PM")
}

// checkMetadataDates compares creation and modification timestamps.
// Legitimate generators either leave them equal or a few seconds apart.
func checkMetadataDates(meta pdf.Metadata) models.CheckResult {
	const name = "Metadata Date Check"

	created := parsePDFDate(meta.CreationDate)
	modified := parsePDFDate(meta.ModDate)
	dates := fmt.Sprintf("Created: %s, Modified: %s", fmtPDFDate(created), fmtPDFDate(modified))

	switch {
	case created == nil && modified == nil:
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: dates + " - Both dates missing (metadata may have been stripped)."}
	case created == nil || modified == nil:
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: dates + " - One date is missing or malformed."}
	case modified.Before(*created):
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: dates + " - Modification date is BEFORE creation date (invalid)."}
	}

	delta := modified.Sub(*created)
	switch {
	case delta == 0:
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: dates + " - No modification detected."}
	case delta <= 5*time.Second:
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: dates + " - Modification within 5 seconds (normal generation)."}
	case delta <= time.Minute:
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: fmt.Sprintf("%s - Modified %ds after creation.", dates, int(delta.Seconds()))}
	}
	return models.CheckResult{Check: name, Status: models.CheckFail,
		Details: fmt.Sprintf("%s - Modified %ds after creation - potential tampering.", dates, int(delta.Seconds()))}
}

// Known editing and conversion tools that legitimate bank generators never
// use.
var suspiciousTools = []string{
	"canva", "ilovepdf", "smallpdf", "sejda", "pdf-xchange",
	"foxit phantompdf", "nitro", "pdfill", "pdfescape",
	"libreoffice", "openoffice", "google docs", "microsoft word",
	"print to pdf", "safari", "chrome",
}

func checkCreatorProducer(meta pdf.Metadata) models.CheckResult {
	const name = "Metadata Creator/Producer Check"

	creator := strings.TrimSpace(meta.Creator)
	producer := strings.TrimSpace(meta.Producer)
	if creator == "" && producer == "" {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: "No creator or producer metadata found (may have been stripped)."}
	}

	combined := strings.ToLower(creator + " " + producer)
	for _, tool := range suspiciousTools {
		if strings.Contains(combined, tool) {
			return models.CheckResult{Check: name, Status: models.CheckFail,
				Details: fmt.Sprintf("Creator: '%s', Producer: '%s' - detected editing tool '%s'.",
					creator, producer, tool)}
		}
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: fmt.Sprintf("Creator: '%s', Producer: '%s' - no suspicious tools detected.", creator, producer)}
}

var hexTrackingRe = regexp.MustCompile(`(?i)[0-9a-f]{16,}`)

func checkKeywords(meta pdf.Metadata) models.CheckResult {
	const name = "Metadata Keywords Check"

	keywords := strings.TrimSpace(meta.Keywords)
	if keywords == "" {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "No keywords found - nothing suspicious."}
	}
	if hexTrackingRe.MatchString(keywords) {
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: fmt.Sprintf("Keywords contain long hex/tracking string: '%s'", truncate(keywords, 120))}
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: fmt.Sprintf("Keywords: '%s' - no issues.", truncate(keywords, 120))}
}

var suspiciousFontKeywords = []string{"helvetica-oblique", "canva", "edit"}

// checkFontConsistency flags editor-artifact fonts and pages whose font set
// diverges sharply from page 1.
func checkFontConsistency(perPageFonts [][]string) models.CheckResult {
	const name = "Font Consistency Check"

	allFonts := map[string]bool{}
	for _, fonts := range perPageFonts {
		for _, f := range fonts {
			allFonts[f] = true
		}
	}
	if len(allFonts) == 0 {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: "No fonts found - document may be image-based."}
	}

	sorted := make([]string, 0, len(allFonts))
	for f := range allFonts {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)

	for _, f := range sorted {
		for _, kw := range suspiciousFontKeywords {
			if strings.Contains(strings.ToLower(f), kw) {
				return models.CheckResult{Check: name, Status: models.CheckFail,
					Details: fmt.Sprintf("Suspicious font detected: '%s'. All fonts: %v", f, sorted)}
			}
		}
	}

	if len(perPageFonts) > 1 {
		page1 := toSet(perPageFonts[0])
		for i, fonts := range perPageFonts[1:] {
			diff := symmetricDifference(page1, toSet(fonts))
			if len(diff) > 3 {
				return models.CheckResult{Check: name, Status: models.CheckWarning,
					Details: fmt.Sprintf("Page %d fonts differ from page 1 by %d fonts. Diff: %v. All fonts: %v",
						i+2, len(diff), diff, sorted)}
			}
		}
	}

	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: fmt.Sprintf("Consistent fonts across %d pages. Fonts: %v", len(perPageFonts), sorted)}
}

// checkPageDimensions renders each page and verifies it meets the minimum
// pixel dimensions. Genuine statements render large; heavily downscaled
// rasters suggest a screenshot-and-reprint.
func checkPageDimensions(path string, pageCount, minWidth, minHeight, dpi int) models.CheckResult {
	const name = "Page Dimension Check"

	var failures []string
	for i := 0; i < pageCount; i++ {
		img, err := pdf.RenderPage(path, i, dpi)
		if err != nil {
			return models.CheckResult{Check: name, Status: models.CheckWarning,
				Details: fmt.Sprintf("Error rendering page %d: %v", i+1, err)}
		}
		b := img.Bounds()
		var reasons []string
		if b.Dy() < minHeight {
			reasons = append(reasons, fmt.Sprintf("height %dpx < min %dpx", b.Dy(), minHeight))
		}
		if b.Dx() < minWidth {
			reasons = append(reasons, fmt.Sprintf("width %dpx < min %dpx", b.Dx(), minWidth))
		}
		if len(reasons) > 0 {
			failures = append(failures, fmt.Sprintf("Page %d: %s", i+1, strings.Join(reasons, ", ")))
		}
	}

	if len(failures) > 0 {
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: strings.Join(failures, " | ")}
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: fmt.Sprintf("All %d pages meet minimum dimensions (%dx%d at %d DPI).",
			pageCount, minWidth, minHeight, dpi)}
}

// pageSharpness renders every page and computes its Laplacian variance.
func pageSharpness(path string, pageCount, dpi int) ([]float64, error) {
	variances := make([]float64, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		img, err := pdf.RenderPage(path, i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		variances = append(variances, round2(pdf.LaplacianVariance(img)))
	}
	return variances, nil
}

// checkPageClarity fails on blurry pages, the signature of a scanned
// printout of an edited document.
func checkPageClarity(variances []float64, threshold float64) models.CheckResult {
	const name = "Page Clarity Check"

	var failures []string
	for i, v := range variances {
		if v < threshold {
			failures = append(failures, fmt.Sprintf("Page %d: sharpness %.1f < threshold %.0f", i+1, v, threshold))
		}
	}
	if len(failures) > 0 {
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: strings.Join(failures, " | ")}
	}

	var parts []string
	for i, v := range variances {
		parts = append(parts, fmt.Sprintf("P%d:%.1f", i+1, v))
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: fmt.Sprintf("All %d pages passed clarity. Sharpness: [%s]", len(variances), strings.Join(parts, ", "))}
}

// checkSharpnessSpread flags page-to-page sharpness variation: a single
// re-rendered page stands out against the rest of the document.
func checkSharpnessSpread(variances []float64, ratio, maxStd float64) models.CheckResult {
	const name = "Sharpness Spread Check"

	if len(variances) < 2 {
		return models.CheckResult{Check: name, Status: models.CheckPass,
			Details: "Only 1 page - spread check not applicable."}
	}

	maxV, minV := variances[0], variances[0]
	for _, v := range variances[1:] {
		maxV = math.Max(maxV, v)
		minV = math.Min(minV, v)
	}
	stdV := round2(stdev(variances))
	detail := fmt.Sprintf("Variances: %v, Max: %.2f, Min: %.2f, StdDev: %.2f", variances, maxV, minV, stdV)

	if minV < ratio*maxV || stdV > maxStd {
		return models.CheckResult{Check: name, Status: models.CheckFail,
			Details: detail + " - Significant variation across pages."}
	}
	return models.CheckResult{Check: name, Status: models.CheckPass,
		Details: detail + " - Consistent across pages."}
}

const visualTamperingPrompt = `You are a document fraud detection AI. Analyze the visual layout and appearance of this bank statement page. Check for signs of tampering such as:
- Inconsistent font styles or sizes within the same section
- Alignment issues or misaligned columns
- Pasted or overlaid content (visible edges or colour mismatches)
- Irregular spacing between rows or columns
- Blurriness or visual artifacts in specific areas (while rest is sharp)
- Signs of image editing (gradient inconsistencies, jpeg artefacts)
- Missing or broken bank logos/headers

Respond ONLY with valid JSON (no markdown fences):
{"status": "pass" or "fail", "details": "brief explanation of findings, pointing out specific areas if suspicious"}`

// checkVisualTampering sends the first page raster through the vision model.
func checkVisualTampering(ctx context.Context, mgr *agent.Manager, path string, dpi int) models.CheckResult {
	const name = "Visual Tampering Check"

	b64, err := pdf.RenderPageBase64(path, 0, dpi)
	if err != nil {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: fmt.Sprintf("Could not run visual check: %v", err)}
	}

	raw, err := mgr.ExecuteVisionPrompt(ctx, "tampering", visualTamperingPrompt, b64, map[string]interface{}{
		"temperature": 0.0,
		"max_tokens":  400,
	})
	if err != nil {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: fmt.Sprintf("Could not run visual check: %v", err)}
	}

	var parsed struct {
		Status  string `json:"status"`
		Details string `json:"details"`
	}
	if err := utils.SmartParse(raw, &parsed); err != nil {
		return models.CheckResult{Check: name, Status: models.CheckWarning,
			Details: truncate(raw, 300)}
	}
	status := parsed.Status
	if status != models.CheckPass && status != models.CheckFail {
		status = models.CheckWarning
	}
	return models.CheckResult{Check: name, Status: status, Details: parsed.Details}
}

func toSet(vals []string) map[string]bool {
	out := make(map[string]bool, len(vals))
	for _, v := range vals {
		out[v] = true
	}
	return out
}

func symmetricDifference(a, b map[string]bool) []string {
	var diff []string
	for v := range a {
		if !b[v] {
			diff = append(diff, v)
		}
	}
	for v := range b {
		if !a[v] {
			diff = append(diff, v)
		}
	}
	sort.Strings(diff)
	return diff
}

func stdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)-1))
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
