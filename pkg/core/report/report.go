package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"

	"statement_analysis/pkg/core/utils"
	"statement_analysis/pkg/models"
)

const abstractLimit = 280

// Report is the rendered form of an insights narrative.
type Report struct {
	HTML     string `json:"html"`
	Abstract string `json:"abstract"`
}

// FromInsights renders a completed insights result into sanitised HTML plus
// a plain-text abstract.
func FromInsights(res *models.AgentResult) (*Report, error) {
	md, err := buildMarkdown(res)
	if err != nil {
		return nil, err
	}
	return Render(md)
}

// Render converts markdown to HTML and strips active content.
func Render(markdown string) (*Report, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(utils.CleanMarkdown(markdown)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML: %w", err)
	}
	doc.Find("script, style, iframe, object, embed, form").Remove()

	html, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialise report: %w", err)
	}

	return &Report{
		HTML:     strings.TrimSpace(html),
		Abstract: abstract(doc),
	}, nil
}

// abstract flattens the document text into one line, capped at a readable
// preview length on a word boundary.
func abstract(doc *goquery.Document) string {
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(text) <= abstractLimit {
		return text
	}
	cut := strings.LastIndex(text[:abstractLimit], " ")
	if cut <= 0 {
		cut = abstractLimit
	}
	return text[:cut] + "..."
}

// buildMarkdown composes the report body from the structured narrative the
// insights agent stored.
func buildMarkdown(res *models.AgentResult) (string, error) {
	if res == nil || res.Status != models.AgentStatusCompleted {
		return "", fmt.Errorf("insights result is not available")
	}
	narrative, ok := res.Results["narrative"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("insights result has no narrative")
	}

	var b strings.Builder
	b.WriteString("# Financial Insights Report\n\n")

	if s := asString(narrative["executive_summary"]); s != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(s + "\n\n")
	}
	if s := asString(narrative["key_strengths"]); s != "" {
		b.WriteString("## Key Strengths\n\n")
		b.WriteString(s + "\n\n")
	}
	if s := asString(narrative["key_concerns"]); s != "" {
		b.WriteString("## Key Concerns\n\n")
		b.WriteString(s + "\n\n")
	}
	if s := asString(narrative["trend_analysis"]); s != "" {
		b.WriteString("## Trend Analysis\n\n")
		b.WriteString(s + "\n\n")
	}

	if recs, ok := narrative["recommendations"].([]interface{}); ok && len(recs) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range recs {
			if s := asString(rec); s != "" {
				b.WriteString("- " + s + "\n")
			}
		}
		b.WriteString("\n")
	}

	if health, ok := res.Results["business_health"].(map[string]interface{}); ok {
		if assessment := asString(health["assessment"]); assessment != "" {
			b.WriteString(fmt.Sprintf("## Business Health\n\n%s\n\n", assessment))
		}
	}

	b.WriteString(fmt.Sprintf("---\n\nRisk level: **%s**\n", res.RiskLevel))
	return b.String(), nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
