package tamper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/models"
)

func TestParsePDFDate(t *testing.T) {
	dt := parsePDFDate("D:20250901120530+08'00'")
	if assert.NotNil(t, dt) {
		assert.Equal(t, 2025, dt.Year())
		assert.Equal(t, 5, dt.Minute())
		assert.Equal(t, 30, dt.Second())
	}
	assert.Nil(t, parsePDFDate(""))
	assert.Nil(t, parsePDFDate("garbage"))
}

func TestCheckMetadataDates(t *testing.T) {
	tests := []struct {
		name     string
		creation string
		mod      string
		want     string
	}{
		{"both missing", "", "", models.CheckWarning},
		{"one missing", "D:20250901120000", "", models.CheckWarning},
		{"identical", "D:20250901120000", "D:20250901120000", models.CheckPass},
		{"within 5s", "D:20250901120000", "D:20250901120004", models.CheckPass},
		{"within 60s", "D:20250901120000", "D:20250901120045", models.CheckWarning},
		{"modified much later", "D:20250901120000", "D:20250902120000", models.CheckFail},
		{"modified before creation", "D:20250901120000", "D:20250831120000", models.CheckFail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := checkMetadataDates(pdf.Metadata{CreationDate: tc.creation, ModDate: tc.mod})
			assert.Equal(t, tc.want, got.Status, got.Details)
		})
	}
}

func TestCheckCreatorProducer(t *testing.T) {
	t.Run("canva is an editing tool", func(t *testing.T) {
		got := checkCreatorProducer(pdf.Metadata{Creator: "Canva", Producer: "Canva"})
		assert.Equal(t, models.CheckFail, got.Status)
		assert.Contains(t, got.Details, "canva")
	})
	t.Run("bank generator passes", func(t *testing.T) {
		got := checkCreatorProducer(pdf.Metadata{Creator: "OpenText Exstream", Producer: "Exstream Engine"})
		assert.Equal(t, models.CheckPass, got.Status)
	})
	t.Run("stripped metadata warns", func(t *testing.T) {
		got := checkCreatorProducer(pdf.Metadata{})
		assert.Equal(t, models.CheckWarning, got.Status)
	})
}

func TestCheckKeywords(t *testing.T) {
	assert.Equal(t, models.CheckPass, checkKeywords(pdf.Metadata{}).Status)
	assert.Equal(t, models.CheckPass, checkKeywords(pdf.Metadata{Keywords: "statement, banking"}).Status)

	got := checkKeywords(pdf.Metadata{Keywords: "DAF8a1b2c3d4e5f6a7b8c9d0"})
	assert.Equal(t, models.CheckFail, got.Status)
}

func TestCheckFontConsistency(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		fonts := [][]string{{"ArialMT", "Arial-BoldMT"}, {"ArialMT", "Arial-BoldMT"}}
		assert.Equal(t, models.CheckPass, checkFontConsistency(fonts).Status)
	})
	t.Run("editor font artifact", func(t *testing.T) {
		got := checkFontConsistency([][]string{{"ArialMT", "Helvetica-Oblique"}})
		assert.Equal(t, models.CheckFail, got.Status)
	})
	t.Run("divergent page font set", func(t *testing.T) {
		fonts := [][]string{
			{"ArialMT"},
			{"TimesNewRoman", "Courier", "Verdana", "Georgia"},
		}
		got := checkFontConsistency(fonts)
		assert.Equal(t, models.CheckWarning, got.Status)
		assert.Contains(t, got.Details, "Page 2")
	})
	t.Run("image-only pdf", func(t *testing.T) {
		assert.Equal(t, models.CheckWarning, checkFontConsistency([][]string{{}, {}}).Status)
	})
}

func TestCheckPageClarity(t *testing.T) {
	pass := checkPageClarity([]float64{850.2, 912.5}, 500)
	assert.Equal(t, models.CheckPass, pass.Status)
	assert.Contains(t, pass.Details, "P1:850.2")

	fail := checkPageClarity([]float64{850.2, 120.0}, 500)
	assert.Equal(t, models.CheckFail, fail.Status)
	assert.Contains(t, fail.Details, "Page 2")
}

func TestCheckSharpnessSpread(t *testing.T) {
	t.Run("single page not applicable", func(t *testing.T) {
		assert.Equal(t, models.CheckPass, checkSharpnessSpread([]float64{850}, 0.5, 100).Status)
	})
	t.Run("consistent pages", func(t *testing.T) {
		got := checkSharpnessSpread([]float64{850, 860, 845}, 0.5, 100)
		assert.Equal(t, models.CheckPass, got.Status)
	})
	t.Run("one soft page", func(t *testing.T) {
		got := checkSharpnessSpread([]float64{850, 300}, 0.5, 1e9)
		assert.Equal(t, models.CheckFail, got.Status)
	})
	t.Run("high deviation", func(t *testing.T) {
		got := checkSharpnessSpread([]float64{850, 600}, 0.1, 100)
		assert.Equal(t, models.CheckFail, got.Status)
	})
}

func TestComputeRisk(t *testing.T) {
	mk := func(statuses ...string) []models.CheckResult {
		out := make([]models.CheckResult, len(statuses))
		for i, s := range statuses {
			out[i] = models.CheckResult{Check: "Check", Status: s}
		}
		return out
	}

	tests := []struct {
		name      string
		checks    []models.CheckResult
		wantRisk  string
		wantScore int
	}{
		{"all pass", mk("pass", "pass", "pass"), models.RiskLow, 0},
		{"one warning", mk("pass", "warning"), models.RiskLow, 1},
		{"three warnings", mk("warning", "warning", "warning"), models.RiskMedium, 3},
		{"one fail", mk("fail", "pass"), models.RiskMedium, 3},
		{"two fails", mk("fail", "fail"), models.RiskHigh, 6},
		{"four fails", mk("fail", "fail", "fail", "fail"), models.RiskCritical, 12},
		{"fail plus warning", mk("fail", "warning", "pass"), models.RiskMedium, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			risk, score, summary := computeRisk(tc.checks)
			assert.Equal(t, tc.wantRisk, risk)
			assert.Equal(t, tc.wantScore, score)
			assert.NotEmpty(t, summary)
		})
	}
}

// A Canva-generated statement trips exactly one check and lands on medium.
func TestCanvaDocumentScoresMedium(t *testing.T) {
	checks := []models.CheckResult{
		checkMetadataDates(pdf.Metadata{CreationDate: "D:20250901120000", ModDate: "D:20250901120000"}),
		checkCreatorProducer(pdf.Metadata{Creator: "Canva", Producer: "Canva"}),
		checkKeywords(pdf.Metadata{}),
		checkFontConsistency([][]string{{"ArialMT"}}),
		checkPageClarity([]float64{900}, 500),
		checkSharpnessSpread([]float64{900}, 0.5, 100),
	}

	risk, score, summary := computeRisk(checks)
	assert.Equal(t, models.RiskMedium, risk)
	assert.Equal(t, 3, score)
	assert.True(t, strings.Contains(summary, "Metadata Creator/Producer Check"), summary)
}

func TestFailCountReadsStoredNumbers(t *testing.T) {
	assert.Equal(t, 2, failCount(map[string]interface{}{"fail_count": 2}))
	assert.Equal(t, 2, failCount(map[string]interface{}{"fail_count": float64(2)}))
	assert.Equal(t, 0, failCount(map[string]interface{}{}))
}

func TestStdev(t *testing.T) {
	assert.InDelta(t, 0, stdev([]float64{5, 5, 5}), 0.001)
	assert.InDelta(t, 1, stdev([]float64{1, 2, 3}), 0.001)
	assert.Equal(t, 0.0, stdev([]float64{42}))
}
