package pdf

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func statementWords() []Word {
	// Three aligned columns (date, description, amount) over four rows.
	return []Word{
		{X0: 40, X1: 80, Top: 100, Bottom: 110, Text: "Date"},
		{X0: 150, X1: 230, Top: 100, Bottom: 110, Text: "Description"},
		{X0: 400, X1: 450, Top: 100, Bottom: 110, Text: "Amount"},

		{X0: 40, X1: 85, Top: 120, Bottom: 130, Text: "01 Jan"},
		{X0: 150, X1: 260, Top: 120, Bottom: 130, Text: "GIRO SALARY"},
		{X0: 402, X1: 450, Top: 120, Bottom: 130, Text: "5,000.00"},

		{X0: 41, X1: 86, Top: 140, Bottom: 150, Text: "02 Jan"},
		{X0: 151, X1: 240, Top: 140, Bottom: 150, Text: "FAST PAYMENT"},
		{X0: 401, X1: 450, Top: 140, Bottom: 150, Text: "120.50"},

		{X0: 40, X1: 85, Top: 160, Bottom: 170, Text: "03 Jan"},
		{X0: 150, X1: 255, Top: 160, Bottom: 170, Text: "NETS PURCHASE"},
		{X0: 400, X1: 450, Top: 160, Bottom: 170, Text: "42.00"},
	}
}

func TestGroupRows(t *testing.T) {
	rows := groupRows(statementWords())
	assert.Len(t, rows, 4)
	for _, row := range rows {
		assert.Len(t, row, 3)
		// Each row sorted left to right.
		for i := 1; i < len(row); i++ {
			assert.Less(t, row[i-1].X0, row[i].X0)
		}
	}
}

func TestGroupRowsMergesJitteredBaselines(t *testing.T) {
	words := []Word{
		{X0: 40, Top: 100.0, Text: "a"},
		{X0: 80, Top: 103.5, Text: "b"}, // within 4pt band
		{X0: 40, Top: 110.0, Text: "c"},
	}
	rows := groupRows(words)
	assert.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 1)
}

func TestInferColumns(t *testing.T) {
	rows := groupRows(statementWords())
	cols := inferColumns(rows)
	assert.Len(t, cols, 3)
	assert.InDelta(t, 40, cols[0], colAlignTol)
	assert.InDelta(t, 150, cols[1], colAlignTol)
	assert.InDelta(t, 400, cols[2], colAlignTol)
}

func TestInferColumnsIgnoresStrayWords(t *testing.T) {
	words := statementWords()
	// One-off footer note should not create a fourth column.
	words = append(words, Word{X0: 300, X1: 360, Top: 200, Bottom: 210, Text: "Page 1 of 2"})
	cols := inferColumns(groupRows(words))
	assert.Len(t, cols, 3)
}

func TestColumnIndex(t *testing.T) {
	cols := []float64{40, 150, 400}
	assert.Equal(t, 0, columnIndex(cols, 43))
	assert.Equal(t, 1, columnIndex(cols, 148))
	assert.Equal(t, 2, columnIndex(cols, 395))
	// Midway values snap to the nearest edge.
	assert.Equal(t, 1, columnIndex(cols, 200))
}

func TestLaplacianVarianceFlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	assert.InDelta(t, 0, LaplacianVariance(img), 0.001)
}

func TestLaplacianVarianceCheckerboard(t *testing.T) {
	// Maximum-frequency content scores far above the blur threshold.
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	assert.Greater(t, LaplacianVariance(img), 500.0)
}

func TestLaplacianVarianceTinyImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Equal(t, 0.0, LaplacianVariance(img))
}
