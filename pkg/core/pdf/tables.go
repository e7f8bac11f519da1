package pdf

import "sort"

// Table is a grid of cell strings reconstructed from word positions. Rows
// keep page order; empty cells stay as "".
type Table [][]string

const (
	rowBandTolerance = 4.0 // words within 4pt vertically share a row
	colAlignTol      = 6.0 // x0 values within 6pt snap to one column
)

// PageTables reconstructs tabular regions on a page from word alignment.
// Bank statements with ruled tables produce cells whose left edges align
// across rows; clustering x0 values that recur on at least a third of the
// rows recovers the column grid without needing the ruling lines.
func (d *Reader) PageTables(pageIdx int) ([]Table, error) {
	words, err := d.PageWords(pageIdx)
	if err != nil {
		return nil, err
	}
	rows := groupRows(words)
	if len(rows) < 2 {
		return nil, nil
	}

	cols := inferColumns(rows)
	if len(cols) < 3 {
		return nil, nil
	}

	table := make(Table, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for _, w := range row {
			idx := columnIndex(cols, w.X0)
			if cells[idx] != "" {
				cells[idx] += " "
			}
			cells[idx] += w.Text
		}
		table = append(table, cells)
	}
	return []Table{table}, nil
}

// groupRows bands words by vertical position and sorts each band by x.
func groupRows(words []Word) [][]Word {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool {
		if abs(sorted[i].Top-sorted[j].Top) > rowBandTolerance {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var rows [][]Word
	var cur []Word
	curTop := sorted[0].Top
	for _, w := range sorted {
		if abs(w.Top-curTop) > rowBandTolerance {
			rows = append(rows, cur)
			cur = nil
			curTop = w.Top
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}
	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })
	}
	return rows
}

// inferColumns clusters left edges that recur across rows. A cluster counts
// as a column when at least a third of rows have a word starting there.
func inferColumns(rows [][]Word) []float64 {
	type cluster struct {
		sum   float64
		count int
	}
	var clusters []*cluster

	for _, row := range rows {
		for _, w := range row {
			matched := false
			for _, c := range clusters {
				if abs(c.sum/float64(c.count)-w.X0) <= colAlignTol {
					c.sum += w.X0
					c.count++
					matched = true
					break
				}
			}
			if !matched {
				clusters = append(clusters, &cluster{sum: w.X0, count: 1})
			}
		}
	}

	minCount := len(rows) / 3
	if minCount < 2 {
		minCount = 2
	}
	var cols []float64
	for _, c := range clusters {
		if c.count >= minCount {
			cols = append(cols, c.sum/float64(c.count))
		}
	}
	sort.Float64s(cols)
	return cols
}

// columnIndex assigns a word's left edge to the nearest grid column.
func columnIndex(cols []float64, x0 float64) int {
	best := 0
	bestDist := abs(cols[0] - x0)
	for i := 1; i < len(cols); i++ {
		if d := abs(cols[i] - x0); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
