package pdf

import (
	"fmt"
	"os"
	"sort"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// Word is a positioned token on a page. Coordinates are in PDF points with
// the origin at the top-left (top < bottom), matching the banding and
// column-bound logic in the extraction engine.
type Word struct {
	X0     float64
	X1     float64
	Top    float64
	Bottom float64
	Text   string
}

// Metadata is the document information dictionary subset the tampering
// checks consume. Date strings keep the raw PDF form D:YYYYMMDDhhmmss±HH'mm'.
type Metadata struct {
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
	Keywords     string
}

// Reader provides read-only access to one PDF document. Safe for concurrent
// use on distinct documents; a single Reader must not be shared across
// goroutines.
type Reader struct {
	path string
	file *os.File
	r    *ledongthuc.Reader
}

// Open opens a PDF for text/position inspection.
func Open(path string) (*Reader, error) {
	f, r, err := ledongthuc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	return &Reader{path: path, file: f, r: r}, nil
}

func (d *Reader) Close() error {
	return d.file.Close()
}

func (d *Reader) Path() string {
	return d.path
}

// PageCount returns the number of pages.
func (d *Reader) PageCount() int {
	return d.r.NumPage()
}

// PageText extracts reading-order plain text for a zero-based page index.
func (d *Reader) PageText(pageIdx int) (string, error) {
	if pageIdx < 0 || pageIdx >= d.r.NumPage() {
		return "", fmt.Errorf("page index %d out of range (0..%d)", pageIdx, d.r.NumPage()-1)
	}
	page := d.r.Page(pageIdx + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", pageIdx, err)
	}
	return text, nil
}

// PageSize returns the media box width and height of a page in points.
func (d *Reader) PageSize(pageIdx int) (width, height float64) {
	page := d.r.Page(pageIdx + 1)
	if page.V.IsNull() {
		return 595, 842 // A4 fallback
	}
	box := page.V.Key("MediaBox")
	if box.Len() < 4 {
		return 595, 842
	}
	width = box.Index(2).Float64() - box.Index(0).Float64()
	height = box.Index(3).Float64() - box.Index(1).Float64()
	if width <= 0 || height <= 0 {
		return 595, 842
	}
	return width, height
}

// PageWords assembles positioned words from the page's glyph runs. Glyphs on
// the same baseline are merged into one word while the horizontal gap stays
// below ~0.6 of the font size, so cell fragments separated by column gutters
// come back as distinct words.
func (d *Reader) PageWords(pageIdx int) ([]Word, error) {
	if pageIdx < 0 || pageIdx >= d.r.NumPage() {
		return nil, fmt.Errorf("page index %d out of range (0..%d)", pageIdx, d.r.NumPage()-1)
	}
	page := d.r.Page(pageIdx + 1)
	if page.V.IsNull() {
		return nil, nil
	}
	_, pageHeight := d.PageSize(pageIdx)

	content := page.Content()
	glyphs := make([]ledongthuc.Text, len(content.Text))
	copy(glyphs, content.Text)

	// Sort by baseline (descending PDF y = top of page first), then x.
	sort.Slice(glyphs, func(i, j int) bool {
		if diff := glyphs[i].Y - glyphs[j].Y; diff > 1.0 || diff < -1.0 {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var words []Word
	var cur *Word
	var curEnd float64
	var curY float64

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			cur.Text = strings.TrimSpace(cur.Text)
			words = append(words, *cur)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		gap := size * 0.6
		if gap < 1.5 {
			gap = 1.5
		}

		sameLine := cur != nil && abs(g.Y-curY) <= 1.0
		contiguous := sameLine && g.X-curEnd <= gap

		if contiguous {
			if g.X-curEnd > size*0.15 {
				cur.Text += " "
			}
			cur.Text += g.S
			if end := g.X + g.W; end > cur.X1 {
				cur.X1 = end
				curEnd = end
			}
			continue
		}

		flush()
		top := pageHeight - g.Y - size
		if top < 0 {
			top = 0
		}
		cur = &Word{
			X0:     g.X,
			X1:     g.X + g.W,
			Top:    top,
			Bottom: pageHeight - g.Y,
			Text:   g.S,
		}
		curEnd = cur.X1
		curY = g.Y
	}
	flush()

	return words, nil
}

// Info returns the document information dictionary.
func (d *Reader) Info() Metadata {
	info := d.r.Trailer().Key("Info")
	if info.IsNull() {
		return Metadata{}
	}
	get := func(key string) string {
		v := info.Key(key)
		if v.IsNull() {
			return ""
		}
		return v.RawString()
	}
	return Metadata{
		Creator:      get("Creator"),
		Producer:     get("Producer"),
		CreationDate: get("CreationDate"),
		ModDate:      get("ModDate"),
		Keywords:     get("Keywords"),
	}
}

// Fonts enumerates base font names per page, with any subset prefix
// (ABCDEF+) stripped.
func (d *Reader) Fonts() [][]string {
	perPage := make([][]string, 0, d.r.NumPage())
	for i := 1; i <= d.r.NumPage(); i++ {
		page := d.r.Page(i)
		seen := map[string]bool{}
		var names []string
		if !page.V.IsNull() {
			fonts := page.V.Key("Resources").Key("Font")
			for _, key := range fonts.Keys() {
				base := fonts.Key(key).Key("BaseFont").Name()
				if base == "" {
					base = key
				}
				if idx := strings.Index(base, "+"); idx >= 0 {
					base = base[idx+1:]
				}
				if base != "" && !seen[base] {
					seen[base] = true
					names = append(names, base)
				}
			}
		}
		sort.Strings(names)
		perPage = append(perPage, names)
	}
	return perPage
}

// IsScanned reports whether the document is image-based: true iff each of
// the first three pages yields fewer than 20 non-whitespace characters.
func (d *Reader) IsScanned() bool {
	pages := d.r.NumPage()
	if pages > 3 {
		pages = 3
	}
	for i := 0; i < pages; i++ {
		text, err := d.PageText(i)
		if err != nil {
			continue
		}
		if len(strings.TrimSpace(text)) > 20 {
			return false
		}
	}
	return true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
