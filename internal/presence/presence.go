// Package presence reads the polling-station turnout exports published by the
// electoral authority. Each row is one polling station; columns are addressed
// by header name because the export layout changes between releases.
package presence

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "election-insights/pkg/errors"
)

// Column names of the presence export.
const (
	ColCounty        = "Judet"
	ColTown          = "Localitate"
	ColStationName   = "Nume sectie de votare"
	ColStationNumber = "Nr sectie de votare"
	ColEnvironment   = "Mediu" // "U" urban, "R" rural
	ColRegistered    = "Înscriși pe liste permanente"
	ColPermanentList = "LP" // votes cast on the permanent lists
	ColTotalVoters   = "LT" // total votes cast
)

// AgeColumns lists the ten gender/age columns in models.Buckets order.
var AgeColumns = [10]string{
	"Barbati 18-24", "Barbati 25-34", "Barbati 35-44", "Barbati 45-64", "Barbati 65+",
	"Femei 18-24", "Femei 25-34", "Femei 35-44", "Femei 45-64", "Femei 65+",
}

const bom = "\ufeff"

// Table is a parsed presence file.
type Table struct {
	Header []string
	Rows   []Row
	index  map[string]int
}

// Row is one data line. Cells beyond the header are ignored and missing
// trailing cells read as empty.
type Row struct {
	t     *Table
	cells []string
}

// Read parses CSV from r. Lines starting with "/" are comments, rows may be
// ragged and a UTF-8 byte order mark on the header is dropped.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '/'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty presence file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &Table{Header: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.TrimSpace(h)
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+2, err)
		}
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, Row{t: t, cells: rec})
	}
	return t, nil
}

// ReadFile opens and parses path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFound("presence.ReadFile", "presence file not found", err)
		}
		return nil, apperrors.NewData("presence.ReadFile", path, "cannot open presence file", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, apperrors.NewData("presence.ReadFile", path, "cannot parse presence file", err)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Has reports whether every column exists.
func (t *Table) Has(cols ...string) bool {
	return len(t.Missing(cols...)) == 0
}

// Missing returns the columns absent from the header, in argument order.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// String returns the raw cell for col, or "" when the column or cell is absent.
func (r Row) String(col string) string {
	i, ok := r.t.index[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Float parses col leniently: blanks, junk and non-finite values read as 0.
func (r Row) Float(col string) float64 {
	s := strings.TrimSpace(r.String(col))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int is Float rounded to the nearest integer.
func (r Row) Int(col string) int {
	return int(math.Round(r.Float(col)))
}
