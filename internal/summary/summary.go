// Package summary maintains the per-split score table: one tab-separated
// row per (pair, direction), sorted, with rows replaced on rerun.
package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/valpere/indicmt/internal/textio"
)

var header = []string{"pair", "direction", "chrf"}

type Row struct {
	Pair      string  `json:"pair"`
	Direction string  `json:"direction"`
	ChrF      float64 `json:"chrf"`
}

func (r Row) key() string {
	return r.Pair + "\t" + r.Direction
}

type Table struct {
	rows map[string]Row
}

func New() *Table {
	return &Table{rows: make(map[string]Row)}
}

// Load reads path. A missing file is an empty table.
func Load(path string) (*Table, error) {
	t := New()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = len(header)

	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 1 && rec[0] == header[0] {
			continue
		}
		score, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid score %q", path, line, rec[2])
		}
		t.Upsert(Row{Pair: rec[0], Direction: rec[1], ChrF: score})
	}
	return t, nil
}

// Upsert adds row or replaces the row with the same pair and direction.
func (t *Table) Upsert(row Row) {
	t.rows[row.key()] = row
}

func (t *Table) Get(pair, direction string) (Row, bool) {
	r, ok := t.rows[Row{Pair: pair, Direction: direction}.key()]
	return r, ok
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns all rows sorted by pair, then direction.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Pair != rows[j].Pair {
			return rows[i].Pair < rows[j].Pair
		}
		return rows[i].Direction < rows[j].Direction
	})
	return rows
}

// Write renders the table with a header row and two-decimal scores.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows() {
		if err := cw.Write([]string{r.Pair, r.Direction, strconv.FormatFloat(r.ChrF, 'f', 2, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save replaces path atomically.
func (t *Table) Save(path string) error {
	return textio.WriteFile(path, t.Write)
}

// Update loads path, upserts rows and saves it back.
func Update(path string, rows ...Row) (*Table, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		t.Upsert(r)
	}
	if err := t.Save(path); err != nil {
		return nil, err
	}
	return t, nil
}
