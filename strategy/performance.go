package strategy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Performance is the historical record of one family.
type Performance struct {
	Family    Family
	AvgReturn float64 // fractional, 0.05 is 5%
	Threshold float64 // signal count the aggregator must exceed
}

// Table maps families to their historical performance. A missing family,
// or one with NaN values, has no data and never triggers.
type Table struct {
	byFamily map[Family]Performance
}

// NewTable builds a table from rows. Later rows for a family win.
func NewTable(rows ...Performance) *Table {
	t := &Table{byFamily: make(map[Family]Performance, len(rows))}
	for _, r := range rows {
		t.byFamily[r.Family] = r
	}
	return t
}

// Lookup returns the performance of f; ok is false when there is no usable data.
func (t *Table) Lookup(f Family) (Performance, bool) {
	if t == nil {
		return Performance{}, false
	}
	p, ok := t.byFamily[f]
	if !ok || math.IsNaN(p.AvgReturn) || math.IsNaN(p.Threshold) {
		return Performance{}, false
	}
	return p, true
}

// Len counts families with a row, including ones without usable data.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byFamily)
}

// LoadTable reads the performance CSV. Required columns are Family,
// AvgPctRtn and AvgBuyWarning; strategy_id is accepted and ignored. Empty
// or "nan" cells load as NaN.
func LoadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("read performance header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	fi, okF := col["Family"]
	ri, okR := col["AvgPctRtn"]
	ti, okT := col["AvgBuyWarning"]
	if !okF || !okR || !okT {
		return nil, fmt.Errorf("performance header %v: need Family, AvgPctRtn, AvgBuyWarning", header)
	}

	t := NewTable()
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("performance line %d: %w", line, err)
		}
		fam, err := ParseFamily(strings.TrimSpace(cell(rec, fi)))
		if err != nil {
			return nil, fmt.Errorf("performance line %d: %w", line, err)
		}
		ret, err := parseNumber(cell(rec, ri))
		if err != nil {
			return nil, fmt.Errorf("performance line %d AvgPctRtn: %w", line, err)
		}
		thr, err := parseNumber(cell(rec, ti))
		if err != nil {
			return nil, fmt.Errorf("performance line %d AvgBuyWarning: %w", line, err)
		}
		t.byFamily[fam] = Performance{Family: fam, AvgReturn: ret, Threshold: thr}
	}
	return t, nil
}

// LoadTableFile reads the performance CSV at path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadTable(f)
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
