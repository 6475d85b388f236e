package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// timestamp layouts accepted in bar files, tried in order
var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"20060102 150405",
	time.DateOnly,
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, Eastern)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadBarsCSV parses bars from delimited text with a header row naming at
// least time, open, high, low, close and volume columns. A ticker column is
// optional; when absent every bar gets the ticker argument.
func ReadBarsCSV(r io.Reader, ticker string) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := func(names ...string) int {
		for _, n := range names {
			if i, ok := col[n]; ok {
				return i
			}
		}
		return -1
	}
	ti := idx("time", "timestamp", "datetime", "tradedatetime", "tradedate", "t")
	oi := idx("open", "o")
	hi := idx("high", "h")
	li := idx("low", "l")
	ci := idx("close", "adjclose", "c")
	vi := idx("volume", "v")
	ki := idx("ticker", "symbol")
	if ti < 0 || oi < 0 || hi < 0 || li < 0 || ci < 0 || vi < 0 {
		return nil, fmt.Errorf("header %v is missing a required column", header)
	}

	var bars []Bar
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b := Bar{Ticker: ticker}
		if ki >= 0 && ki < len(rec) && rec[ki] != "" {
			b.Ticker = strings.ToUpper(strings.TrimSpace(rec[ki]))
		}
		if b.Time, err = parseTime(field(rec, ti)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vals := make([]float64, 5)
		for j, k := range []int{oi, hi, li, ci, vi} {
			if vals[j], err = strconv.ParseFloat(strings.TrimSpace(field(rec, k)), 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		b.Open, b.High, b.Low, b.Close, b.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]
		bars = append(bars, b)
	}
	return bars, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// LoadBarsFile reads a bar file from disk. See ReadBarsCSV.
func LoadBarsFile(path, ticker string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBarsCSV(f, ticker)
}

// GroupByTicker splits mixed bars into per-ticker series sorted by time.
// Sorting here is only for files; the indicator engine still rejects
// unsorted input.
func GroupByTicker(bars []Bar) map[string][]Bar {
	out := make(map[string][]Bar)
	for _, b := range bars {
		out[b.Ticker] = append(out[b.Ticker], b)
	}
	for _, series := range out {
		sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	}
	return out
}
