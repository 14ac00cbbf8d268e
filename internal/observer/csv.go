// Package observer loads bar histories and runs indicator calculations.
package observer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-ta/internal/types"
)

// LoadCSV reads bars for symbol from a CSV file.
// It returns the parsed bars and the number of rows skipped as malformed.
func LoadCSV(path, symbol string) (types.Bars, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	bars, skipped, err := ParseCSV(file, symbol)
	if err != nil {
		return nil, skipped, fmt.Errorf("parse csv: %w", err)
	}
	return bars, skipped, nil
}

// ParseCSV parses bars from a CSV reader.
//
// Format: timestamp,open,high,low,close[,volume], with an optional header
// row. Timestamps may be Unix seconds or one of several date layouts.
// Malformed rows are skipped and counted rather than failing the load.
// An empty symbol fails with types.ErrInvalidSymbol before anything is read.
func ParseCSV(r io.Reader, symbol string) (types.Bars, int, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, 0, fmt.Errorf("%w: symbol is required", types.ErrInvalidSymbol)
	}

	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var bars types.Bars
	skipped := 0
	lineNum := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", lineNum, err)
		}

		if lineNum == 1 && isHeader(record) {
			continue
		}

		if len(record) < 5 {
			skipped++
			continue
		}

		bar, err := parseRecord(record, symbol)
		if err != nil {
			skipped++
			continue
		}

		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, skipped, types.ErrDataUnavailable
	}

	return bars, skipped, nil
}

// parseRecord parses a single CSV record into a Bar.
func parseRecord(record []string, symbol string) (types.Bar, error) {
	bar := types.Bar{Symbol: symbol}

	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return bar, fmt.Errorf("parse timestamp: %w", err)
	}
	bar.Timestamp = ts

	fields := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
	}
	for i, f := range fields {
		v, err := decimal.NewFromString(strings.TrimSpace(record[i+1]))
		if err != nil {
			return bar, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	// Volume is optional.
	if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
		vol, err := decimal.NewFromString(strings.TrimSpace(record[5]))
		if err != nil {
			return bar, fmt.Errorf("parse volume: %w", err)
		}
		bar.Volume = vol
	}

	return bar, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// parseTimestamp tries Unix seconds, then each known layout.
func parseTimestamp(s string) (time.Time, error) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unknown timestamp format: %s", s)
}

// isHeader checks if a record looks like a header row.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(record[0])) {
	case "timestamp", "time", "date", "datetime":
		return true
	}
	return false
}
