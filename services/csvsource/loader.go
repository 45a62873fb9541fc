// Package csvsource loads OHLCV bar tables from CSV files. Files are
// expected as timestamp_ms,open,high,low,close,volume with an optional
// header; UTF-16 files and BOMs from spreadsheet exports are tolerated.
package csvsource

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"qt-backtest/services/engine"
)

// Options identify the instrument the file describes.
type Options struct {
	Symbol   string
	Interval string
	Venue    string
}

// Load parses path into a sorted, deduplicated bar table. Malformed rows
// are counted and skipped rather than failing the load.
func Load(path string, opts Options, logger *zap.Logger) ([]engine.Bar, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(decoded(file))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var bars []engine.Bar
	skipped := 0
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if len(rec) < 5 {
			skipped++
			continue
		}

		tsField := strings.TrimPrefix(strings.TrimSpace(rec[0]), "\uFEFF")
		tsMs, err := strconv.ParseInt(tsField, 10, 64)
		if err != nil {
			skipped++
			continue
		}
		prices, ok := parsePrices(rec[1:])
		if !ok {
			skipped++
			continue
		}

		bars = append(bars, engine.Bar{
			Timestamp: time.UnixMilli(tsMs).UTC(),
			Symbol:    opts.Symbol,
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    prices[4],
			Interval:  opts.Interval,
			Venue:     opts.Venue,
		})
	}

	bars = sortDedupe(bars)
	logger.Info("parsed csv",
		zap.String("path", path),
		zap.String("symbol", opts.Symbol),
		zap.Int("bars", len(bars)),
		zap.Int("skipped_rows", skipped))
	return bars, nil
}

// parsePrices validates open/high/low/close/volume through decimal before
// converting, so malformed numbers reject the row instead of silently
// becoming zeros. A missing or malformed volume defaults to zero.
func parsePrices(fields []string) ([5]float64, bool) {
	var out [5]float64
	for i := 0; i < 4; i++ {
		d, err := decimal.NewFromString(strings.TrimSpace(fields[i]))
		if err != nil {
			return out, false
		}
		out[i] = d.InexactFloat64()
	}
	if len(fields) > 4 {
		if d, err := decimal.NewFromString(strings.TrimSpace(fields[4])); err == nil {
			out[4] = d.InexactFloat64()
		}
	}
	return out, true
}

// sortDedupe orders bars by timestamp and keeps the last row seen for a
// duplicated timestamp.
func sortDedupe(bars []engine.Bar) []engine.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	out := bars[:0]
	for _, bar := range bars {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bar.Timestamp) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out
}

// decoded wraps the file with a UTF-16 decoder when a UTF-16 BOM leads
// the stream.
func decoded(file *os.File) io.Reader {
	br := bufio.NewReader(file)
	head, err := br.Peek(2)
	if err == nil && len(head) == 2 &&
		((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	}
	return br
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(rec[0]), "\uFEFF"))
	return strings.HasPrefix(f, "time") || strings.HasPrefix(f, "open_time") || f == "date"
}
