// Package arrowpipeline serializes backtest data as Apache Arrow IPC
// streams for downstream analysis tooling.
package arrowpipeline

import (
	"bytes"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"qt-backtest/services/engine"
)

// Pipeline converts bar tables and equity curves to and from Arrow IPC.
type Pipeline struct {
	alloc  memory.Allocator
	logger *zap.Logger
}

func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{alloc: memory.NewGoAllocator(), logger: logger}
}

var barSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "timestamp_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "open", Type: arrow.PrimitiveTypes.Float64},
	{Name: "high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
	{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
}, nil)

var equitySchema = arrow.NewSchema([]arrow.Field{
	{Name: "timestamp_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "nav", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// EncodeBars serializes a bar table to an Arrow IPC stream.
func (p *Pipeline) EncodeBars(bars []engine.Bar) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to encode")
	}

	symbols := make([]string, len(bars))
	timestamps := make([]int64, len(bars))
	opens := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		symbols[i] = bar.Symbol
		timestamps[i] = bar.Timestamp.UnixMilli()
		opens[i] = bar.Open
		highs[i] = bar.High
		lows[i] = bar.Low
		closes[i] = bar.Close
		volumes[i] = bar.Volume
	}

	symbolBuilder := array.NewStringBuilder(p.alloc)
	symbolBuilder.AppendValues(symbols, nil)
	tsBuilder := array.NewInt64Builder(p.alloc)
	tsBuilder.AppendValues(timestamps, nil)

	cols := []arrow.Array{symbolBuilder.NewStringArray(), tsBuilder.NewInt64Array()}
	for _, values := range [][]float64{opens, highs, lows, closes, volumes} {
		b := array.NewFloat64Builder(p.alloc)
		b.AppendValues(values, nil)
		cols = append(cols, b.NewFloat64Array())
	}

	record := array.NewRecord(barSchema, cols, int64(len(bars)))
	defer record.Release()

	p.logger.Debug("encoding bar table", zap.Int("rows", len(bars)))
	return writeIPC(barSchema, record)
}

// EncodeEquityCurve serializes a NAV series to an Arrow IPC stream.
func (p *Pipeline) EncodeEquityCurve(curve engine.EquityCurve) ([]byte, error) {
	if len(curve) == 0 {
		return nil, fmt.Errorf("no equity points to encode")
	}

	tsBuilder := array.NewInt64Builder(p.alloc)
	navBuilder := array.NewFloat64Builder(p.alloc)
	for _, pt := range curve {
		tsBuilder.Append(pt.Timestamp.UnixMilli())
		navBuilder.Append(pt.NAV)
	}

	record := array.NewRecord(equitySchema,
		[]arrow.Array{tsBuilder.NewInt64Array(), navBuilder.NewFloat64Array()},
		int64(len(curve)))
	defer record.Release()

	p.logger.Debug("encoding equity curve", zap.Int("points", len(curve)))
	return writeIPC(equitySchema, record)
}

// DecodeEquityCurve reads an IPC stream produced by EncodeEquityCurve.
func (p *Pipeline) DecodeEquityCurve(data []byte) (engine.EquityCurve, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(p.alloc))
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer reader.Release()

	var curve engine.EquityCurve
	for reader.Next() {
		record := reader.Record()
		ts := record.Column(0).(*array.Int64)
		nav := record.Column(1).(*array.Float64)
		for i := 0; i < int(record.NumRows()); i++ {
			curve = append(curve, engine.EquityPoint{
				Timestamp: time.UnixMilli(ts.Value(i)).UTC(),
				NAV:       nav.Value(i),
			})
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read ipc stream: %w", err)
	}
	return curve, nil
}

func writeIPC(schema *arrow.Schema, record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}
