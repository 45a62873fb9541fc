// Package proto defines the request and response types of the backtest
// HTTP API.
package proto

// BacktestRequest asks the service to run one strategy over a stored
// data range. Times are unix milliseconds.
type BacktestRequest struct {
	Strategy    string             `json:"strategy"`
	Symbols     []string           `json:"symbols"`
	Timeframe   string             `json:"timeframe"`
	StartTime   int64              `json:"start_time"`
	EndTime     int64              `json:"end_time"`
	Settings    map[string]float64 `json:"settings,omitempty"`
	InitialCash float64            `json:"initial_cash,omitempty"`
}

// EquityPoint is one NAV observation of the run.
type EquityPoint struct {
	TimestampMs int64   `json:"timestamp_ms"`
	NAV         float64 `json:"nav"`
}

// RunManifest records what produced a result, for reproducing it later.
type RunManifest struct {
	JobID         string             `json:"job_id"`
	Strategy      string             `json:"strategy"`
	Symbols       []string           `json:"symbols"`
	Timeframe     string             `json:"timeframe"`
	StartTime     int64              `json:"start_time"`
	EndTime       int64              `json:"end_time"`
	Settings      map[string]float64 `json:"settings,omitempty"`
	InitialCash   float64            `json:"initial_cash"`
	EngineVersion string             `json:"engine_version"`
	CreatedAtMs   int64              `json:"created_at_ms"`
}

// BacktestResponse carries the run result.
type BacktestResponse struct {
	JobID       string             `json:"job_id"`
	Status      string             `json:"status"`
	Summary     map[string]float64 `json:"summary,omitempty"`
	EquityCurve []EquityPoint      `json:"equity_curve,omitempty"`
	Manifest    *RunManifest       `json:"manifest,omitempty"`
	Error       string             `json:"error,omitempty"`
}
