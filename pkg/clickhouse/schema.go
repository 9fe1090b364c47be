package clickhouse

import "fmt"

// SweepSchema returns the DDL for the result table and the candle tables the
// series source reads.
func SweepSchema(database string) []string {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sweep_results (
    run_id        String,
    created_at    DateTime64(3) DEFAULT now64(3),
    interval_min  UInt64,
    start_time    String,
    end_time      String,
    sharpe        Float64,
    max_drawup    Float64,
    max_drawdown  Float64,
    n_obs         UInt32
) ENGINE = MergeTree
ORDER BY (run_id, interval_min, start_time)`, database),
	}
	for _, tf := range []string{"1s", "1m", "5m"} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles_%s (
    symbol  LowCardinality(String),
    bucket  DateTime,
    open    Float64,
    high    Float64,
    low     Float64,
    close   Float64,
    volume  Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, bucket)`, database, tf))
	}
	return stmts
}
