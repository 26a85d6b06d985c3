package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/parquet-go"

	"github.com/luxfi/mempulse/eventlog"
)

// parquetRow is the flat, columnar shape each envelope is projected into
// before writing. Payload is kept as its JSON encoding rather than exploded
// into one column per variant field, since the eight event-kind payloads
// don't share a column set and parquet-go's generic writer needs one fixed
// struct per file.
type parquetRow struct {
	SeqID          uint64 `parquet:"seq_id"`
	SourceID       string `parquet:"source_id"`
	Kind           string `parquet:"kind"`
	PrimaryHash    string `parquet:"primary_hash"`
	IngestTSMonoNS int64  `parquet:"ingest_ts_mono_ns"`
	IngestTSUnixMS int64  `parquet:"ingest_ts_unix_ms"`
	PayloadJSON    string `parquet:"payload_json"`
}

// ParquetSink batches envelopes into row groups written to an underlying
// io.WriteCloser (typically an os.File), grounded on
// original_source/crates/storage/src/backfill.rs's columnar export path.
// github.com/segmentio/parquet-go is a new dependency relative to the
// teacher's go.mod — no pack repo carries a parquet library, and
// backfill.rs/clickhouse_schema.rs name Parquet/columnar export explicitly,
// so it is wired in rather than hand-rolling a columnar encoder.
type ParquetSink struct {
	w *parquet.GenericWriter[parquetRow]
}

// NewParquetSink wraps dst in a parquet row-group writer.
func NewParquetSink(dst io.Writer) *ParquetSink {
	return &ParquetSink{w: parquet.NewGenericWriter[parquetRow](dst)}
}

func (s *ParquetSink) Write(_ context.Context, batch []eventlog.Envelope) error {
	rows := make([]parquetRow, 0, len(batch))
	for _, env := range batch {
		payloadJSON, err := json.Marshal(env.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for parquet export: %w", err)
		}
		rows = append(rows, parquetRow{
			SeqID:          env.SeqID,
			SourceID:       string(env.SourceID),
			Kind:           string(env.Kind),
			PrimaryHash:    env.PrimaryHash.String(),
			IngestTSMonoNS: env.IngestTSMonoNS,
			IngestTSUnixMS: env.IngestTSUnixMS,
			PayloadJSON:    string(payloadJSON),
		})
	}
	if _, err := s.w.Write(rows); err != nil {
		return fmt.Errorf("write parquet row group: %w", err)
	}
	return nil
}

func (s *ParquetSink) Close() error {
	return s.w.Close()
}
