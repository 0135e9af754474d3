package timescale

import (
	"context"
	"database/sql"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// Sink stores every propagated reading as a history row. The insert is
// idempotent via the (device_id, probe_id, observed_at) unique key, so
// dispatch retries cannot duplicate rows.
type Sink struct {
	db        *sql.DB
	tableName string
}

func NewSink(db *sql.DB, table string) *Sink {
	if table == "" {
		table = "temperature_readings"
	}
	return &Sink{db: db, tableName: table}
}

func (s *Sink) Name() string { return "timescaledb" }

func (s *Sink) Deliver(ctx context.Context, r *domain.Reading) error {
	query := "INSERT INTO " + s.tableName +
		" (device_id, probe_id, value, unit, observed_at, received_at) VALUES ($1,$2,$3,$4,$5,$6)" +
		" ON CONFLICT (device_id, probe_id, observed_at) DO NOTHING"

	_, err := s.db.ExecContext(ctx, query,
		r.DeviceID,
		r.ProbeID,
		r.Value,
		r.Unit,
		r.ObservedAt,
		r.ReceivedAt,
	)
	return err
}

var _ ports.Sink = (*Sink)(nil)
