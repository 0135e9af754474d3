package timescale

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
)

func TestTimescaleSinkDeliver(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewSink(db, "temperature_readings")
	observed := time.Now().UTC()
	received := observed.Add(2 * time.Second)

	reading := &domain.Reading{
		DeviceID:   "grill-1",
		ProbeID:    "probe-1",
		Value:      225.5,
		Unit:       "F",
		ObservedAt: observed,
		ReceivedAt: received,
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO temperature_readings (device_id, probe_id, value, unit, observed_at, received_at) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (device_id, probe_id, observed_at) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("grill-1", "probe-1", 225.5, "F", observed, received).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Deliver(context.Background(), reading); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewSink(db, "")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
	if sink.tableName != "temperature_readings" {
		t.Fatalf("expected default table, got %s", sink.tableName)
	}
}
