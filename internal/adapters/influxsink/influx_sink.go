package influxsink

import (
	"context"
	"errors"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type Config struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

func (c *Config) ApplyDefaults() {
	if c.Measurement == "" {
		c.Measurement = "temperature_reading"
	}
	if c.Bucket == "" {
		c.Bucket = "grill_stats"
	}
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Token == "" {
		return errors.New("token is required")
	}
	return nil
}

// Sink writes each propagated reading as a point in InfluxDB, the store the
// historical charts query.
type Sink struct {
	writeAPI    api.WriteAPIBlocking
	measurement string
}

func NewSink(writeAPI api.WriteAPIBlocking, measurement string) *Sink {
	if measurement == "" {
		measurement = "temperature_reading"
	}
	return &Sink{writeAPI: writeAPI, measurement: measurement}
}

// Connect builds the client and a blocking write API for the configured
// org/bucket. The returned client must be closed on shutdown.
func Connect(cfg Config) (influxdb2.Client, *Sink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Bucket)
	return client, NewSink(writeAPI, cfg.Measurement), nil
}

func (s *Sink) Name() string { return "influxdb" }

func (s *Sink) Deliver(ctx context.Context, r *domain.Reading) error {
	point := influxdb2.NewPoint(
		s.measurement,
		map[string]string{
			"device_id": r.DeviceID,
			"probe_id":  r.ProbeID,
			"unit":      r.Unit,
		},
		map[string]interface{}{
			"value": r.Value,
		},
		r.ObservedAt,
	)
	return s.writeAPI.WritePoint(ctx, point)
}

var _ ports.Sink = (*Sink)(nil)
