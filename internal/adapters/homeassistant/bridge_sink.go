package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

type Config struct {
	BaseURL      string `yaml:"base_url"`
	Token        string `yaml:"token"`
	EntityPrefix string `yaml:"entity_prefix"`
}

func (c *Config) ApplyDefaults() {
	if c.EntityPrefix == "" {
		c.EntityPrefix = "grill"
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.Token == "" {
		return errors.New("token is required")
	}
	return nil
}

// Sink pushes accepted readings into Home Assistant as sensor state updates.
// Auth and entity errors are permanent; everything else is retried.
type Sink struct {
	cfg   Config
	httpc *http.Client
}

func NewSink(cfg Config) (*Sink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		cfg:   cfg,
		httpc: &http.Client{},
	}, nil
}

func (s *Sink) Name() string { return "homeassistant" }

type stateBody struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (s *Sink) Deliver(ctx context.Context, r *domain.Reading) error {
	entity := s.entityID(r)
	body := stateBody{
		State: strconv.FormatFloat(r.Value, 'f', 1, 64),
		Attributes: map[string]any{
			"unit_of_measurement": unitSymbol(r.Unit),
			"device_id":           r.DeviceID,
			"probe_id":            r.ProbeID,
			"observed_at":         r.ObservedAt.Format(time.RFC3339),
			"friendly_name":       fmt.Sprintf("%s %s temperature", r.DeviceID, r.ProbeID),
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.Permanent(err)
	}

	url := fmt.Sprintf("%s/api/states/%s", s.cfg.BaseURL, entity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ports.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadRequest:
		return ports.Permanent(fmt.Errorf("home assistant rejected %s: status %d", entity, resp.StatusCode))
	default:
		return fmt.Errorf("home assistant push %s: status %d", entity, resp.StatusCode)
	}
}

func (s *Sink) entityID(r *domain.Reading) string {
	return fmt.Sprintf("sensor.%s_%s_%s", s.cfg.EntityPrefix, sanitize(r.DeviceID), sanitize(r.ProbeID))
}

// entity ids allow only lowercase alphanumerics and underscores
func sanitize(part string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(part) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func unitSymbol(unit string) string {
	switch strings.ToUpper(unit) {
	case "C", "°C", "CELSIUS":
		return "°C"
	default:
		return "°F"
	}
}

var _ ports.Sink = (*Sink)(nil)
