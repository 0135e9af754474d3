package thermoworks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lordmuffin/grill-stats-sub007/internal/domain"
	"github.com/lordmuffin/grill-stats-sub007/internal/ports"
)

// Config captures the details required to poll the ThermoWorks cloud API.
type Config struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_min"`
	DefaultUnit      string `yaml:"default_unit"`
	UserAgent        string `yaml:"user_agent"`
	DisableKeepAlive bool   `yaml:"disable_keep_alive"`
}

func (c *Config) ApplyDefaults() {
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = 30
	}
	if c.DefaultUnit == "" {
		c.DefaultUnit = "F"
	}
	if c.UserAgent == "" {
		c.UserAgent = "grill-bridge"
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}

// Client polls current readings for all devices registered to the API key.
// It owns the client-side request ceiling; 429 backoff pacing between polls
// belongs to the poll loop.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *rate.Limiter
	obs     ports.Observability
	now     func() time.Time
}

func NewClient(cfg Config, obs ports.Observability) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport
	if cfg.DisableKeepAlive {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DisableKeepAlives = true
		transport = t
	}

	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60.0), 1),
		obs:     obs,
		now:     time.Now,
	}, nil
}

func (c *Client) Name() string { return "thermoworks" }

// wireReading mirrors the upstream payload. Entries that fail validation are
// dropped and counted, never fatal for the whole poll.
type wireReading struct {
	DeviceID   string  `json:"device_id"`
	ProbeID    string  `json:"probe_id"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	ObservedAt string  `json:"observed_at"`
}

type wireResponse struct {
	Readings []wireReading `json:"readings"`
}

func (c *Client) Poll(ctx context.Context) ([]*domain.Reading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v1/readings", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ports.ErrRateLimited, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ports.ErrUnavailable, resp.StatusCode)
	}

	var body wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrMalformedResponse, err)
	}

	received := c.now().UTC()
	out := make([]*domain.Reading, 0, len(body.Readings))
	for _, w := range body.Readings {
		r, err := c.convert(w, received)
		if err != nil {
			if c.obs != nil {
				c.obs.IncCounter("grillstats_readings_malformed_total", 1)
				c.obs.LogError("reading_malformed", err)
			}
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) convert(w wireReading, received time.Time) (*domain.Reading, error) {
	if w.DeviceID == "" || w.ProbeID == "" {
		return nil, fmt.Errorf("reading missing device/probe id: %+v", w)
	}
	observed, err := time.Parse(time.RFC3339, w.ObservedAt)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s bad timestamp %q: %w", w.DeviceID, w.ProbeID, w.ObservedAt, err)
	}
	unit := w.Unit
	if unit == "" {
		unit = c.cfg.DefaultUnit
	}
	return &domain.Reading{
		DeviceID:   w.DeviceID,
		ProbeID:    w.ProbeID,
		Value:      w.Value,
		Unit:       unit,
		ObservedAt: observed.UTC(),
		ReceivedAt: received,
	}, nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
}

var _ ports.Source = (*Client)(nil)
