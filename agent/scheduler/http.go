package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/httpx"
	"github.com/rs/zerolog/log"
)

// HTTPClient talks to the dentist scheduler REST API:
// GET /availability lists open slots, POST /schedule books one.
type HTTPClient struct {
	baseURL string
	http    *httpx.Client
}

type scheduleRequest struct {
	Time string `json:"time"`
}

func NewHTTPClient(cfg Config, opts ...httpx.Option) (*HTTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: scheduler url: %v", contractx.ErrConfiguration, err)
	}

	opts = append([]httpx.Option{httpx.WithBreaker(cfg.Breaker)}, opts...)
	return &HTTPClient{
		baseURL: baseURL,
		http:    httpx.New("scheduler", cfg.Timeout, opts...),
	}, nil
}

func (c *HTTPClient) GetAvailability(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/availability", nil)
	if err != nil {
		return "", fmt.Errorf("%w: build availability request: %v", contractx.ErrSchedulerService, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrSchedulerService, err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: availability http status=%d body=%s",
			contractx.ErrSchedulerService, resp.StatusCode, string(resp.Body))
	}

	var slots []string
	if err := json.Unmarshal(resp.Body, &slots); err != nil {
		return "", fmt.Errorf("%w: %w: decode availability: %v", contractx.ErrSchedulerService, contractx.ErrSchemaViolation, err)
	}
	return renderAvailability(contractx.NormalizeSpans(slots)), nil
}

// BookSlot passes slot through untouched; the API decides whether it is a
// valid time. A 4xx answer is a rejection, not a failure.
func (c *HTTPClient) BookSlot(ctx context.Context, slot string) (string, error) {
	payload, err := json.Marshal(scheduleRequest{Time: slot})
	if err != nil {
		return "", fmt.Errorf("%w: marshal schedule request: %v", contractx.ErrSchedulerService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/schedule", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build schedule request: %v", contractx.ErrSchedulerService, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrSchedulerService, err)
	}

	switch {
	case resp.OK():
		return renderBooked(slot), nil
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		log.Info().
			Int("status", resp.StatusCode).
			Str("slot", slot).
			Msg("scheduler rejected slot")
		return renderRejected(slot), nil
	default:
		return "", fmt.Errorf("%w: schedule http status=%d body=%s",
			contractx.ErrSchedulerService, resp.StatusCode, string(resp.Body))
	}
}
