package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const maxResponseSizeBytes = 2 << 20

var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig is shared by every outbound REST client.
type BreakerConfig struct {
	MaxRequests  uint32        `split_words:"true" default:"3"`
	Interval     time.Duration `split_words:"true" default:"60s"`
	OpenTimeout  time.Duration `split_words:"true" default:"30s"`
	MinRequests  uint32        `split_words:"true" default:"5"`
	FailureRatio float64       `split_words:"true" default:"0.6"`
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// StatusError is returned for 5xx responses, which also count against the breaker.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status=%d body=%s", e.StatusCode, e.Body)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBreaker overrides the breaker settings. A zero config keeps the defaults.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if cfg == (BreakerConfig{}) {
			return
		}
		c.breakerCfg = cfg
	}
}

type Client struct {
	name       string
	httpClient *http.Client
	breakerCfg BreakerConfig
	breaker    *gobreaker.CircuitBreaker
}

func New(name string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		name:       strings.TrimSpace(name),
		httpClient: &http.Client{Timeout: timeout},
		breakerCfg: DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	cfg := c.breakerCfg
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Do executes req and reads the whole body. Transport errors and 5xx
// responses are failures; other statuses are returned to the caller.
func (c *Client) Do(req *http.Request) (*Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute %s request: %w", c.name, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", c.name, err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       raw,
		}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.name, err)
		}
		return nil, err
	}
	return result.(*Response), nil
}

func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
