package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/httpx"
)

// LUISClient classifies utterances with a LUIS v3 prediction endpoint.
type LUISClient struct {
	endpoint string
	appID    string
	apiKey   string
	slot     string
	http     *httpx.Client
}

type luisResponse struct {
	Query      string `json:"query"`
	Prediction struct {
		TopIntent string `json:"topIntent"`
		Intents   map[string]struct {
			Score float64 `json:"score"`
		} `json:"intents"`
		Entities luisEntities `json:"entities"`
	} `json:"prediction"`
}

type luisEntities struct {
	Slot     json.RawMessage `json:"slot"`
	Instance struct {
		Slot []struct {
			Text string `json:"text"`
		} `json:"slot"`
	} `json:"$instance"`
}

func NewLUISClient(cfg Config, opts ...httpx.Option) (*LUISClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("%w: classifier endpoint: %v", contractx.ErrConfiguration, err)
	}

	opts = append([]httpx.Option{httpx.WithBreaker(cfg.Breaker)}, opts...)
	return &LUISClient{
		endpoint: endpoint,
		appID:    strings.TrimSpace(cfg.AppID),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		slot:     strings.TrimSpace(cfg.Slot),
		http:     httpx.New("luis", cfg.Timeout, opts...),
	}, nil
}

func (c *LUISClient) Classify(ctx context.Context, utt contractx.Utterance) (contractx.Classification, error) {
	q := url.Values{}
	q.Set("subscription-key", c.apiKey)
	q.Set("verbose", "true")
	q.Set("show-all-intents", "true")
	q.Set("query", utt.Text)

	endpoint := fmt.Sprintf("%s/luis/prediction/v3.0/apps/%s/slots/%s/predict?%s",
		c.endpoint, url.PathEscape(c.appID), url.PathEscape(c.slot), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: build luis request: %v", contractx.ErrClassificationService, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %w", contractx.ErrClassificationService, err)
	}
	if !resp.OK() {
		return contractx.Classification{}, fmt.Errorf("%w: luis http status=%d body=%s",
			contractx.ErrClassificationService, resp.StatusCode, string(resp.Body))
	}

	var parsed luisResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %w: decode luis response: %v",
			contractx.ErrClassificationService, contractx.ErrSchemaViolation, err)
	}

	out := toClassification(parsed)
	if err := out.Validate(); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %w", contractx.ErrClassificationService, err)
	}
	return out, nil
}

func toClassification(in luisResponse) contractx.Classification {
	scores := make(map[contractx.Intent]float64, len(in.Prediction.Intents))
	for name, v := range in.Prediction.Intents {
		scores[contractx.Intent(name)] = v.Score
	}

	return contractx.Classification{
		TopIntent: contractx.Intent(strings.TrimSpace(in.Prediction.TopIntent)),
		Scores:    scores,
		Entities:  contractx.Entities{Slot: slotSpans(in.Prediction.Entities)},
	}
}

// slotSpans prefers the verbatim $instance text. The resolved slot values
// are only used when the service did not return instance metadata.
func slotSpans(e luisEntities) []string {
	if len(e.Instance.Slot) > 0 {
		spans := make([]string, 0, len(e.Instance.Slot))
		for _, inst := range e.Instance.Slot {
			spans = append(spans, inst.Text)
		}
		return contractx.NormalizeSpans(spans)
	}

	var plain []string
	if len(e.Slot) > 0 && json.Unmarshal(e.Slot, &plain) == nil {
		return contractx.NormalizeSpans(plain)
	}
	return nil
}
