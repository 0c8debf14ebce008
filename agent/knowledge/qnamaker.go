package knowledge

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
)

// noMatchID marks the service's built-in "no good match" answer.
const noMatchID = -1

// QnAMakerClient looks answers up through the generateAnswer REST call.
type QnAMakerClient struct {
	host      string
	kbID      string
	key       string
	top       int
	threshold float64
	http      *httpx.Client
}

type generateAnswerRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

type generateAnswerResponse struct {
	Answers []struct {
		ID     int     `json:"id"`
		Answer string  `json:"answer"`
		Score  float64 `json:"score"`
	} `json:"answers"`
}

func NewQnAMakerClient(cfg Config, opts ...httpx.Option) (*QnAMakerClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if _, err := url.ParseRequestURI(host); err != nil {
		return nil, fmt.Errorf("%w: knowledge host: %v", contractx.ErrConfiguration, err)
	}

	top := cfg.Top
	if top <= 0 {
		top = 3
	}

	opts = append([]httpx.Option{httpx.WithBreaker(cfg.Breaker)}, opts...)
	return &QnAMakerClient{
		host:      host,
		kbID:      strings.TrimSpace(cfg.KnowledgeBaseID),
		key:       strings.TrimSpace(cfg.EndpointKey),
		top:       top,
		threshold: cfg.ScoreThreshold,
		http:      httpx.New("qnamaker", cfg.Timeout, opts...),
	}, nil
}

func (c *QnAMakerClient) FindAnswers(ctx context.Context, utt contractx.Utterance) ([]contractx.AnswerCandidate, error) {
	payload, err := json.Marshal(generateAnswerRequest{Question: utt.Text, Top: c.top})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal qna request: %v", contractx.ErrAnswerService, err)
	}

	endpoint := fmt.Sprintf("%s/qnamaker/knowledgebases/%s/generateAnswer", c.host, url.PathEscape(c.kbID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build qna request: %v", contractx.ErrAnswerService, err)
	}
	req.Header.Set("Authorization", "EndpointKey "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrAnswerService, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: qna http status=%d body=%s", contractx.ErrAnswerService, resp.StatusCode, string(resp.Body))
	}

	var parsed generateAnswerResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w: decode qna response: %v", contractx.ErrAnswerService, contractx.ErrSchemaViolation, err)
	}

	out := make([]contractx.AnswerCandidate, 0, len(parsed.Answers))
	for _, a := range parsed.Answers {
		score := a.Score / 100
		if a.ID == noMatchID || strings.TrimSpace(a.Answer) == "" || score < c.threshold {
			continue
		}
		out = append(out, contractx.AnswerCandidate{Text: a.Answer, Score: score})
	}
	return out, nil
}
