package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaume768/splashmy/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "omni-moderation-latest"
	defaultTimeout = 30 * time.Second
)

// Options configures the OpenAI moderation backend.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIModerator screens images through the moderations endpoint. Images are
// submitted inline as data URLs.
type OpenAIModerator struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewOpenAIModerator builds a moderator from the given options.
func NewOpenAIModerator(opts Options) *OpenAIModerator {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &OpenAIModerator{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
	}
}

type moderationRequest struct {
	Model string            `json:"model"`
	Input []moderationInput `json:"input"`
}

type moderationInput struct {
	Type     string              `json:"type"`
	ImageURL *moderationImageURL `json:"image_url,omitempty"`
}

type moderationImageURL struct {
	URL string `json:"url"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

func (m *OpenAIModerator) Moderate(ctx context.Context, imageData []byte, mime string) (Decision, error) {
	if m.token == "" {
		// Unconfigured moderation is treated as pass-through, matching the
		// development setup where no AWS/OpenAI credentials exist.
		return Decision{Safe: true}, nil
	}
	if mime == "" {
		mime = "image/png"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(imageData)
	payload, err := json.Marshal(moderationRequest{
		Model: m.model,
		Input: []moderationInput{{Type: "image_url", ImageURL: &moderationImageURL{URL: dataURL}}},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: encode moderation request: %v", domain.ErrPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/moderations", bytes.NewReader(payload))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: build moderation request: %v", domain.ErrPermanent, err)
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: moderation call: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: read moderation response: %v", domain.ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := domain.ErrPermanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			class = domain.ErrTransient
		}
		return Decision{}, fmt.Errorf("%w: moderation http %d", class, resp.StatusCode)
	}

	var decoded moderationResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Decision{}, fmt.Errorf("%w: decode moderation response: %v", domain.ErrPermanent, err)
	}
	if len(decoded.Results) == 0 {
		return Decision{Safe: true}, nil
	}

	result := decoded.Results[0]
	decision := Decision{Safe: !result.Flagged}
	for name, flagged := range result.Categories {
		if !flagged {
			continue
		}
		decision.Labels = append(decision.Labels, Label{Name: name, Score: result.CategoryScores[name]})
	}
	return decision, nil
}

var _ Moderator = (*OpenAIModerator)(nil)
