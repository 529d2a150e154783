// Package classifier wraps the external auto-grouping engine. The engine
// receives a batch's images and proposes a partition; its internals are opaque
// to this service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// Proposal is one suggested group returned by the engine.
type Proposal struct {
	ImageIDs      []string        `json:"image_ids"`
	SuggestedType domain.ItemType `json:"suggested_type"`
	Confidence    float64         `json:"confidence"`
}

// Classifier proposes a partition for a set of images.
type Classifier interface {
	Classify(ctx context.Context, images []domain.Image) ([]Proposal, error)
}

// ErrMissingBaseURL indicates the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("classifier: base url is required")

// Options configures the HTTP-backed classifier client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the classification service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a classifier client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type classifyRequest struct {
	Images []classifyImage `json:"images"`
}

type classifyImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type classifyResponse struct {
	Groups []Proposal `json:"groups"`
	Error  string     `json:"error,omitempty"`
}

// Classify submits the images and returns the proposed partition.
func (c *Client) Classify(ctx context.Context, images []domain.Image) ([]Proposal, error) {
	if len(images) == 0 {
		return nil, errors.New("classifier: no images to classify")
	}
	payload := classifyRequest{Images: make([]classifyImage, 0, len(images))}
	for _, img := range images {
		payload.Images = append(payload.Images, classifyImage{ID: img.ID, URL: img.URL})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("classifier: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("classifier: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded classifyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("classifier: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("classifier: %s", decoded.Error)
	}
	if len(decoded.Groups) == 0 {
		return nil, errors.New("classifier: empty partition")
	}
	c.logger.Debug().Int("images", len(images)).Int("groups", len(decoded.Groups)).Msg("classifier: partition proposed")
	return decoded.Groups, nil
}
