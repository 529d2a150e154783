// Package lister wraps the external draft-content collaborator that turns a
// group of photos into listing copy (title, description, aspects).
package lister

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

// MaxTitleLength is the marketplace title limit enforced on generated copy.
const MaxTitleLength = 80

// Content is the generated listing copy for one group.
type Content struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Aspects     map[string]string `json:"aspects"`
	Condition   string            `json:"condition,omitempty"`
}

// Composer generates draft content for a group.
type Composer interface {
	ComposeDraft(ctx context.Context, group domain.Group, images []domain.Image) (*Content, error)
}

// ErrMissingBaseURL indicates the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("lister: base url is required")

// Options configures the HTTP-backed composer client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the content-generation service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a composer client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
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

type composeRequest struct {
	ItemType   string   `json:"item_type"`
	Confidence float64  `json:"confidence"`
	ImageURLs  []string `json:"image_urls"`
}

type composeResponse struct {
	Content
	Error string `json:"error,omitempty"`
}

// ComposeDraft generates listing copy for the group's images.
func (c *Client) ComposeDraft(ctx context.Context, group domain.Group, images []domain.Image) (*Content, error) {
	payload := composeRequest{
		ItemType:   string(group.SuggestedType),
		Confidence: group.Confidence,
		ImageURLs:  make([]string, 0, len(images)),
	}
	for _, img := range images {
		payload.ImageURLs = append(payload.ImageURLs, img.URL)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lister: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compose", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lister: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lister: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lister: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lister: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded composeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("lister: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("lister: %s", decoded.Error)
	}
	content := decoded.Content
	if strings.TrimSpace(content.Title) == "" {
		return nil, errors.New("lister: empty title")
	}
	content.Title = truncateTitle(content.Title)
	if content.Condition == "" {
		content.Condition = "USED_GOOD"
	}
	c.logger.Debug().Str("item_type", string(group.SuggestedType)).Msg("lister: draft content composed")
	return &content, nil
}

// truncateTitle shortens a title to the marketplace limit. The limit counts
// characters, not bytes, so cutting happens on rune boundaries and never
// leaves a broken UTF-8 sequence at the end.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}
	return strings.TrimRight(string(runes[:MaxTitleLength]), " ")
}
