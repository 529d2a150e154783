package lister

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
)

type composeTransport struct {
	status int
	body   string
}

func (t *composeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func composeClient(t *testing.T, transport *composeTransport) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    "http://lister.test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestTruncateTitle(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"short stays intact", "Independent 149 Trucks", "Independent 149 Trucks"},
		{"ascii at limit", strings.Repeat("a", 80), strings.Repeat("a", 80)},
		{"ascii over limit", strings.Repeat("a", 81), strings.Repeat("a", 80)},
		{"trailing space trimmed", strings.Repeat("b", 79) + " c", strings.Repeat("b", 79)},
		{"multibyte over limit", strings.Repeat("ü", 100), strings.Repeat("ü", 80)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateTitle(tc.title)
			if got != tc.want {
				t.Fatalf("truncateTitle(%q) = %q, want %q", tc.title, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncateTitle(%q) produced invalid UTF-8", tc.title)
			}
		})
	}
}

func TestComposeDraftKeepsMultibyteTitlesValid(t *testing.T) {
	// 46 runes but 91 bytes, with a two-byte rune straddling byte 80.
	// A byte-based cut would leave a broken UTF-8 sequence.
	title := "a" + strings.Repeat("ü", 45)
	resp, _ := json.Marshal(map[string]any{
		"title":       title,
		"description": "Offene Verpackung, nie gefahren.",
		"aspects":     map[string]string{"Brand": "Spitfire"},
	})
	client := composeClient(t, &composeTransport{status: http.StatusOK, body: string(resp)})

	group := domain.Group{ID: "g-1", BatchID: "b-1", SuggestedType: domain.ItemTypeWheels, Confidence: 0.9}
	content, err := client.ComposeDraft(context.Background(), group, []domain.Image{{ID: "img-1", URL: "http://img.test/1.jpg"}})
	if err != nil {
		t.Fatalf("ComposeDraft: %v", err)
	}
	if !utf8.ValidString(content.Title) {
		t.Fatalf("title is not valid UTF-8: %q", content.Title)
	}
	if n := len([]rune(content.Title)); n > MaxTitleLength {
		t.Fatalf("title length = %d runes, want at most %d", n, MaxTitleLength)
	}
	if content.Condition != "USED_GOOD" {
		t.Errorf("condition = %q, want USED_GOOD default", content.Condition)
	}
}

func TestComposeDraftRejectsEmptyTitle(t *testing.T) {
	client := composeClient(t, &composeTransport{status: http.StatusOK, body: `{"title":"  ","description":"x"}`})

	group := domain.Group{ID: "g-1", BatchID: "b-1", SuggestedType: domain.ItemTypeDeck}
	if _, err := client.ComposeDraft(context.Background(), group, nil); err == nil {
		t.Fatal("ComposeDraft accepted blank title")
	}
}

func TestComposeDraftSurfacesServiceError(t *testing.T) {
	client := composeClient(t, &composeTransport{status: http.StatusOK, body: `{"error":"model overloaded"}`})

	group := domain.Group{ID: "g-1", BatchID: "b-1", SuggestedType: domain.ItemTypeDeck}
	_, err := client.ComposeDraft(context.Background(), group, nil)
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("ComposeDraft error = %v, want service message", err)
	}
}
