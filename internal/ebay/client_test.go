package ebay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// scriptedTransport replies with a fixed sequence of responses and records
// every request it sees.
type scriptedTransport struct {
	responses []*http.Response
	requests  []*http.Request
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	resp := s.responses[idx]
	// Rewind the body so a repeated response stays readable.
	if body, ok := resp.Body.(*replayBody); ok {
		body.pos = 0
	}
	return resp, nil
}

type replayBody struct {
	data []byte
	pos  int
}

func (b *replayBody) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

func (b *replayBody) Close() error { return nil }

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Body:       &replayBody{data: []byte(body)},
		Header:     header,
	}
}

func testClient(t *testing.T, transport http.RoundTripper) (*Client, *[]time.Duration) {
	t.Helper()
	var slept []time.Duration
	client, err := NewClient(Options{
		BaseURL:    "https://example.test",
		Token:      StaticToken("token-1"),
		HTTPClient: &http.Client{Transport: transport},
		BaseDelay:  time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
		Jitter: func(d time.Duration) time.Duration { return d },
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, &slept
}

func TestRequestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		response(500, "boom", nil),
	}}
	client, slept := testClient(t, transport)

	_, retries, err := client.RequestWithRetry(context.Background(), http.MethodGet, "/x", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 {
		t.Fatalf("expected APIError 500, got %v", err)
	}
	if retries != 2 {
		t.Fatalf("retries: got %d, want 2", retries)
	}
	if got := len(transport.requests); got != 3 {
		t.Fatalf("attempts: got %d, want 3", got)
	}
	// Exponential backoff off the base delay.
	if len(*slept) != 2 || (*slept)[0] != time.Second || (*slept)[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence: %v", *slept)
	}
}

func TestRequestWithRetryRecoversMidSequence(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		response(503, "unavailable", nil),
		response(200, `{"ok":true}`, nil),
	}}
	client, _ := testClient(t, transport)

	resp, retries, err := client.RequestWithRetry(context.Background(), http.MethodGet, "/x", nil, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("status: got %d, want 200", resp.Status)
	}
	if retries != 1 {
		t.Fatalf("retries: got %d, want 1", retries)
	}
}

func TestRequestWithRetryDoesNotRetryClientErrors(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		response(400, "bad request", nil),
	}}
	client, slept := testClient(t, transport)

	resp, retries, err := client.RequestWithRetry(context.Background(), http.MethodPost, "/x", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Status != 400 {
		t.Fatalf("status: got %d, want 400", resp.Status)
	}
	if retries != 0 || len(*slept) != 0 {
		t.Fatalf("client errors must not retry: retries=%d sleeps=%v", retries, *slept)
	}
}

func TestRequestWithRetryHonorsRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	transport := &scriptedTransport{responses: []*http.Response{
		response(429, "slow down", header),
		response(200, "ok", nil),
	}}
	client, slept := testClient(t, transport)

	_, retries, err := client.RequestWithRetry(context.Background(), http.MethodGet, "/x", nil, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if retries != 1 {
		t.Fatalf("retries: got %d, want 1", retries)
	}
	if len(*slept) != 1 || (*slept)[0] != 7*time.Second {
		t.Fatalf("expected 7s Retry-After delay, got %v", *slept)
	}
}

func TestRequestWithRetrySendsAuthorization(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{
		response(204, "", nil),
	}}
	client, _ := testClient(t, transport)

	headers := http.Header{}
	headers.Set("Content-Language", "de-DE")
	if _, _, err := client.RequestWithRetry(context.Background(), http.MethodPut, "/x", headers, []byte(`{}`)); err != nil {
		t.Fatalf("request: %v", err)
	}
	req := transport.requests[0]
	if got := req.Header.Get("Authorization"); got != "Bearer token-1" {
		t.Fatalf("authorization: got %q", got)
	}
	if got := req.Header.Get("Content-Language"); got != "de-DE" {
		t.Fatalf("content language: got %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("12"); got != 12*time.Second {
		t.Fatalf("seconds form: got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("empty header: got %v", got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Fatalf("invalid header: got %v", got)
	}
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	if got <= 0 || got > 30*time.Second {
		t.Fatalf("http date form: got %v", got)
	}
}

func TestAPIErrorTransient(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
	}
	for _, tc := range cases {
		err := &APIError{Status: tc.status}
		if err.Transient() != tc.want {
			t.Fatalf("status %d: transient=%v, want %v", tc.status, err.Transient(), tc.want)
		}
	}
	if !strings.Contains((&APIError{Status: 500, Body: "oops"}).Error(), "500") {
		t.Fatalf("error text should name the status")
	}
}
