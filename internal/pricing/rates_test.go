package pricing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"
)

const ecbFixture = `<?xml version="1.0" encoding="UTF-8"?>
<gesmes:Envelope xmlns:gesmes="http://www.gesmes.org/xml/2002-08-01" xmlns="http://www.ecb.int/vocabulary/2002-08-01/eurofxref">
  <gesmes:subject>Reference rates</gesmes:subject>
  <Cube>
    <Cube time="2026-08-28">
      <Cube currency="USD" rate="1.1025"/>
      <Cube currency="AUD" rate="1.6712"/>
      <Cube currency="GBP" rate="0.8431"/>
      <Cube currency="JPY" rate="161.52"/>
    </Cube>
  </Cube>
</gesmes:Envelope>`

type feedTransport struct {
	status int
	body   string
	err    error
	calls  int
}

func (t *feedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func feedStore(transport *feedTransport) *Store {
	return NewStore(Options{
		FeedURL:    "http://feed.test/eurofxref-daily.xml",
		HTTPClient: &http.Client{Transport: transport},
	})
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRefreshParsesECBFeed(t *testing.T) {
	store := feedStore(&feedTransport{status: http.StatusOK, body: ecbFixture})

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	rates := store.Rates(context.Background())
	want := map[string]float64{
		"EUR": 1.0,
		"USD": 1.1025,
		"AUD": 1.6712,
		"GBP": 0.8431,
		"JPY": 161.52,
	}
	for cur, rate := range want {
		if !almostEqual(rates[cur], rate) {
			t.Errorf("rates[%s] = %v, want %v", cur, rates[cur], rate)
		}
	}
	if store.FetchedAt().IsZero() {
		t.Error("FetchedAt is zero after a successful refresh")
	}
}

func TestRatesFallsBackWhenFeedUnreachable(t *testing.T) {
	store := feedStore(&feedTransport{err: errors.New("connection refused")})

	rates := store.Rates(context.Background())

	if got := rates["EUR"]; got != 1.0 {
		t.Errorf("rates[EUR] = %v, want 1.0", got)
	}
	for cur, want := range FallbackRates {
		if got := rates[cur]; got != want {
			t.Errorf("rates[%s] = %v, want fallback %v", cur, got, want)
		}
	}
	if !store.FetchedAt().IsZero() {
		t.Error("FetchedAt set even though no refresh succeeded")
	}
}

func TestRatesPrefersStaleCacheOverFallback(t *testing.T) {
	transport := &feedTransport{status: http.StatusOK, body: ecbFixture}
	store := feedStore(transport)
	store.cacheTTL = time.Nanosecond

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	time.Sleep(time.Millisecond)

	// Cache is stale, next refresh fails: cached rates must survive.
	transport.err = errors.New("connection refused")
	rates := store.Rates(context.Background())
	if !almostEqual(rates["USD"], 1.1025) {
		t.Errorf("rates[USD] = %v, want cached 1.1025", rates["USD"])
	}
}

func TestRatesDoesNotRefetchWhileFresh(t *testing.T) {
	transport := &feedTransport{status: http.StatusOK, body: ecbFixture}
	store := feedStore(transport)

	store.Rates(context.Background())
	store.Rates(context.Background())
	store.Rates(context.Background())

	if transport.calls != 1 {
		t.Fatalf("feed fetched %d times, want 1", transport.calls)
	}
}

func TestRefreshRejectsBadFeed(t *testing.T) {
	tests := []struct {
		name      string
		transport *feedTransport
	}{
		{"server error", &feedTransport{status: http.StatusInternalServerError, body: "oops"}},
		{"not xml", &feedTransport{status: http.StatusOK, body: "not xml at all <"}},
		{"empty envelope", &feedTransport{status: http.StatusOK, body: `<Envelope><Cube><Cube time="2026-08-28"></Cube></Cube></Envelope>`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := feedStore(tt.transport)
			if err := store.Refresh(context.Background()); err == nil {
				t.Fatal("Refresh succeeded, want error")
			}
		})
	}
}

func TestConvert(t *testing.T) {
	rates := map[string]float64{"EUR": 1.0, "USD": 1.08, "AUD": 1.65, "GBP": 0.85}

	tests := []struct {
		amount   float64
		from, to string
		want     float64
	}{
		{100, "EUR", "USD", 108},
		{108, "USD", "EUR", 100},
		{25, "USD", "EUR", 25 / 1.08},
		{10, "USD", "AUD", 10 / 1.08 * 1.65},
		{50, "USD", "USD", 50},
		{30, "XXX", "EUR", 30},
		{30, "EUR", "XXX", 30},
	}
	for _, tt := range tests {
		got := Convert(tt.amount, tt.from, tt.to, rates)
		if !almostEqual(got, tt.want) {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.amount, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestShippingRatesFor(t *testing.T) {
	store := feedStore(&feedTransport{err: errors.New("offline")})

	got := store.ShippingRatesFor(context.Background(), "USD")

	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", got.Currency)
	}
	// Europe flat charge is 10 EUR, converted at the 1.08 fallback rate.
	if want := fmt.Sprintf("%.2f", 10*1.08); got.Europe.Value != want {
		t.Errorf("Europe.Value = %q, want %q", got.Europe.Value, want)
	}
	if got.Americas.Value != "25.00" {
		t.Errorf("Americas.Value = %q, want 25.00", got.Americas.Value)
	}
	if got.RestOfWorld.Value != "45.00" {
		t.Errorf("RestOfWorld.Value = %q, want 45.00", got.RestOfWorld.Value)
	}
	if got.RatesTimestamp != "" {
		t.Errorf("RatesTimestamp = %q, want empty without a successful refresh", got.RatesTimestamp)
	}
}

func TestRoundPrice(t *testing.T) {
	if got := RoundPrice(23.148148); got != "23.15" {
		t.Errorf("RoundPrice(23.148148) = %q, want 23.15", got)
	}
	if got := RoundPrice(5); got != "5.00" {
		t.Errorf("RoundPrice(5) = %q, want 5.00", got)
	}
}

func TestPsychologicalPrice(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{42.10, "42.99"},
		{42.99, "42.99"},
		{7, "7.99"},
	}
	for _, tt := range tests {
		if got := PsychologicalPrice(tt.amount); got != tt.want {
			t.Errorf("PsychologicalPrice(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatPriceFallsBackOnUnknownCurrency(t *testing.T) {
	if got := FormatPrice(12.5, "NOPE", "en-US"); got != "12.50 NOPE" {
		t.Errorf("FormatPrice = %q, want %q", got, "12.50 NOPE")
	}
}
