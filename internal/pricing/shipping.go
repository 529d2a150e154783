package pricing

import (
	"context"
	"time"
)

// Seller shipping charges before currency conversion. Europe ships at a flat
// EUR rate, everything else is quoted in USD.
const (
	shippingEuropeEUR      = 10.0
	shippingAmericasUSD    = 25.0
	shippingRestOfWorldUSD = 45.0
)

// ShippingRate is a price expressed in one currency.
type ShippingRate struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ShippingRates holds the zone charges converted to a marketplace currency.
type ShippingRates struct {
	Currency       string       `json:"currency"`
	Europe         ShippingRate `json:"europe"`
	Americas       ShippingRate `json:"americas"`
	RestOfWorld    ShippingRate `json:"rest_of_world"`
	RatesTimestamp string       `json:"rates_timestamp,omitempty"`
}

// ShippingRatesFor converts the zone charges into the given currency using the
// store's cached exchange rates.
func (s *Store) ShippingRatesFor(ctx context.Context, currency string) ShippingRates {
	rates := s.Rates(ctx)

	europe := Convert(shippingEuropeEUR, "EUR", currency, rates)
	americas := Convert(shippingAmericasUSD, "USD", currency, rates)
	row := Convert(shippingRestOfWorldUSD, "USD", currency, rates)

	out := ShippingRates{
		Currency:    currency,
		Europe:      ShippingRate{Value: RoundPrice(europe), Currency: currency},
		Americas:    ShippingRate{Value: RoundPrice(americas), Currency: currency},
		RestOfWorld: ShippingRate{Value: RoundPrice(row), Currency: currency},
	}
	if at := s.FetchedAt(); !at.IsZero() {
		out.RatesTimestamp = at.Format(time.RFC3339)
	}
	return out
}
