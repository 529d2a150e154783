package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra/geoip"
)

type contextKey string

const marketplaceHintKey contextKey = "marketplace_hint"

// MarketplaceHint resolves the caller's country via GeoIP and stores the
// matching marketplace id on the request context. Lookups that fail leave the
// context untouched; the hint is advisory only.
func MarketplaceHint(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			iso, err := resolver.CountryCode(clientIP(r))
			if err == nil && iso != "" {
				if mpID := ebay.MarketplaceForCountry(iso); mpID != "" {
					ctx := context.WithValue(r.Context(), marketplaceHintKey, mpID)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MarketplaceHintFrom returns the marketplace id suggested for this request,
// empty when no hint was resolved.
func MarketplaceHintFrom(ctx context.Context) string {
	hint, _ := ctx.Value(marketplaceHintKey).(string)
	return hint
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
